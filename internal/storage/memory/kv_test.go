package memory_test

import (
	"context"
	"errors"
	"testing"

	"school_reviews/internal/domain"
	"school_reviews/internal/storage/memory"
)

func TestKV_SetGetDel(t *testing.T) {
	ctx := context.Background()
	kv := memory.New(0)

	if _, ok, err := kv.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := kv.Set(ctx, "k", []byte(`[1]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, ok, err := kv.Get(ctx, "k")
	if err != nil || !ok || string(v) != `[1]` {
		t.Fatalf("unexpected get: %q ok=%v err=%v", v, ok, err)
	}

	// returned bytes are a copy
	v[0] = 'x'
	again, _, _ := kv.Get(ctx, "k")
	if string(again) != `[1]` {
		t.Fatalf("stored value aliased caller slice: %q", again)
	}

	if err := kv.Del(ctx, "k"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, "k"); ok {
		t.Fatalf("expected key to be gone")
	}
	if kv.Used() != 0 {
		t.Fatalf("expected 0 bytes used, got %d", kv.Used())
	}
}

func TestKV_QuotaExceeded(t *testing.T) {
	ctx := context.Background()
	kv := memory.New(10)

	if err := kv.Set(ctx, "a", []byte("12345")); err != nil {
		t.Fatalf("set within quota: %v", err)
	}
	err := kv.Set(ctx, "b", []byte("123456"))
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if _, ok, _ := kv.Get(ctx, "b"); ok {
		t.Fatalf("rejected write must not be stored")
	}

	// overwriting an entry only counts the difference
	if err := kv.Set(ctx, "a", []byte("123456789")); err != nil {
		t.Fatalf("overwrite within quota: %v", err)
	}
	if kv.Used() != 10 {
		t.Fatalf("expected 10 bytes used, got %d", kv.Used())
	}
}
