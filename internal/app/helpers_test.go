package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"school_reviews/internal/app"
	"school_reviews/internal/domain"
	"school_reviews/internal/storage/memory"
)

// ---- fakes ----

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// flakyKV fails writes to the keys in failSet.
type flakyKV struct {
	*memory.KV
	mu      sync.Mutex
	failSet map[string]error
}

func (f *flakyKV) Set(ctx context.Context, key string, v []byte) error {
	f.mu.Lock()
	err := f.failSet[key]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.KV.Set(ctx, key, v)
}

func (f *flakyKV) failWrites(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet == nil {
		f.failSet = map[string]error{}
	}
	f.failSet[key] = err
}

// ---- helpers ----

type fixture struct {
	kv    *flakyKV
	store *app.Store
	wf    *app.Workflow
	clock *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	kv := &flakyKV{KV: memory.New(0)}
	clock := newClock()
	store := app.NewStore(kv)
	return &fixture{kv: kv, store: store, wf: app.NewWorkflow(store).WithClock(clock.Now), clock: clock}
}

func (f *fixture) raw(t *testing.T, key string) string {
	t.Helper()
	v, ok, err := f.kv.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("raw get %s: %v", key, err)
	}
	if !ok {
		return "<absent>"
	}
	return string(v)
}

func (f *fixture) putRaw(t *testing.T, key, v string) {
	t.Helper()
	if err := f.kv.KV.Set(context.Background(), key, []byte(v)); err != nil {
		t.Fatalf("raw set %s: %v", key, err)
	}
}

func (f *fixture) lists(t *testing.T) (pending, approved []domain.Review) {
	t.Helper()
	ctx := context.Background()
	pending, err := f.store.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	approved, err = f.store.ListApproved(ctx)
	if err != nil {
		t.Fatalf("ListApproved: %v", err)
	}
	return pending, approved
}

func validInput(name string) app.SubmitInput {
	return app.SubmitInput{
		FullName:     name,
		Email:        "a@b.com",
		Relationship: "Parent",
		Review:       "Great school experience",
	}
}

func ids(rs []domain.Review) []domain.ReviewID {
	out := make([]domain.ReviewID, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}
