// Package memory is an in-process key-value store with a byte quota, the
// server-side stand-in for a browser's local storage.
package memory

import (
	"context"
	"fmt"
	"sync"

	"school_reviews/internal/adapters/observability"
	"school_reviews/internal/domain"
)

// DefaultQuota matches the usual per-origin local storage allowance.
const DefaultQuota = 5 << 20

type KV struct {
	mu    sync.RWMutex
	quota int
	used  int
	data  map[string][]byte
}

// New returns an empty store. quota <= 0 disables the limit.
func New(quota int) *KV {
	return &KV{quota: quota, data: map[string][]byte{}}
}

func (k *KV) Get(_ context.Context, key string) ([]byte, bool, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	v, ok := k.data[key]
	if !ok {
		observability.ObserveKV("memory", "miss")
		return nil, false, nil
	}
	observability.ObserveKV("memory", "hit")
	return append([]byte(nil), v...), true, nil
}

func (k *KV) Set(_ context.Context, key string, value []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	// keys count toward the quota like they do in the browser
	used := k.used - entrySize(key, k.data[key], k.data) + len(key) + len(value)
	if k.quota > 0 && used > k.quota {
		return fmt.Errorf("set %q (%d bytes, quota %d): %w", key, len(value), k.quota, domain.ErrQuotaExceeded)
	}
	k.data[key] = append([]byte(nil), value...)
	k.used = used
	observability.ObserveKV("memory", "set")
	return nil
}

func (k *KV) Del(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.used -= entrySize(key, k.data[key], k.data)
	delete(k.data, key)
	observability.ObserveKV("memory", "del")
	return nil
}

// Used reports the bytes currently counted against the quota.
func (k *KV) Used() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.used
}

func entrySize(key string, v []byte, data map[string][]byte) int {
	if _, ok := data[key]; !ok {
		return 0
	}
	return len(key) + len(v)
}
