package domain

import "context"

// KV is the persistence port behind the review store: a flat string-keyed
// byte store, the same shape as browser local storage.
type KV interface {
	// Get reports found=false (and no error) for a key that was never written.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
}
