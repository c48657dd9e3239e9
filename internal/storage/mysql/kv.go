package mysql

import (
	"context"
	"database/sql"
	"errors"

	"school_reviews/internal/adapters/observability"
)

// KV stores each review collection as one row of review_store
// (see migrations/001_review_store.sql).
type KV struct{ db *sql.DB }

func New(db *sql.DB) *KV { return &KV{db: db} }

func (r *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var v []byte
	err := r.db.QueryRowContext(ctx, getSQL, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		observability.ObserveKV("mysql", "miss")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	observability.ObserveKV("mysql", "hit")
	return v, true, nil
}

func (r *KV) Set(ctx context.Context, key string, value []byte) error {
	observability.ObserveKV("mysql", "set")
	_, err := r.db.ExecContext(ctx, upsertSQL, key, string(value))
	return err
}

func (r *KV) Del(ctx context.Context, key string) error {
	observability.ObserveKV("mysql", "del")
	_, err := r.db.ExecContext(ctx, deleteSQL, key)
	return err
}
