// Package storage opens the key-value backend selected by configuration.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	redisad "school_reviews/internal/adapters/redis"
	"school_reviews/internal/domain"
	"school_reviews/internal/shared"
	"school_reviews/internal/storage/memory"
	mongokv "school_reviews/internal/storage/mongo"
	mysqlkv "school_reviews/internal/storage/mysql"
)

// Open connects the configured backend. The returned close func is never nil.
func Open(ctx context.Context, cfg shared.Config) (domain.KV, func(), error) {
	noop := func() {}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch cfg.Backend {
	case "", "memory":
		log.Warn().Int("quota", cfg.MemoryQuota).Msg("using in-memory review store; reviews are lost on restart")
		return memory.New(cfg.MemoryQuota), noop, nil

	case "redis":
		kv := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := kv.Ping(ctx); err != nil {
			_ = kv.Close()
			return nil, noop, fmt.Errorf("redis ping: %w", err)
		}
		return kv, func() { _ = kv.Close() }, nil

	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, noop, fmt.Errorf("sql.Open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, noop, fmt.Errorf("db.Ping: %w", err)
		}
		return mysqlkv.New(db), func() { _ = db.Close() }, nil

	case "mongo":
		kv, err := mongokv.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, noop, fmt.Errorf("mongo connect: %w", err)
		}
		return kv, func() { _ = kv.Close(context.Background()) }, nil
	}
	return nil, noop, fmt.Errorf("unknown REVIEWS_BACKEND %q", cfg.Backend)
}
