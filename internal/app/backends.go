// Package app assembles the store and feed backends selected by config.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"examflow/internal/config"
	"examflow/internal/exam"
	"examflow/internal/feed"
	"examflow/internal/store"
	"examflow/internal/user"
)

// Backends are the opened stores and change feed.
type Backends struct {
	Exams exam.Store
	Users user.Store
	Feed  feed.Feed

	db    *store.DB
	redis *store.Redis
	mem   *feed.InMemory
}

// Open connects the configured backends and migrates SQL schemas.
func Open(ctx context.Context, cfg config.App, logger zerolog.Logger) (*Backends, error) {
	b := &Backends{}

	switch cfg.StoreBackend {
	case "memory":
		b.Exams = exam.NewMemoryStore()
		b.Users = user.NewMemoryStore()
		logger.Warn().Msg("using in-memory store; data is lost on restart")
	case "postgres", "sqlite":
		var (
			db  *store.DB
			err error
		)
		if cfg.StoreBackend == "postgres" {
			db, err = store.NewDB(cfg.DatabaseURL)
		} else {
			db, err = store.NewSQLite(cfg.SQLitePath)
		}
		if err != nil {
			if db != nil {
				_ = db.Close()
			}
			return nil, fmt.Errorf("open %s: %w", cfg.StoreBackend, err)
		}
		if err := store.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		b.db = db
		b.Exams = exam.NewSQLStore(db)
		b.Users = user.NewSQLStore(db)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	switch cfg.FeedBackend {
	case "memory":
		b.mem = feed.NewInMemory()
		b.Feed = b.mem
	case "redis":
		b.redis = store.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
		if !b.redis.Healthy(ctx) {
			logger.Warn().Str("addr", cfg.RedisAddr).Msg("redis not reachable; subscriptions will fail until it is")
		}
		b.Feed = feed.NewRedis(b.redis.Client, cfg.FeedChannel, logger)
	default:
		_ = b.Close()
		return nil, fmt.Errorf("unknown feed backend %q", cfg.FeedBackend)
	}
	return b, nil
}

// Health returns one check per networked backend.
func (b *Backends) Health() map[string]func(context.Context) bool {
	checks := map[string]func(context.Context) bool{}
	if b.db != nil {
		checks["db"] = b.db.Healthy
	}
	if b.redis != nil {
		checks["redis"] = b.redis.Healthy
	}
	return checks
}

// Close releases every opened backend.
func (b *Backends) Close() error {
	var errs []error
	if b.mem != nil {
		errs = append(errs, b.mem.Close())
	}
	if b.redis != nil {
		errs = append(errs, b.redis.Close())
	}
	if b.db != nil {
		errs = append(errs, b.db.Close())
	}
	return errors.Join(errs...)
}
