// Package bootstrap wires the process-wide runtime: database, Redis and the
// admin account.
package bootstrap

import (
	"context"
	"fmt"

	"odinbook/internal/auth"
	"odinbook/internal/cache"
	"odinbook/internal/config"
	"odinbook/internal/database"
	"odinbook/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// EnsureAdmin creates ADMIN_USERNAME when it does not exist yet.
	EnsureAdmin bool
}

// InitRuntime connects to DB and Redis and optionally bootstraps the admin.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	rdb := cache.GetClient()

	if opts.EnsureAdmin {
		if err := ensureAdmin(ctx, cfg, db); err != nil {
			return nil, nil, fmt.Errorf("failed to bootstrap admin: %w", err)
		}
	}
	return db, rdb, nil
}

func ensureAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil || cfg.AdminUsername == "" {
		return nil
	}
	if cfg.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD must be set when ADMIN_USERNAME is")
	}
	_, err := seed.NewSeeder(db, auth.NewBcryptHasher()).EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword)
	return err
}
