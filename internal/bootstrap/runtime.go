// Package bootstrap wires the process-level dependencies shared by the
// server and the maintenance commands.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"strings"

	"unheard/internal/cache"
	"unheard/internal/config"
	"unheard/internal/database"
	"unheard/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// ApplySchema runs migrations according to DB_SCHEMA_MODE.
	ApplySchema bool
	// SeedDemo fills an empty development database with demo confessions.
	SeedDemo bool
}

// InitRuntime connects to the database and Redis. Redis is optional: a nil
// client is returned when it is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if opts.ApplySchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return nil, nil, fmt.Errorf("schema apply failed: %w", err)
		}
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.SeedDemo {
		if err := seedDemo(ctx, cfg, db); err != nil {
			return nil, nil, fmt.Errorf("demo seed failed: %w", err)
		}
	}

	return db, r, nil
}

// seedDemo seeds only in development and only into an empty table.
func seedDemo(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if !strings.EqualFold(cfg.Env, "development") {
		return nil
	}
	var count int64
	if err := db.WithContext(ctx).Table("confessions").Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	opts := seed.DefaultOptions()
	opts.HighlightThreshold = cfg.HighlightThreshold
	opts.AvatarKey = cfg.JWTSecret
	report, err := seed.NewSeeder(db, opts).Run(ctx)
	if err != nil {
		return err
	}
	log.Printf("development database seeded with %d demo confessions", report.Confessions)
	return nil
}
