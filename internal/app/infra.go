package app

import (
	"context"

	"github.com/jay-neo/cinebase/internal/config"
	"github.com/jay-neo/cinebase/internal/db"
	"github.com/jay-neo/cinebase/internal/logger"
	"github.com/jay-neo/cinebase/internal/redis"
)

type Infra struct {
	DB *db.DB

	// Redis is nil when REDIS_ADDR is unset.
	Redis *redis.Client
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	database, err := db.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	logger.Info("database ready", map[string]any{"driver": cfg.DatabaseDriver})

	infra := &Infra{DB: database}

	if cfg.RedisAddr == "" {
		logger.Warn("redis not configured, callback rate limiting disabled", nil)
		return infra, nil
	}

	redisClient, err := redis.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		_ = database.Close()
		return nil, err
	}
	infra.Redis = redisClient

	logger.Info("redis ready", map[string]any{"addr": cfg.RedisAddr})

	return infra, nil
}

func (i *Infra) Close() error {
	var redisErr error
	if i.Redis != nil {
		redisErr = i.Redis.Close()
	}
	if err := i.DB.Close(); err != nil {
		return err
	}
	return redisErr
}
