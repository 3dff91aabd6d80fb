package main

import (
	"context"

	config "github.com/NordCoder/Shortly/internal/config/api-gateway"
	pg "github.com/NordCoder/Shortly/internal/repository/postgres"
	rediscache "github.com/NordCoder/Shortly/internal/repository/redis"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func initDB(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pg.DB, error) {
	db, err := pg.New(ctx, cfg.DB.AsPGConfig())
	if err != nil {
		return nil, err
	}
	logger.Info("postgres connected")
	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*redis.Client, error) {
	client, err := rediscache.NewClient(ctx, cfg.Redis.AsRedisConfig())
	if err != nil {
		return nil, err
	}
	logger.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	return client, nil
}
