package main

import (
	"context"

	"github.com/NordCoder/Shortly/internal/auth/password"
	"github.com/NordCoder/Shortly/internal/auth/token"
	config "github.com/NordCoder/Shortly/internal/config/api-gateway"
	"github.com/NordCoder/Shortly/internal/obs/retry"
	"github.com/NordCoder/Shortly/internal/outbox"
	kafkax "github.com/NordCoder/Shortly/internal/repository/kafka"
	pg "github.com/NordCoder/Shortly/internal/repository/postgres"
	rediscache "github.com/NordCoder/Shortly/internal/repository/redis"
	"github.com/NordCoder/Shortly/internal/services/api-gateway/auth"
	"github.com/NordCoder/Shortly/internal/services/api-gateway/link"
	"github.com/NordCoder/Shortly/internal/validate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type app struct {
	auth   *auth.Controller
	links  *link.Controller
	relay  *outbox.Runner
	closer func() error
}

func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer, db *pg.DB, rdb *redis.Client) (*app, error) {
	codec, err := token.NewCodec(cfg.Auth.AsCodecConfig())
	if err != nil {
		return nil, err
	}
	hasher, err := password.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}

	v := validate.New()
	sessions := pg.NewSessionRepo(db)
	outboxRepo := pg.NewOutboxRepo(db)
	tokens := auth.NewTokenService(codec, sessions, auth.TokenConfig{RefreshTTL: cfg.Auth.RefreshTTL})

	authUC := auth.NewUseCase(auth.Deps{
		Logger:    logger,
		Tx:        pg.NewTransactor(db, logger),
		Users:     pg.NewUserRepo(db),
		Sessions:  sessions,
		Tokens:    tokens,
		Hasher:    hasher,
		Outbox:    outboxRepo,
		Validator: v,
		Metrics:   auth.NewMetrics(reg),
	})
	cookies := auth.NewCookies(cfg.Auth.AsCookieConfig(), tokens.AccessTTL(), tokens.RefreshTTL())
	authCtl := auth.NewController(logger, authUC, cookies)

	linkUC := link.NewUsecase(logger,
		pg.NewLinkRepo(db), pg.NewClickRepo(db),
		rediscache.NewLinkCache(rdb, logger),
		v, link.Config{CacheTTL: cfg.Redis.CacheTTL},
	)
	linkCtl := link.NewController(logger, linkUC, link.NewHeaderGeo(), authCtl.Middleware())

	a := &app{auth: authCtl, links: linkCtl, closer: func() error { return nil }}

	if cfg.Outbox.Enable {
		producer := kafkax.BootstrapProducer(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions, logger)
		dispatch := outbox.MakeGlobalOutboxHandler(kafkax.NewSecurityEventsKafka(producer), retry.PublishPolicy(logger))
		a.relay = outbox.NewOutboxRunner(logger, reg, outboxRepo, dispatch, outbox.Config{
			Workers:       cfg.Outbox.Workers,
			BatchSize:     cfg.Outbox.BatchSize,
			WaitTime:      cfg.Outbox.WaitTime,
			InProgressTTL: cfg.Outbox.InProgressTTL,
		})
		a.closer = producer.Close
	}
	return a, nil
}
