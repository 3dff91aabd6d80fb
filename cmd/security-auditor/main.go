package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/NordCoder/Shortly/internal/config/security-auditor"
	"github.com/NordCoder/Shortly/internal/obs"
	"github.com/NordCoder/Shortly/internal/obs/retry"
	kafkaRepo "github.com/NordCoder/Shortly/internal/repository/kafka"
	pg "github.com/NordCoder/Shortly/internal/repository/postgres"
	auditor "github.com/NordCoder/Shortly/internal/services/security-auditor"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }

// main exits non-zero when the runner stops on an undeliverable event, so the
// supervisor restarts it and the group redelivers from the last commit.
func main() { os.Exit(run()) }

func run() int {
	cfgPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to yaml config")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(cfg.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()
	l.Info("starting security-auditor",
		zap.Strings("brokers", cfg.In.Brokers),
		zap.String("topic", cfg.In.Topic),
		zap.String("group", cfg.In.GroupID),
	)

	otelCloser, err := obs.SetupOTel(ctx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	db, err := pg.New(ctx, cfg.DB.AsPGConfig())
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, db.Ping, l)

	cons := kafkaRepo.BootstrapConsumer(ctx, &kafkaRepo.ConsumerConfig{
		Brokers:       cfg.In.Brokers,
		GroupID:       cfg.In.GroupID,
		Topic:         cfg.In.Topic,
		FromBeginning: cfg.In.FromBeginning,
		Logger:        l,
	}, cfg.In.Partitions, l)
	defer func() { _ = cons.Close() }()

	handler := &auditor.Handler{
		Audit: pg.NewAuditRepo(db),
		Users: pg.NewUserRepo(db),
		Out:   auditor.NewMailer(cfg.SMTP.AsMailerConfig()).WithLogger(l),
		Clock: utcClock{},
		Log:   l,
		Desk:  cfg.SMTP.Desk,
		Retry: retry.DeliveryPolicy(l),
	}
	runner := auditor.NewRunner(l, prometheus.DefaultRegisterer, cons, handler)

	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(ctx) }()

	l.Info("security-auditor started")

	code := 0
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("runner error", zap.Error(err))
			code = 1
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
	return code
}
