package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	config "github.com/NordCoder/Shortly/internal/config/worker"
	"github.com/NordCoder/Shortly/internal/obs"
	"github.com/NordCoder/Shortly/internal/obs/retry"
	"github.com/NordCoder/Shortly/internal/outbox"
	kafkaRepo "github.com/NordCoder/Shortly/internal/repository/kafka"
	pg "github.com/NordCoder/Shortly/internal/repository/postgres"
	"github.com/NordCoder/Shortly/internal/services/worker/sweeper"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
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
	l.Info("starting worker",
		zap.Bool("sweeper", cfg.Sweeper.Enable),
		zap.Bool("outbox", cfg.Outbox.Enable),
		zap.String("metrics_addr", cfg.MetricsAddr),
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

	ms := obs.BootstrapMetricsServer(cfg.MetricsAddr, db.Ping, l)

	reg := prometheus.DefaultRegisterer
	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	if cfg.Sweeper.Enable {
		uc := sweeper.NewUC(pg.NewSessionRepo(db), cfg.Sweeper.Grace, nil)
		runner := sweeper.New(l, reg, uc, cfg.Sweeper.AsRunnerConfig())
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				select {
				case errCh <- err:
				default:
				}
			}
		}()
	}

	if cfg.Outbox.Enable {
		producer := kafkaRepo.BootstrapProducer(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions, l)
		defer func() { _ = producer.Close() }()

		dispatch := outbox.MakeGlobalOutboxHandler(kafkaRepo.NewSecurityEventsKafka(producer), retry.PublishPolicy(l))
		relay := outbox.NewOutboxRunner(l, reg, pg.NewOutboxRepo(db), dispatch, cfg.Outbox.AsRunnerConfig())
		wg.Add(1)
		go func() {
			defer wg.Done()
			relay.Run(ctx)
		}()
	}

	l.Info("worker started")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		l.Error("runner error", zap.Error(err))
	}
	stop()
	wg.Wait()

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
