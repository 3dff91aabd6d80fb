package main

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	kafkax "github.com/NordCoder/Shortly/internal/repository/kafka"
	"go.uber.org/zap"
)

// kafka-init creates the security events topic ahead of the services so the
// first consumer rebalance does not race topic auto-creation.
func main() {
	l, _ := zap.NewProduction()
	defer func() { _ = l.Sync() }()

	brokers := strings.Split(env("KAFKA_BROKERS", "kafka:9092"), ",")
	topics := strings.Split(env("KAFKA_TOPICS", "shortly.security.events"), ",")
	partitions := envInt("KAFKA_PARTITIONS", 3)
	rf := envInt("KAFKA_RF", 1)
	retention, err := time.ParseDuration(env("KAFKA_RETENTION", "720h"))
	if err != nil {
		l.Fatal("KAFKA_RETENTION", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		err := kafkax.EnsureTopic(ctx, brokers, kafkax.TopicSpec{
			Name:              t,
			NumPartitions:     partitions,
			ReplicationFactor: rf,
			Retention:         retention,
			MaxWait:           30 * time.Second,
		}, l)
		if err != nil {
			l.Fatal("ensure topic", zap.String("topic", t), zap.Error(err))
		}
	}
	l.Info("kafka-init ok")
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, _ := strconv.Atoi(v); n > 0 {
			return n
		}
	}
	return def
}
