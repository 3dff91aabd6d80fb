package retry

import (
	"time"

	"go.uber.org/zap"
)

// PublishPolicy covers the outbox relay pushing security events to Kafka.
// The broker may be down for a while, so it backs off up to 30s.
func PublishPolicy(log *zap.Logger) Policy {
	return Policy{
		Name:     "security_event.publish",
		Attempts: 6,
		Backoff:  ExpoJitter{Base: 200 * time.Millisecond, Max: 30 * time.Second, Jitter: 0.2},
		Log:      log,
	}
}

// DeliveryPolicy covers the auditor's audit insert and desk mail. It gives up
// sooner than PublishPolicy: an exhausted delivery stops the consumer and the
// event comes back after restart.
func DeliveryPolicy(log *zap.Logger) Policy {
	return Policy{
		Name:     "security_event.deliver",
		Attempts: 4,
		Backoff:  ExpoJitter{Base: 500 * time.Millisecond, Max: 10 * time.Second, Jitter: 0.2},
		Log:      log,
	}
}
