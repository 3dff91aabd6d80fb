package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NordCoder/Shortly/internal/domain/kafka"
	"github.com/NordCoder/Shortly/internal/domain/outbox"
	"github.com/NordCoder/Shortly/internal/domain/security"
	"github.com/NordCoder/Shortly/internal/obs/retry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var (
	outboxHandlerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_handler_latency_seconds",
		Help:    "Latency of outbox handlers including retries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	outboxHandlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_handler_errors_total",
		Help: "Errors in outbox handlers (after retries).",
	}, []string{"kind"})
)

func instrument(kind string, h outbox.KindHandler, pol retry.Policy) outbox.KindHandler {
	tr := otel.Tracer("outbox.handler")
	if pol.Name == "" {
		pol.Name = "outbox_" + kind
	}
	return func(ctx context.Context, data []byte) error {
		ctx, span := tr.Start(ctx, "outbox.handle")
		defer span.End()

		start := time.Now()
		err := retry.Do(ctx, func() error { return h(ctx, data) }, pol)
		outboxHandlerLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			outboxHandlerErrors.WithLabelValues(kind).Inc()
		}
		return err
	}
}

// MakeGlobalOutboxHandler routes every security kind to the event publisher.
// The payload is the JSON form of security.Event written by the auth usecase.
func MakeGlobalOutboxHandler(pub kafka.SecurityEvents, pol retry.Policy) outbox.GlobalHandler {
	publish := func(ctx context.Context, data []byte) error {
		var ev security.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("unmarshal security event: %w", err)
		}
		return pub.PublishSecurityEvent(ctx, ev)
	}

	return func(kind outbox.Kind) (outbox.KindHandler, error) {
		switch kind {
		case outbox.KindReuseDetected, outbox.KindRevokedAll:
			return instrument(kind.String(), publish, pol), nil
		default:
			return nil, fmt.Errorf("unsupported outbox kind: %d", kind)
		}
	}
}
