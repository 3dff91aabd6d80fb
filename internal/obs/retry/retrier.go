package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Backoff interface {
	Next(attempt int) time.Duration
}

type ExpoJitter struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64
}

func (b ExpoJitter) Next(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := float64(b.Base) * math.Pow(2, float64(attempt))
	if b.Max > 0 && time.Duration(d) > b.Max {
		d = float64(b.Max)
	}
	if b.Jitter > 0 {
		d *= 1 + (rand.Float64()*2-1)*b.Jitter
	}
	return time.Duration(d)
}

// Policy describes how one named operation is retried. Name becomes the
// "op" label of the retry metrics, e.g. "security_event.publish".
type Policy struct {
	Name      string
	Attempts  int
	Backoff   Backoff
	Retryable func(error) bool
	OnAttempt func(attempt int, err error)
	OnExhaust func(lastErr error)
	// Log, when set, gets a warn per failed attempt and an error on give-up.
	Log *zap.Logger
}

// Named returns a copy of p reporting under op.
func (p Policy) Named(op string) Policy {
	p.Name = op
	return p
}

type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// Permanent marks err as not worth another attempt whatever the policy says.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err: err}
}

func IsPermanent(err error) bool {
	var p permanent
	return errors.As(err, &p)
}

var (
	retryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shortly_retry_attempts_total",
		Help: "Attempts made by retried operations, the final one included.",
	}, []string{"op"})
	retryExhausted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shortly_retry_exhausted_total",
		Help: "Retried operations that gave up.",
	}, []string{"op"})
	retryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shortly_retry_duration_seconds",
		Help:    "Wall time spent inside retry.Do, success or not.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)

// Do runs fn until it succeeds, the error is not retryable, attempts run out
// or ctx ends. The last error is returned unchanged.
func Do(ctx context.Context, fn func() error, p Policy) error {
	start := time.Now()
	op := p.Name
	if op == "" {
		op = "unnamed"
	}
	defer func() { retryLatency.WithLabelValues(op).Observe(time.Since(start).Seconds()) }()

	attempts := max(p.Attempts, 1)
	retryable := p.Retryable
	if retryable == nil {
		retryable = func(err error) bool { return !errors.Is(err, context.Canceled) }
	}
	span := trace.SpanFromContext(ctx)

	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		retryAttempts.WithLabelValues(op).Inc()
		if err == nil {
			return nil
		}
		if p.Log != nil {
			p.Log.Warn("retry", zap.String("op", op), zap.Int("attempt", i+1), zap.Error(err))
		}
		if p.OnAttempt != nil {
			p.OnAttempt(i, err)
		}
		if span.IsRecording() {
			span.AddEvent("retry.attempt", trace.WithAttributes(
				attribute.String("retry.op", op),
				attribute.Int("retry.attempt", i+1),
				attribute.String("error", err.Error()),
			))
		}
		if IsPermanent(err) || !retryable(err) || i == attempts-1 {
			break
		}

		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff.Next(i)
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	retryExhausted.WithLabelValues(op).Inc()
	if p.Log != nil && !errors.Is(err, context.Canceled) {
		p.Log.Error("retries exhausted", zap.String("op", op), zap.Error(err))
	}
	if p.OnExhaust != nil {
		p.OnExhaust(err)
	}
	return err
}
