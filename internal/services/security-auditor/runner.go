package auditor

import (
	"context"
	"errors"

	kafkax "github.com/NordCoder/Shortly/internal/repository/kafka"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"
)

type Consumer interface {
	Consume(ctx context.Context, h kafkax.Handler) error
}

type Runner struct {
	log     *zap.Logger
	cons    Consumer
	handler *Handler

	mConsumed prometheus.Counter
	mMailed   prometheus.Counter
	mErrors   prometheus.Counter
}

func NewRunner(log *zap.Logger, reg prometheus.Registerer, cons Consumer, h *Handler) *Runner {
	f := promauto.With(reg)
	return &Runner{
		log:     log.With(zap.String("component", "security-auditor.runner")),
		cons:    cons,
		handler: h,
		mConsumed: f.NewCounter(prometheus.CounterOpts{
			Name: "security_auditor_events_consumed_total",
			Help: "Security events consumed.",
		}),
		mMailed: f.NewCounter(prometheus.CounterOpts{
			Name: "security_auditor_alerts_sent_total",
			Help: "Reuse alerts mailed to the security desk.",
		}),
		mErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "security_auditor_errors_total",
			Help: "Events that failed to store or alert.",
		}),
	}
}

func (r *Runner) Run(ctx context.Context) error {
	h := kafkax.ProtoHandler(
		func() *structpb.Struct { return &structpb.Struct{} },
		r.handleMessage,
	)
	if err := r.cons.Consume(ctx, h); err != nil && !errors.Is(err, context.Canceled) {
		r.log.Error("consumer stopped", zap.Error(err))
		return err
	}
	return ctx.Err()
}

// handleMessage returns nil for malformed or unknown events so their offset is
// committed. An error left after the handler's own retries stops the consumer
// with the offset uncommitted; the group redelivers it after restart.
func (r *Runner) handleMessage(ctx context.Context, _ []byte, st *structpb.Struct) error {
	r.mConsumed.Inc()

	ev, err := kafkax.EventFromStruct(st)
	if err != nil {
		r.mErrors.Inc()
		r.log.Warn("malformed security event", zap.Error(err))
		return nil
	}

	mailed, err := r.handler.HandleEvent(ctx, ev)
	if errors.Is(err, ErrUnknownKind) {
		r.log.Warn("skip security event", zap.String("kind", ev.Kind))
		return nil
	}
	if err != nil {
		r.mErrors.Inc()
		return err
	}
	if mailed {
		r.mMailed.Inc()
	}
	return nil
}
