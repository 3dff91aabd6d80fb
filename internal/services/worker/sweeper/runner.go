package sweeper

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

type Config struct {
	Tick  time.Duration
	Batch int
}

type Runner struct {
	log *zap.Logger
	uc  *Usecase
	cfg Config

	mDeleted prometheus.Counter
	mErr     prometheus.Counter
	mLoopDur prometheus.Histogram
}

func New(log *zap.Logger, reg prometheus.Registerer, uc *Usecase, cfg Config) *Runner {
	if cfg.Tick <= 0 {
		cfg.Tick = 10 * time.Minute
	}
	f := promauto.With(reg)
	return &Runner{
		log: log.With(zap.String("component", "sweeper")),
		uc:  uc,
		cfg: cfg,
		mDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "sweeper_sessions_deleted_total", Help: "Expired refresh sessions removed.",
		}),
		mErr: f.NewCounter(prometheus.CounterOpts{
			Name: "sweeper_errors_total", Help: "Errors in sweeper loop.",
		}),
		mLoopDur: f.NewHistogram(prometheus.HistogramOpts{
			Name: "sweeper_tick_duration_seconds", Help: "Sweeper tick duration.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (r *Runner) tick(ctx context.Context) {
	start := time.Now()
	deleted, err := r.uc.Tick(ctx, r.cfg.Batch)
	if err != nil {
		r.mErr.Inc()
		r.log.Warn("tick error", zap.Error(err))
	}
	if deleted > 0 {
		r.mDeleted.Add(float64(deleted))
		r.log.Info("expired sessions swept", zap.Int64("deleted", deleted))
	}
	r.mLoopDur.Observe(time.Since(start).Seconds())
}

func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Tick)
	defer ticker.Stop()

	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}
