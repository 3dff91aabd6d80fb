package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/NordCoder/Shortly/internal/domain/auth"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultBatch = 1000
	maxBatches   = 100
)

type Usecase struct {
	repo  auth.SessionSweeper
	grace time.Duration
	now   func() time.Time
}

func NewUC(repo auth.SessionSweeper, grace time.Duration, now func() time.Time) *Usecase {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Usecase{repo: repo, grace: grace, now: now}
}

// Tick deletes sessions that expired more than grace ago, batch by batch,
// until a short batch shows nothing is left.
func (u *Usecase) Tick(ctx context.Context, batch int) (int64, error) {
	if batch <= 0 {
		batch = DefaultBatch
	}
	before := u.now().Add(-u.grace)

	tr := otel.Tracer("sweeper.uc")
	ctx, span := tr.Start(ctx, "sweeper.tick",
		trace.WithAttributes(
			attribute.Int("batch.limit", batch),
			attribute.String("before", before.Format(time.RFC3339)),
		),
	)
	defer span.End()

	var total int64
	for i := 0; i < maxBatches; i++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := u.repo.DeleteExpired(ctx, before, batch)
		if err != nil {
			span.RecordError(err)
			return total, fmt.Errorf("delete expired: %w", err)
		}
		total += n
		if n < int64(batch) {
			break
		}
	}
	span.SetAttributes(attribute.Int64("batch.deleted", total))
	return total, nil
}
