package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusSuccess    Status = "SUCCESS"
)

type Kind int

const (
	KindReuseDetected Kind = 1
	KindRevokedAll    Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindReuseDetected:
		return "reuse_detected"
	case KindRevokedAll:
		return "revoked_all"
	default:
		return "unknown"
	}
}

type Message struct {
	IdempotencyKey string
	Kind           Kind
	Data           []byte
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Tracestate     string
	Traceparent    string
	Baggage        string
}

type Repository interface {
	// Enqueue writes inside tx so the message commits or rolls back with
	// the state change that produced it.
	Enqueue(ctx context.Context, tx pgx.Tx, key string, kind Kind, data []byte) error

	PickBatch(ctx context.Context, batch int, inProgressTTL time.Duration) ([]Message, error)

	MarkSuccess(ctx context.Context, keys []string) error
}

type KindHandler func(ctx context.Context, data []byte) error

type GlobalHandler func(kind Kind) (KindHandler, error)
