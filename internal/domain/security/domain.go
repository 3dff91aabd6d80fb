package security

import (
	"context"
	"time"
)

const (
	EventReuseDetected = "session.reuse_detected"
	EventRevokedAll    = "session.revoked_all"
)

// Event is emitted after the transaction that revoked sessions commits.
type Event struct {
	Kind       string    `json:"kind"`
	UserID     int64     `json:"user_id"`
	Revoked    int64     `json:"revoked"`
	OccurredAt time.Time `json:"occurred_at"`
}

type AuditRecord struct {
	ID         int64
	UserID     int64
	Kind       string
	Revoked    int64
	OccurredAt time.Time
	Payload    string
}

type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Clock interface {
	Now() time.Time
}
