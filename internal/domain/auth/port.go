package auth

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// SessionStore mutates sessions only inside a caller-owned transaction.
type SessionStore interface {
	Create(ctx context.Context, tx pgx.Tx, s *Session) error
	DeleteByJTI(ctx context.Context, tx pgx.Tx, jti string) (bool, error)
	DeleteAllForUser(ctx context.Context, tx pgx.Tx, userID int64) (int64, error)
	CountForUser(ctx context.Context, userID int64) (int64, error)
}

type SessionSweeper interface {
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int64, error)
}
