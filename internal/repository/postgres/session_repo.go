package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Shortly/internal/domain/auth"
	"github.com/jackc/pgx/v5"
)

var (
	_ auth.SessionStore   = (*SessionRepo)(nil)
	_ auth.SessionSweeper = (*SessionRepo)(nil)
)

type SessionRepo struct{ db *DB }

func NewSessionRepo(db *DB) *SessionRepo { return &SessionRepo{db: db} }

const (
	qSessCreate = `
INSERT INTO refresh_sessions (jti, user_id, expires_at)
VALUES ($1, $2, $3)
RETURNING created_at;`

	// single statement: the row lock taken by DELETE makes concurrent
	// redemptions of one jti serialize, and only one sees a row affected
	qSessDeleteByJTI = `DELETE FROM refresh_sessions WHERE jti = $1;`

	qSessDeleteForUser = `DELETE FROM refresh_sessions WHERE user_id = $1;`

	qSessCountForUser = `
SELECT count(*)
FROM refresh_sessions
WHERE user_id = $1 AND expires_at > now();`

	qSessDeleteExpired = `
DELETE FROM refresh_sessions
WHERE jti IN (
    SELECT jti
    FROM refresh_sessions
    WHERE expires_at < $1
    ORDER BY expires_at
    LIMIT $2
    FOR UPDATE SKIP LOCKED
);`
)

func (r *SessionRepo) Create(ctx context.Context, tx pgx.Tx, s *auth.Session) error {
	if tx == nil {
		return errors.New("session create: nil tx")
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := tx.QueryRow(ctx, qSessCreate, s.JTI, s.UserID, s.ExpiresAt).Scan(&s.CreatedAt); err != nil {
		if mapped := mapPgErr(err); errors.Is(mapped, ErrConflict) {
			return ErrConflict
		}
		return fmt.Errorf("session insert: %w", err)
	}
	return nil
}

func (r *SessionRepo) DeleteByJTI(ctx context.Context, tx pgx.Tx, jti string) (bool, error) {
	if tx == nil {
		return false, errors.New("session delete: nil tx")
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := tx.Exec(ctx, qSessDeleteByJTI, jti)
	if err != nil {
		return false, fmt.Errorf("session delete: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *SessionRepo) DeleteAllForUser(ctx context.Context, tx pgx.Tx, userID int64) (int64, error) {
	if tx == nil {
		return 0, errors.New("session delete all: nil tx")
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := tx.Exec(ctx, qSessDeleteForUser, userID)
	if err != nil {
		return 0, fmt.Errorf("session delete all: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *SessionRepo) CountForUser(ctx context.Context, userID int64) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n int64
	if err := r.db.Pool.QueryRow(ctx, qSessCountForUser, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("session count: %w", err)
	}
	return n, nil
}

func (r *SessionRepo) DeleteExpired(ctx context.Context, before time.Time, limit int) (int64, error) {
	if limit <= 0 {
		limit = 1000
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, qSessDeleteExpired, before, limit)
	if err != nil {
		return 0, fmt.Errorf("session sweep: %w", err)
	}
	return tag.RowsAffected(), nil
}
