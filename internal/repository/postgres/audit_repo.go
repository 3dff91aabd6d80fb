package postgres

import (
	"context"
	"fmt"

	"github.com/NordCoder/Shortly/internal/domain/security"
)

var _ security.AuditRepo = (*AuditRepo)(nil)

type AuditRepo struct{ db *DB }

func NewAuditRepo(db *DB) *AuditRepo { return &AuditRepo{db: db} }

const (
	qAuditInsert = `
INSERT INTO security_audit (user_id, kind, revoked, occurred_at, payload)
VALUES ($1, $2, $3, COALESCE($4, now()), $5)
RETURNING id, occurred_at;
`
	qAuditByUser = `
SELECT id, user_id, kind, revoked, occurred_at, payload
FROM security_audit
WHERE user_id = $1
ORDER BY occurred_at DESC
LIMIT $2;
`
)

func (r *AuditRepo) Insert(ctx context.Context, rec *security.AuditRecord) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.Pool.QueryRow(ctx, qAuditInsert,
		rec.UserID,
		rec.Kind,
		rec.Revoked,
		nullTime(rec.OccurredAt),
		rec.Payload,
	).Scan(&rec.ID, &rec.OccurredAt); err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

func (r *AuditRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]*security.AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qAuditByUser, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	out := make([]*security.AuditRecord, 0, limit)
	for rows.Next() {
		var a security.AuditRecord
		if err := rows.Scan(&a.ID, &a.UserID, &a.Kind, &a.Revoked, &a.OccurredAt, &a.Payload); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
