package security

import "context"

type AuditRepo interface {
	Insert(ctx context.Context, r *AuditRecord) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]*AuditRecord, error)
}
