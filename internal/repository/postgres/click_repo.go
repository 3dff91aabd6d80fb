package postgres

import (
	"context"
	"fmt"

	"github.com/NordCoder/Shortly/internal/domain/link"
)

var _ link.ClickRepo = (*ClickRepo)(nil)

type ClickRepo struct{ db *DB }

func NewClickRepo(db *DB) *ClickRepo { return &ClickRepo{db: db} }

const qClickInsert = `
INSERT INTO clicks (short_url, click_time, country_code)
VALUES ($1, COALESCE($2, now()), $3);`

func (r *ClickRepo) Record(ctx context.Context, c *link.Click) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Pool.Exec(ctx, qClickInsert, c.ShortURL, nullTime(c.ClickedAt), c.CountryCode); err != nil {
		return fmt.Errorf("insert click: %w", mapPgErr(err))
	}
	return nil
}
