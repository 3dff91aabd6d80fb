package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/NordCoder/Shortly/internal/domain/link"
	"github.com/jackc/pgx/v5"
)

var _ link.Repo = (*LinkRepo)(nil)

type LinkRepo struct{ db *DB }

func NewLinkRepo(db *DB) *LinkRepo { return &LinkRepo{db: db} }

const (
	qLinkInsert = `
INSERT INTO urls (short_url, original_url, owner_id, alias, expires_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at;`

	qLinkByShort = `
SELECT short_url, original_url, owner_id, alias, created_at, expires_at
FROM urls
WHERE short_url = $1;`

	qLinkListByOwner = `
SELECT short_url, original_url, owner_id, alias, created_at, expires_at
FROM urls
WHERE owner_id = $1
ORDER BY created_at DESC;`

	qLinkUpdate = `
UPDATE urls
SET original_url = $3
WHERE short_url = $1 AND owner_id = $2;`

	qLinkDelete = `DELETE FROM urls WHERE short_url = $1 AND owner_id = $2;`

	qLinkOwned = `SELECT 1 FROM urls WHERE short_url = $1 AND owner_id = $2;`

	qLinkStats = `
SELECT country_code, count(*) AS clicks
FROM clicks
WHERE short_url = $1
GROUP BY country_code
ORDER BY clicks DESC, country_code;`
)

func (r *LinkRepo) Create(ctx context.Context, l *link.Link) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.Pool.QueryRow(ctx, qLinkInsert,
		l.ShortURL, l.OriginalURL, l.OwnerID, l.Alias, l.ExpiresAt,
	).Scan(&l.CreatedAt); err != nil {
		if mapped := mapPgErr(err); errors.Is(mapped, ErrConflict) {
			return ErrConflict
		}
		return fmt.Errorf("link insert: %w", err)
	}
	return nil
}

func (r *LinkRepo) GetByShort(ctx context.Context, short string) (*link.Link, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var l link.Link
	if err := scanLink(r.db.Pool.QueryRow(ctx, qLinkByShort, short), &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LinkRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*link.Link, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qLinkListByOwner, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	out := make([]*link.Link, 0)
	for rows.Next() {
		var l link.Link
		if err := scanLink(rows, &l); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *LinkRepo) UpdateOriginal(ctx context.Context, ownerID int64, short, originalURL string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qLinkUpdate, short, ownerID, originalURL)
	if err != nil {
		return fmt.Errorf("update link: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *LinkRepo) Delete(ctx context.Context, ownerID int64, short string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qLinkDelete, short, ownerID)
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *LinkRepo) StatsByCountry(ctx context.Context, ownerID int64, short string) ([]link.CountryStat, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var one int
	if err := r.db.Pool.QueryRow(ctx, qLinkOwned, short, ownerID).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("link ownership: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, qLinkStats, short)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	out := make([]link.CountryStat, 0)
	for rows.Next() {
		var s link.CountryStat
		if err := rows.Scan(&s.CountryCode, &s.Clicks); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func scanLink(row pgx.Row, l *link.Link) error {
	if err := row.Scan(&l.ShortURL, &l.OriginalURL, &l.OwnerID, &l.Alias, &l.CreatedAt, &l.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan link: %w", err)
	}
	return nil
}
