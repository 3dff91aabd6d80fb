package link

import (
	"context"
	"time"
)

type Repo interface {
	Create(ctx context.Context, l *Link) error
	GetByShort(ctx context.Context, short string) (*Link, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*Link, error)
	UpdateOriginal(ctx context.Context, ownerID int64, short, originalURL string) error
	Delete(ctx context.Context, ownerID int64, short string) error
	// StatsByCountry returns ErrNotFound when the link does not exist or is
	// owned by someone else.
	StatsByCountry(ctx context.Context, ownerID int64, short string) ([]CountryStat, error)
}

type ClickRepo interface {
	Record(ctx context.Context, c *Click) error
}

type Cache interface {
	Get(ctx context.Context, short string) (string, bool, error)
	Set(ctx context.Context, short, originalURL string, ttl time.Duration) error
	Delete(ctx context.Context, short string) error
}
