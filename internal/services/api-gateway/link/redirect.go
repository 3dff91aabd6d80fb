package link

import (
	"context"

	"github.com/NordCoder/Shortly/internal/domain/link"
	"github.com/NordCoder/Shortly/internal/obs"
	"github.com/NordCoder/Shortly/internal/validate"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Resolve returns the destination of short. The cache is tried first and
// only ever holds links that are not yet expired.
func (u *Usecase) Resolve(ctx context.Context, short string) (string, error) {
	ctx, span := otel.Tracer("link.redirect").Start(ctx, "link.Resolve")
	defer span.End()

	if !validate.ShortCode(short) {
		return "", link.ErrNotFound
	}

	if u.cache != nil {
		dst, ok, err := u.cache.Get(ctx, short)
		switch {
		case err != nil:
			obs.WithTrace(ctx, u.log).Warn("cache get", zap.String("short_url", short), zap.Error(err))
		case ok:
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return dst, nil
		}
	}

	l, err := u.links.GetByShort(ctx, short)
	if err != nil {
		return "", notFound(err)
	}
	now := u.now()
	if l.Expired(now) {
		return "", link.ErrNotFound
	}

	if u.cache != nil {
		ttl := min(u.cacheTTL, l.ExpiresAt.Sub(now))
		if err := u.cache.Set(ctx, short, l.OriginalURL, ttl); err != nil {
			obs.WithTrace(ctx, u.log).Warn("cache set", zap.String("short_url", short), zap.Error(err))
		}
	}
	return l.OriginalURL, nil
}

// RecordClick stores one click; failures are only logged.
func (u *Usecase) RecordClick(ctx context.Context, short, country string) {
	if country == "" {
		country = link.UnknownCountry
	}
	err := u.clicks.Record(ctx, &link.Click{
		ShortURL:    short,
		ClickedAt:   u.now(),
		CountryCode: country,
	})
	if err != nil {
		obs.WithTrace(ctx, u.log).Warn("record click", zap.String("short_url", short), zap.Error(err))
	}
}
