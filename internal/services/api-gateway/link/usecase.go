package link

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domainauth "github.com/NordCoder/Shortly/internal/domain/auth"
	"github.com/NordCoder/Shortly/internal/domain/link"
	"github.com/NordCoder/Shortly/internal/repository/postgres"
	"github.com/NordCoder/Shortly/internal/validate"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const (
	codeLength       = 7
	generateAttempts = 5
	DefaultLifetime  = 365 * 24 * time.Hour
	DefaultCacheTTL  = time.Hour
	unknownName      = "Unknown"
)

type ShortenInput struct {
	OriginalURL string     `json:"original_url" validate:"required,http_url,max=2048"`
	ShortURL    string     `json:"short_url" validate:"omitempty,shortcode"`
	Alias       *string    `json:"alias" validate:"omitempty,max=64"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

type updateInput struct {
	ShortURL    string `json:"short_url" validate:"required,shortcode"`
	OriginalURL string `json:"original_url" validate:"required,http_url,max=2048"`
}

type Config struct {
	CacheTTL time.Duration
	Now      func() time.Time
	NewCode  func() (string, error)
}

type Usecase struct {
	log      *zap.Logger
	links    link.Repo
	clicks   link.ClickRepo
	cache    link.Cache
	validate *validate.Validator
	cacheTTL time.Duration
	now      func() time.Time
	newCode  func() (string, error)
}

func NewUsecase(log *zap.Logger, links link.Repo, clicks link.ClickRepo, cache link.Cache, v *validate.Validator, cfg Config) *Usecase {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.NewCode == nil {
		cfg.NewCode = func() (string, error) { return gonanoid.New(codeLength) }
	}
	if v == nil {
		v = validate.New()
	}
	return &Usecase{
		log:      log.With(zap.String("component", "link.usecase")),
		links:    links,
		clicks:   clicks,
		cache:    cache,
		validate: v,
		cacheTTL: cfg.CacheTTL,
		now:      cfg.Now,
		newCode:  cfg.NewCode,
	}
}

// Shorten stores a link under the requested code or a generated one. The
// unique key on short_url decides collisions; only generated codes retry.
func (u *Usecase) Shorten(ctx context.Context, ownerID int64, in ShortenInput) (*link.Link, error) {
	in.OriginalURL = strings.TrimSpace(in.OriginalURL)
	if err := u.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", domainauth.ErrValidation, err)
	}

	now := u.now()
	expiresAt := now.Add(DefaultLifetime)
	if in.ExpiresAt != nil {
		if !in.ExpiresAt.After(now) {
			return nil, fmt.Errorf("%w: expires_at must be in the future", domainauth.ErrValidation)
		}
		expiresAt = in.ExpiresAt.UTC()
	}

	l := &link.Link{
		ShortURL:    in.ShortURL,
		OriginalURL: in.OriginalURL,
		OwnerID:     ownerID,
		Alias:       in.Alias,
		ExpiresAt:   expiresAt,
	}

	if in.ShortURL != "" {
		if err := u.links.Create(ctx, l); err != nil {
			if errors.Is(err, postgres.ErrConflict) {
				return nil, link.ErrShortURLTaken
			}
			return nil, err
		}
		return l, nil
	}

	for attempt := 1; attempt <= generateAttempts; attempt++ {
		code, err := u.newCode()
		if err != nil {
			return nil, fmt.Errorf("generate short url: %w", err)
		}
		l.ShortURL = code

		err = u.links.Create(ctx, l)
		if err == nil {
			return l, nil
		}
		if !errors.Is(err, postgres.ErrConflict) {
			return nil, err
		}
		u.log.Debug("generated short url collided", zap.Int("attempt", attempt))
	}
	return nil, fmt.Errorf("no free short url after %d attempts", generateAttempts)
}

func (u *Usecase) List(ctx context.Context, ownerID int64) ([]*link.Link, error) {
	return u.links.ListByOwner(ctx, ownerID)
}

func (u *Usecase) Update(ctx context.Context, ownerID int64, short, originalURL string) error {
	in := updateInput{ShortURL: short, OriginalURL: strings.TrimSpace(originalURL)}
	if err := u.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %s", domainauth.ErrValidation, err)
	}
	if err := u.links.UpdateOriginal(ctx, ownerID, in.ShortURL, in.OriginalURL); err != nil {
		return notFound(err)
	}
	u.invalidate(ctx, short)
	return nil
}

func (u *Usecase) Delete(ctx context.Context, ownerID int64, short string) error {
	if !validate.ShortCode(short) {
		return link.ErrNotFound
	}
	if err := u.links.Delete(ctx, ownerID, short); err != nil {
		return notFound(err)
	}
	u.invalidate(ctx, short)
	return nil
}

func (u *Usecase) StatsByCountry(ctx context.Context, ownerID int64, short string) ([]link.CountryStat, error) {
	if !validate.ShortCode(short) {
		return nil, link.ErrNotFound
	}
	stats, err := u.links.StatsByCountry(ctx, ownerID, short)
	if err != nil {
		return nil, notFound(err)
	}
	for i := range stats {
		stats[i].CountryName = CountryName(stats[i].CountryCode)
	}
	return stats, nil
}

// CountryName resolves an ISO 3166-1 alpha-2 code to its English name.
func CountryName(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || code == link.UnknownCountry {
		return unknownName
	}
	region, err := language.ParseRegion(code)
	if err != nil || !region.IsCountry() {
		return unknownName
	}
	if name := display.English.Regions().Name(region); name != "" {
		return name
	}
	return unknownName
}

func (u *Usecase) invalidate(ctx context.Context, short string) {
	if u.cache == nil {
		return
	}
	if err := u.cache.Delete(ctx, short); err != nil {
		u.log.Warn("cache invalidate", zap.String("short_url", short), zap.Error(err))
	}
}

func notFound(err error) error {
	if errors.Is(err, postgres.ErrNotFound) {
		return link.ErrNotFound
	}
	return err
}
