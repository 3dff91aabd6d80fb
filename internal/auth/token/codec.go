package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultAccessTTL = 15 * time.Minute
	DefaultLeeway    = 15 * time.Second
	minSecretLen     = 32
)

type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	// Leeway is the clock skew tolerated on exp and iat. Zero means none;
	// callers wanting the usual tolerance pass DefaultLeeway.
	Leeway time.Duration
	Now    func() time.Time
}

// Codec signs and verifies access and refresh JWTs. Each token class has its
// own HMAC key; a token of one class never verifies as the other.
type Codec struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	leeway     time.Duration
	now        func() time.Time
}

func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) < minSecretLen || len(cfg.RefreshSecret) < minSecretLen {
		return nil, ErrWeakSecret
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, ErrSameSecret
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.Leeway < 0 {
		return nil, ErrNegativeLeeway
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Codec{
		accessKey:  append([]byte(nil), cfg.AccessSecret...),
		refreshKey: append([]byte(nil), cfg.RefreshSecret...),
		accessTTL:  cfg.AccessTTL,
		leeway:     cfg.Leeway,
		now:        cfg.Now,
	}, nil
}

func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

func (c *Codec) SignAccess(userID int64) (string, time.Time, error) {
	now := c.now()
	exp := now.Add(c.accessTTL).Truncate(time.Second)
	raw, err := sign(c.accessKey, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access: %w", err)
	}
	return raw, exp, nil
}

// SignRefresh takes the expiry from the caller so the signed claim and the
// persisted session row are derived from one value.
func (c *Codec) SignRefresh(userID int64, jti string, expiresAt time.Time) (string, error) {
	if jti == "" {
		return "", errors.New("sign refresh: empty jti")
	}
	raw, err := sign(c.refreshKey, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(c.now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	if err != nil {
		return "", fmt.Errorf("sign refresh: %w", err)
	}
	return raw, nil
}

func (c *Codec) VerifyAccess(raw string) Verification {
	return c.verify(raw, c.accessKey, false, false)
}

type VerifyOption func(*verifyOpts)

type verifyOpts struct {
	ignoreExpiration bool
}

// IgnoreExpiration keeps the signature check but accepts tokens past exp.
// Used when consuming or revoking a session, never when granting access.
func IgnoreExpiration() VerifyOption {
	return func(o *verifyOpts) { o.ignoreExpiration = true }
}

func (c *Codec) VerifyRefresh(raw string, opts ...VerifyOption) Verification {
	var o verifyOpts
	for _, fn := range opts {
		fn(&o)
	}
	return c.verify(raw, c.refreshKey, true, o.ignoreExpiration)
}

func (c *Codec) verify(raw string, key []byte, needJTI, ignoreExp bool) Verification {
	if raw == "" {
		return invalid()
	}

	popts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(c.leeway),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	}
	if ignoreExp {
		popts = append(popts, jwt.WithoutClaimsValidation())
	}

	var rc jwt.RegisteredClaims
	_, err := jwt.NewParser(popts...).ParseWithClaims(raw, &rc, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil {
		// signature is checked before claims, so an expired result implies
		// the token is authentic
		if errors.Is(err, jwt.ErrTokenExpired) {
			return expired()
		}
		return invalid()
	}

	userID, err := strconv.ParseInt(rc.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return invalid()
	}
	if needJTI && rc.ID == "" {
		return invalid()
	}
	if rc.ExpiresAt == nil {
		return invalid()
	}

	cl := Claims{
		UserID:    userID,
		JTI:       rc.ID,
		ExpiresAt: rc.ExpiresAt.Time.UTC(),
	}
	if rc.IssuedAt != nil {
		cl.IssuedAt = rc.IssuedAt.Time.UTC()
	}
	return Verification{Status: StatusValid, Claims: cl}
}

func sign(key []byte, claims jwt.RegisteredClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}
