package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/NordCoder/Shortly/internal/auth/token"
	domainauth "github.com/NordCoder/Shortly/internal/domain/auth"
	"github.com/jackc/pgx/v5"
)

const (
	DefaultRefreshTTL = 7 * 24 * time.Hour
	jtiBytes          = 32
)

type TokenConfig struct {
	RefreshTTL time.Duration
	Now        func() time.Time
	// NewJTI overrides session id generation in tests.
	NewJTI func() (string, error)
}

// TokenService issues, verifies and revokes token pairs. A refresh token is
// only redeemable while its session row exists.
type TokenService struct {
	codec      *token.Codec
	sessions   domainauth.SessionStore
	refreshTTL time.Duration
	now        func() time.Time
	newJTI     func() (string, error)
}

func NewTokenService(codec *token.Codec, sessions domainauth.SessionStore, cfg TokenConfig) *TokenService {
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.NewJTI == nil {
		cfg.NewJTI = randomJTI
	}
	return &TokenService{
		codec:      codec,
		sessions:   sessions,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
		newJTI:     cfg.NewJTI,
	}
}

func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }
func (s *TokenService) AccessTTL() time.Duration  { return s.codec.AccessTTL() }

func (s *TokenService) CreateAccessToken(userID int64) (string, time.Time, error) {
	return s.codec.SignAccess(userID)
}

// CreateRefreshToken persists the session inside tx and returns the signed
// token. The signed exp and the stored expires_at come from one value.
func (s *TokenService) CreateRefreshToken(ctx context.Context, tx pgx.Tx, userID int64) (string, time.Time, error) {
	jti, err := s.newJTI()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate jti: %w", err)
	}
	expiresAt := s.now().Add(s.refreshTTL).Truncate(time.Second)

	raw, err := s.codec.SignRefresh(userID, jti, expiresAt)
	if err != nil {
		return "", time.Time{}, err
	}
	if err := s.sessions.Create(ctx, tx, &domainauth.Session{
		JTI:       jti,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}); err != nil {
		return "", time.Time{}, fmt.Errorf("store session: %w", err)
	}
	return raw, expiresAt, nil
}

func (s *TokenService) VerifyAccessToken(raw string) token.Verification {
	return s.codec.VerifyAccess(raw)
}

func (s *TokenService) VerifyRefreshToken(raw string) token.Verification {
	return s.codec.VerifyRefresh(raw)
}

// InspectRefreshToken checks authenticity only; an expired token is Valid.
func (s *TokenService) InspectRefreshToken(raw string) token.Verification {
	return s.codec.VerifyRefresh(raw, token.IgnoreExpiration())
}

// RevokeSpecificRefreshToken consumes the session behind raw. Expiry is
// ignored so a stale but authentic token still removes its row; a forged
// token reports false without touching the store.
func (s *TokenService) RevokeSpecificRefreshToken(ctx context.Context, tx pgx.Tx, raw string) (bool, error) {
	v := s.codec.VerifyRefresh(raw, token.IgnoreExpiration())
	if !v.Valid() {
		return false, nil
	}
	found, err := s.sessions.DeleteByJTI(ctx, tx, v.Claims.JTI)
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}
	return found, nil
}

func (s *TokenService) RevokeUserRefreshTokens(ctx context.Context, tx pgx.Tx, userID int64) (int64, error) {
	n, err := s.sessions.DeleteAllForUser(ctx, tx, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", err)
	}
	return n, nil
}

func randomJTI() (string, error) {
	b := make([]byte, jtiBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
