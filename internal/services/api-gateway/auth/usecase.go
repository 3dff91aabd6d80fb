package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NordCoder/Shortly/internal/auth/password"
	"github.com/NordCoder/Shortly/internal/auth/token"
	domainauth "github.com/NordCoder/Shortly/internal/domain/auth"
	"github.com/NordCoder/Shortly/internal/domain/outbox"
	"github.com/NordCoder/Shortly/internal/domain/security"
	"github.com/NordCoder/Shortly/internal/domain/user"
	"github.com/NordCoder/Shortly/internal/obs"
	"github.com/NordCoder/Shortly/internal/repository/postgres"
	"github.com/NordCoder/Shortly/internal/validate"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type registerInput struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Password string `json:"password" validate:"required,max=72,password"`
}

type loginInput struct {
	Username string `json:"username" validate:"required,max=32"`
	Password string `json:"password" validate:"required,max=72"`
}

type Deps struct {
	Logger    *zap.Logger
	Tx        postgres.Transactor
	Users     user.Repo
	Sessions  domainauth.SessionStore
	Tokens    *TokenService
	Hasher    *password.Hasher
	Outbox    outbox.Repository
	Validator *validate.Validator
	Metrics   *Metrics
	Now       func() time.Time
}

// Usecase sequences the register, login, logout and refresh flows. Every
// session mutation of one request happens in a single transaction.
type Usecase struct {
	log      *zap.Logger
	tx       postgres.Transactor
	users    user.Repo
	sessions domainauth.SessionStore
	tokens   *TokenService
	hasher   *password.Hasher
	outbox   outbox.Repository
	validate *validate.Validator
	m        *Metrics
	now      func() time.Time
}

func NewUseCase(d Deps) *Usecase {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.Validator == nil {
		d.Validator = validate.New()
	}
	if d.Metrics == nil {
		d.Metrics = NewMetrics(prometheus.NewRegistry())
	}
	return &Usecase{
		log:      d.Logger.With(zap.String("component", "auth.usecase")),
		tx:       d.Tx,
		users:    d.Users,
		sessions: d.Sessions,
		tokens:   d.Tokens,
		hasher:   d.Hasher,
		outbox:   d.Outbox,
		validate: d.Validator,
		m:        d.Metrics,
		now:      d.Now,
	}
}

func (u *Usecase) Register(ctx context.Context, username, pw string) (*user.User, *domainauth.TokenPair, error) {
	ctx, span := otel.Tracer("auth.usecase").Start(ctx, "auth.Register")
	defer span.End()

	in := registerInput{Username: strings.TrimSpace(username), Password: pw}
	if err := u.validate.Struct(in); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", domainauth.ErrValidation, err)
	}

	hash, err := u.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return nil, nil, fmt.Errorf("%w: %s", domainauth.ErrValidation, err)
		}
		return nil, nil, err
	}

	nu := &user.User{Username: in.Username, PasswordHash: hash}
	var pair *domainauth.TokenPair
	err = u.tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := u.users.Create(ctx, tx, nu); err != nil {
			if errors.Is(err, postgres.ErrConflict) {
				return domainauth.ErrUsernameTaken
			}
			return err
		}
		var err error
		pair, err = u.issuePair(ctx, tx, nu.ID)
		return err
	})
	if err != nil {
		if !errors.Is(err, domainauth.ErrUsernameTaken) {
			span.RecordError(err)
			obs.WithTrace(ctx, u.log).Error("register failed", zap.Error(err))
		}
		return nil, nil, err
	}

	span.SetAttributes(attribute.Int64("user.id", nu.ID))
	return nu, pair, nil
}

func (u *Usecase) Login(ctx context.Context, username, pw string) (*user.User, *domainauth.TokenPair, error) {
	ctx, span := otel.Tracer("auth.usecase").Start(ctx, "auth.Login")
	defer span.End()

	in := loginInput{Username: strings.TrimSpace(username), Password: pw}
	if err := u.validate.Struct(in); err != nil {
		u.m.login.WithLabelValues(resultInvalid).Inc()
		return nil, nil, fmt.Errorf("%w: %s", domainauth.ErrValidation, err)
	}

	found, err := u.users.GetByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			u.hasher.Burn(in.Password)
			u.m.login.WithLabelValues(resultInvalid).Inc()
			return nil, nil, domainauth.ErrInvalidCredentials
		}
		u.m.login.WithLabelValues(resultError).Inc()
		return nil, nil, fmt.Errorf("load user: %w", err)
	}

	ok, err := u.hasher.Verify(in.Password, found.PasswordHash)
	if err != nil {
		obs.WithTrace(ctx, u.log).Error("stored password hash unusable",
			zap.Int64("user_id", found.ID), zap.Error(err))
	}
	if !ok {
		u.m.login.WithLabelValues(resultInvalid).Inc()
		return nil, nil, domainauth.ErrInvalidCredentials
	}

	var pair *domainauth.TokenPair
	err = u.tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		pair, err = u.issuePair(ctx, tx, found.ID)
		return err
	})
	if err != nil {
		u.m.login.WithLabelValues(resultError).Inc()
		span.RecordError(err)
		return nil, nil, err
	}

	u.m.login.WithLabelValues(resultSuccess).Inc()
	return found, pair, nil
}

// Logout is best effort and never fails from the caller's point of view.
func (u *Usecase) Logout(ctx context.Context, refreshRaw string) error {
	if refreshRaw == "" {
		return nil
	}
	if v := u.tokens.InspectRefreshToken(refreshRaw); !v.Valid() {
		return nil
	}

	err := u.tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		found, err := u.tokens.RevokeSpecificRefreshToken(ctx, tx, refreshRaw)
		if found {
			u.m.revoked.WithLabelValues(reasonLogout).Inc()
		}
		return err
	})
	if err != nil {
		obs.WithTrace(ctx, u.log).Warn("logout revocation failed", zap.Error(err))
	}
	return nil
}

// Refresh rotates a refresh token. A validly signed, unexpired token with no
// live session is treated as replay: every session of the user is revoked,
// the revocation commits, and the caller gets ErrReuseDetected.
func (u *Usecase) Refresh(ctx context.Context, refreshRaw string) (*domainauth.TokenPair, error) {
	ctx, span := otel.Tracer("auth.usecase").Start(ctx, "auth.Refresh")
	defer span.End()

	if refreshRaw == "" {
		u.m.refresh.WithLabelValues(resultInvalid).Inc()
		return nil, domainauth.ErrInvalidRefreshToken
	}

	v := u.tokens.VerifyRefreshToken(refreshRaw)
	switch v.Status {
	case token.StatusValid:
	case token.StatusExpired:
		u.m.refresh.WithLabelValues(resultExpired).Inc()
		return nil, domainauth.ErrInvalidRefreshToken
	default:
		u.m.refresh.WithLabelValues(resultInvalid).Inc()
		return nil, domainauth.ErrInvalidRefreshToken
	}
	userID := v.Claims.UserID

	var (
		pair    *domainauth.TokenPair
		reused  bool
		revoked int64
	)
	err := u.tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		found, err := u.tokens.RevokeSpecificRefreshToken(ctx, tx, refreshRaw)
		if err != nil {
			return err
		}
		if !found {
			reused = true
			revoked, err = u.tokens.RevokeUserRefreshTokens(ctx, tx, userID)
			if err != nil {
				return err
			}
			u.enqueueSecurityEvent(ctx, tx, outbox.KindReuseDetected, security.Event{
				Kind:       security.EventReuseDetected,
				UserID:     userID,
				Revoked:    revoked,
				OccurredAt: u.now(),
			})
			return nil
		}
		pair, err = u.issuePair(ctx, tx, userID)
		return err
	})
	if err != nil {
		u.m.refresh.WithLabelValues(resultError).Inc()
		span.RecordError(err)
		obs.WithTrace(ctx, u.log).Error("refresh failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}

	if reused {
		u.m.refresh.WithLabelValues(resultReuse).Inc()
		u.m.reuse.Inc()
		u.m.revoked.WithLabelValues(reasonReuse).Add(float64(revoked))
		span.SetAttributes(attribute.Bool("auth.reuse_detected", true))
		obs.WithTrace(ctx, u.log).Warn("refresh token reuse detected, all sessions revoked",
			zap.Int64("user_id", userID), zap.Int64("revoked", revoked))
		return nil, domainauth.ErrReuseDetected
	}

	u.m.refresh.WithLabelValues(resultSuccess).Inc()
	u.m.revoked.WithLabelValues(reasonRotation).Inc()
	return pair, nil
}

func (u *Usecase) LogoutAll(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := u.tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		n, err = u.tokens.RevokeUserRefreshTokens(ctx, tx, userID)
		if err != nil {
			return err
		}
		u.enqueueSecurityEvent(ctx, tx, outbox.KindRevokedAll, security.Event{
			Kind:       security.EventRevokedAll,
			UserID:     userID,
			Revoked:    n,
			OccurredAt: u.now(),
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	u.m.revoked.WithLabelValues(reasonLogoutAll).Add(float64(n))
	obs.WithTrace(ctx, u.log).Info("all sessions revoked by user", zap.Int64("user_id", userID), zap.Int64("revoked", n))
	return n, nil
}

// Authenticate checks an access token without touching the store.
func (u *Usecase) Authenticate(accessRaw string) (int64, token.Verification) {
	v := u.tokens.VerifyAccessToken(accessRaw)
	return v.Claims.UserID, v
}

func (u *Usecase) Me(ctx context.Context, userID int64) (*user.User, int64, error) {
	me, err := u.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return nil, 0, domainauth.ErrUnauthorized
		}
		return nil, 0, err
	}
	n, err := u.sessions.CountForUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return me, n, nil
}

func (u *Usecase) issuePair(ctx context.Context, tx pgx.Tx, userID int64) (*domainauth.TokenPair, error) {
	access, accessExp, err := u.tokens.CreateAccessToken(userID)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := u.tokens.CreateRefreshToken(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	return &domainauth.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// enqueueSecurityEvent writes under a savepoint so a broken outbox never
// undoes the revocation it reports on.
func (u *Usecase) enqueueSecurityEvent(ctx context.Context, tx pgx.Tx, kind outbox.Kind, ev security.Event) {
	if u.outbox == nil {
		return
	}
	log := obs.WithTrace(ctx, u.log).With(zap.String("kind", ev.Kind), zap.Int64("user_id", ev.UserID))

	data, err := json.Marshal(ev)
	if err != nil {
		log.Error("marshal security event", zap.Error(err))
		return
	}

	sp, err := tx.Begin(ctx)
	if err != nil {
		log.Error("outbox savepoint", zap.Error(err))
		return
	}
	if err := u.outbox.Enqueue(ctx, sp, uuid.NewString(), kind, data); err != nil {
		_ = sp.Rollback(ctx)
		log.Error("outbox enqueue", zap.Error(err))
		return
	}
	if err := sp.Commit(ctx); err != nil {
		log.Error("outbox savepoint release", zap.Error(err))
	}
}
