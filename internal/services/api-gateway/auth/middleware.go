package auth

import (
	"context"
	"net/http"

	"github.com/NordCoder/Shortly/internal/auth/token"
	"github.com/NordCoder/Shortly/internal/obs"
	"github.com/NordCoder/Shortly/internal/services/api-gateway/httpx"
	"go.uber.org/zap"
)

type ctxKey int

const userIDKey ctxKey = 1

func UserIDFromCtx(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// Middleware guards protected routes. A missing or expired access token is
// renewed from the refresh cookie through the normal rotation flow.
type Middleware struct {
	log     *zap.Logger
	uc      *Usecase
	cookies *Cookies
}

func NewMiddleware(log *zap.Logger, uc *Usecase, cookies *Cookies) *Middleware {
	return &Middleware{log: log.With(zap.String("component", "auth.middleware")), uc: uc, cookies: cookies}
}

func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := accessFromRequest(r); raw != "" {
			uid, v := m.uc.Authenticate(raw)
			switch v.Status {
			case token.StatusValid:
				next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
				return
			case token.StatusExpired:
			default:
				m.unauthorized(w)
				return
			}
		}

		refresh := refreshFromRequest(r)
		if refresh == "" {
			m.unauthorized(w)
			return
		}

		pair, err := m.uc.Refresh(r.Context(), refresh)
		if err != nil {
			obs.WithTrace(r.Context(), m.log).Debug("silent refresh rejected", zap.Error(err))
			m.cookies.Clear(w)
			m.unauthorized(w)
			return
		}
		m.cookies.Set(w, pair)

		uid, v := m.uc.Authenticate(pair.AccessToken)
		if !v.Valid() {
			m.unauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
	})
}

func (m *Middleware) unauthorized(w http.ResponseWriter) {
	httpx.WriteError(w, m.log, http.StatusUnauthorized, httpx.CodeUnauthorized, "authentication required")
}
