package auth

import (
	"net/http"
	"time"

	"github.com/NordCoder/Shortly/internal/domain/user"
	"github.com/NordCoder/Shortly/internal/services/api-gateway/httpx"
	"go.uber.org/zap"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

type authResponse struct {
	AccessToken string       `json:"accessToken"`
	User        userResponse `json:"user"`
}

type Controller struct {
	log     *zap.Logger
	uc      *Usecase
	cookies *Cookies
	mw      *Middleware
}

func NewController(log *zap.Logger, uc *Usecase, cookies *Cookies) *Controller {
	log = log.With(zap.String("component", "auth.http"))
	return &Controller{
		log:     log,
		uc:      uc,
		cookies: cookies,
		mw:      NewMiddleware(log, uc, cookies),
	}
}

func (c *Controller) Middleware() *Middleware { return c.mw }

func (c *Controller) Mount(rt *httpx.Router) error {
	routes := []struct {
		method, path string
		h            http.Handler
	}{
		{http.MethodPost, "/api/auth/register", http.HandlerFunc(c.Register)},
		{http.MethodPost, "/api/auth/login", http.HandlerFunc(c.Login)},
		{http.MethodPost, "/api/auth/logout", http.HandlerFunc(c.Logout)},
		{http.MethodPost, "/api/auth/refresh", http.HandlerFunc(c.Refresh)},
		{http.MethodPost, "/api/auth/logout-all", c.mw.Require(http.HandlerFunc(c.LogoutAll))},
		{http.MethodGet, "/api/auth/me", c.mw.Require(http.HandlerFunc(c.Me))},
	}
	for _, r := range routes {
		if err := rt.Handle(r.method, r.path, r.h); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteErr(w, c.log, err)
		return
	}

	u, pair, err := c.uc.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		httpx.WriteErr(w, c.log, err)
		return
	}
	c.log.Info("user registered", zap.Int64("user_id", u.ID))

	c.cookies.Set(w, pair)
	httpx.WriteJSON(w, c.log, http.StatusCreated, authResponse{AccessToken: pair.AccessToken, User: toUserResponse(u)})
}

func (c *Controller) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteErr(w, c.log, err)
		return
	}

	u, pair, err := c.uc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		httpx.WriteErr(w, c.log, err)
		return
	}

	c.cookies.Set(w, pair)
	httpx.WriteJSON(w, c.log, http.StatusOK, authResponse{AccessToken: pair.AccessToken, User: toUserResponse(u)})
}

// Logout clears the browser state first; revocation is best effort.
func (c *Controller) Logout(w http.ResponseWriter, r *http.Request) {
	raw := refreshFromRequest(r)
	c.cookies.Clear(w)
	_ = c.uc.Logout(r.Context(), raw)
	httpx.WriteJSON(w, c.log, http.StatusOK, map[string]string{"message": "logged out"})
}

func (c *Controller) Refresh(w http.ResponseWriter, r *http.Request) {
	pair, err := c.uc.Refresh(r.Context(), refreshFromRequest(r))
	if err != nil {
		c.cookies.Clear(w)
		httpx.WriteErr(w, c.log, err)
		return
	}

	c.cookies.Set(w, pair)
	httpx.WriteJSON(w, c.log, http.StatusOK, map[string]string{"accessToken": pair.AccessToken})
}

func (c *Controller) LogoutAll(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	n, err := c.uc.LogoutAll(r.Context(), uid)
	if err != nil {
		httpx.WriteErr(w, c.log, err)
		return
	}
	c.cookies.Clear(w)
	httpx.WriteJSON(w, c.log, http.StatusOK, map[string]int64{"revoked": n})
}

func (c *Controller) Me(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	u, sessions, err := c.uc.Me(r.Context(), uid)
	if err != nil {
		httpx.WriteErr(w, c.log, err)
		return
	}
	httpx.WriteJSON(w, c.log, http.StatusOK, struct {
		User     userResponse `json:"user"`
		Sessions int64        `json:"sessions"`
	}{User: toUserResponse(u), Sessions: sessions})
}

func toUserResponse(u *user.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt}
}
