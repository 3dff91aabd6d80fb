package link

import (
	"context"
	"net/http"
	"time"

	"github.com/NordCoder/Shortly/internal/domain/link"
	"github.com/NordCoder/Shortly/internal/services/api-gateway/auth"
	"github.com/NordCoder/Shortly/internal/services/api-gateway/httpx"
	"go.uber.org/zap"
)

const clickTimeout = 2 * time.Second

type updateRequest struct {
	OriginalURL string `json:"original_url"`
}

type Controller struct {
	log  *zap.Logger
	uc   *Usecase
	geo  GeoResolver
	auth *auth.Middleware
}

func NewController(log *zap.Logger, uc *Usecase, geo GeoResolver, mw *auth.Middleware) *Controller {
	return &Controller{log: log.With(zap.String("component", "link.http")), uc: uc, geo: geo, auth: mw}
}

func (c *Controller) Mount(rt *httpx.Router) error {
	routes := []struct {
		method, path string
		h            http.Handler
	}{
		{http.MethodPost, "/api/links", c.auth.Require(http.HandlerFunc(c.Shorten))},
		{http.MethodGet, "/api/links", c.auth.Require(http.HandlerFunc(c.List))},
		{http.MethodGet, "/api/links/{short_url}/stats", c.auth.Require(http.HandlerFunc(c.Stats))},
		{http.MethodPatch, "/api/links/{short_url}", c.auth.Require(http.HandlerFunc(c.Update))},
		{http.MethodDelete, "/api/links/{short_url}", c.auth.Require(http.HandlerFunc(c.Delete))},
		{http.MethodGet, "/{short_url}", http.HandlerFunc(c.Redirect)},
	}
	for _, r := range routes {
		if err := rt.Handle(r.method, r.path, r.h); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) Shorten(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromCtx(r.Context())

	var in ShortenInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteErr(w, c.log, err)
		return
	}
	l, err := c.uc.Shorten(r.Context(), uid, in)
	if err != nil {
		httpx.WriteErr(w, c.log, err)
		return
	}
	httpx.WriteJSON(w, c.log, http.StatusCreated, map[string]string{"short_url": l.ShortURL})
}

func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromCtx(r.Context())
	links, err := c.uc.List(r.Context(), uid)
	if err != nil {
		httpx.WriteErr(w, c.log, err)
		return
	}
	if links == nil {
		links = []*link.Link{}
	}
	httpx.WriteJSON(w, c.log, http.StatusOK, links)
}

func (c *Controller) Stats(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromCtx(r.Context())
	stats, err := c.uc.StatsByCountry(r.Context(), uid, httpx.PathParam(r, "short_url"))
	if err != nil {
		httpx.WriteErr(w, c.log, err)
		return
	}
	httpx.WriteJSON(w, c.log, http.StatusOK, stats)
}

func (c *Controller) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromCtx(r.Context())

	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteErr(w, c.log, err)
		return
	}
	if err := c.uc.Update(r.Context(), uid, httpx.PathParam(r, "short_url"), req.OriginalURL); err != nil {
		httpx.WriteErr(w, c.log, err)
		return
	}
	httpx.WriteJSON(w, c.log, http.StatusOK, map[string]string{"message": "URL updated successfully"})
}

func (c *Controller) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromCtx(r.Context())
	if err := c.uc.Delete(r.Context(), uid, httpx.PathParam(r, "short_url")); err != nil {
		httpx.WriteErr(w, c.log, err)
		return
	}
	httpx.WriteJSON(w, c.log, http.StatusOK, map[string]string{"message": "Short URL deleted successfully"})
}

// Redirect answers first and records the click afterwards.
func (c *Controller) Redirect(w http.ResponseWriter, r *http.Request) {
	short := httpx.PathParam(r, "short_url")
	dst, err := c.uc.Resolve(r.Context(), short)
	if err != nil {
		httpx.WriteErr(w, c.log, err)
		return
	}
	http.Redirect(w, r, dst, http.StatusFound)
	// push the 302 to the client before the click insert runs
	if err := http.NewResponseController(w).Flush(); err != nil {
		c.log.Debug("flush redirect", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), clickTimeout)
	defer cancel()
	c.uc.RecordClick(ctx, short, c.geo.CountryCode(r))
}
