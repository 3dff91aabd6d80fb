package httpx

import (
	"context"
	"net/http"

	"github.com/NordCoder/Shortly/internal/obs"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
)

type paramsKey struct{}

// Router registers plain handlers on the gateway mux and keeps per-route
// metrics labelled by pattern.
type Router struct {
	mux     *runtime.ServeMux
	metrics *obs.HTTPMetrics
}

func NewRouter(mux *runtime.ServeMux, metrics *obs.HTTPMetrics) *Router {
	return &Router{mux: mux, metrics: metrics}
}

func (rt *Router) Handle(method, pattern string, h http.Handler) error {
	if rt.metrics != nil {
		h = rt.metrics.Wrap(method+" "+pattern, h)
	}
	return rt.mux.HandlePath(method, pattern, func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		h.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), paramsKey{}, params)))
	})
}

func PathParam(r *http.Request, name string) string {
	params, _ := r.Context().Value(paramsKey{}).(map[string]string)
	return params[name]
}

// WithPathParams is used by tests that call handlers without a mux.
func WithPathParams(r *http.Request, params map[string]string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), paramsKey{}, params))
}
