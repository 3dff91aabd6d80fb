package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultSuccess = "success"
	resultInvalid = "invalid"
	resultExpired = "expired"
	resultReuse   = "reuse"
	resultError   = "error"

	reasonRotation  = "rotation"
	reasonLogout    = "logout"
	reasonReuse     = "reuse"
	reasonLogoutAll = "logout_all"
)

type Metrics struct {
	login   *prometheus.CounterVec
	refresh *prometheus.CounterVec
	reuse   prometheus.Counter
	revoked *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		login: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_login_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		refresh: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_refresh_total",
			Help: "Refresh token rotations by result.",
		}, []string{"result"}),
		reuse: f.NewCounter(prometheus.CounterOpts{
			Name: "auth_reuse_detected_total",
			Help: "Refresh tokens presented after their session was gone.",
		}),
		revoked: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_sessions_revoked_total",
			Help: "Sessions deleted by reason.",
		}, []string{"reason"}),
	}
}
