package auth

import (
	"net/http"
	"strings"
	"time"

	domainauth "github.com/NordCoder/Shortly/internal/domain/auth"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

type CookieConfig struct {
	Domain string
	Secure bool
}

// Cookies writes both tokens as script-inaccessible, same-site-only cookies
// whose lifetimes follow the token TTLs.
type Cookies struct {
	domain     string
	secure     bool
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewCookies(cfg CookieConfig, accessTTL, refreshTTL time.Duration) *Cookies {
	return &Cookies{
		domain:     cfg.Domain,
		secure:     cfg.Secure,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (c *Cookies) Set(w http.ResponseWriter, pair *domainauth.TokenPair) {
	http.SetCookie(w, c.cookie(AccessCookie, pair.AccessToken, int(c.accessTTL.Seconds())))
	http.SetCookie(w, c.cookie(RefreshCookie, pair.RefreshToken, int(c.refreshTTL.Seconds())))
}

func (c *Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(AccessCookie, "", -1))
	http.SetCookie(w, c.cookie(RefreshCookie, "", -1))
}

func (c *Cookies) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func readCookie(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}

// accessFromRequest prefers the cookie and falls back to a bearer header.
func accessFromRequest(r *http.Request) string {
	if v := readCookie(r, AccessCookie); v != "" {
		return v
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func refreshFromRequest(r *http.Request) string {
	if v := readCookie(r, RefreshCookie); v != "" {
		return v
	}
	return r.Header.Get("X-Refresh-Token")
}
