package link

import (
	"net/http"
	"strings"

	"github.com/NordCoder/Shortly/internal/domain/link"
)

type GeoResolver interface {
	CountryCode(r *http.Request) string
}

// HeaderGeo trusts the country header set by the edge proxy.
type HeaderGeo struct {
	Headers []string
}

func NewHeaderGeo() HeaderGeo {
	return HeaderGeo{Headers: []string{"CF-IPCountry", "X-Country-Code"}}
}

func (g HeaderGeo) CountryCode(r *http.Request) string {
	for _, h := range g.Headers {
		v := strings.ToUpper(strings.TrimSpace(r.Header.Get(h)))
		if len(v) == 2 && isAlpha(v) && v != "XX" {
			return v
		}
	}
	return link.UnknownCountry
}

func isAlpha(s string) bool {
	for _, c := range s {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}
