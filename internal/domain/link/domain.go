package link

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("short url not found")
	ErrShortURLTaken = errors.New("short url already exists")
)

const UnknownCountry = "UN"

type Link struct {
	ShortURL    string    `json:"short_url"`
	OriginalURL string    `json:"original_url"`
	OwnerID     int64     `json:"-"`
	Alias       *string   `json:"alias"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (l *Link) Expired(now time.Time) bool { return !now.Before(l.ExpiresAt) }

type Click struct {
	ShortURL    string
	ClickedAt   time.Time
	CountryCode string
}

type CountryStat struct {
	CountryCode string `json:"-"`
	CountryName string `json:"countryName"`
	Clicks      int64  `json:"clicks"`
}
