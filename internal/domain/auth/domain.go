package auth

import "time"

// Session is one issued, not yet consumed refresh token. The row exists
// exactly as long as the token may be redeemed.
type Session struct {
	JTI       string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
