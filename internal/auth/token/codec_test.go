package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	accessSecret  = []byte("access-secret-access-secret-0123456789")
	refreshSecret = []byte("refresh-secret-refresh-secret-012345678")
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time      { return c.t }
func (c *clock) add(d time.Duration) { c.t = c.t.Add(d) }

func newTestCodec(t *testing.T) (*Codec, *clock) {
	t.Helper()
	clk := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	c, err := NewCodec(Config{
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
		Leeway:        DefaultLeeway,
		Now:           clk.now,
	})
	require.NoError(t, err)
	return c, clk
}

func TestNewCodec_Secrets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		access  []byte
		refresh []byte
		wantErr error
	}{
		{"missing access", nil, refreshSecret, ErrWeakSecret},
		{"short refresh", accessSecret, []byte("short"), ErrWeakSecret},
		{"same secret", accessSecret, accessSecret, ErrSameSecret},
		{"ok", accessSecret, refreshSecret, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCodec(Config{AccessSecret: tt.access, RefreshSecret: tt.refresh})
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCodec_AccessRoundTrip(t *testing.T) {
	t.Parallel()

	c, clk := newTestCodec(t)
	raw, exp, err := c.SignAccess(42)
	require.NoError(t, err)
	assert.Equal(t, clk.t.Add(15*time.Minute), exp)

	v := c.VerifyAccess(raw)
	require.True(t, v.Valid())
	assert.Equal(t, int64(42), v.Claims.UserID)
	assert.Empty(t, v.Claims.JTI)
	assert.Equal(t, exp, v.Claims.ExpiresAt)
}

func TestCodec_RefreshRoundTrip(t *testing.T) {
	t.Parallel()

	c, clk := newTestCodec(t)
	exp := clk.t.Add(7 * 24 * time.Hour)
	raw, err := c.SignRefresh(7, "abc123", exp)
	require.NoError(t, err)

	v := c.VerifyRefresh(raw)
	require.True(t, v.Valid())
	assert.Equal(t, int64(7), v.Claims.UserID)
	assert.Equal(t, "abc123", v.Claims.JTI)
	assert.Equal(t, exp, v.Claims.ExpiresAt)
}

func TestCodec_KeySeparation(t *testing.T) {
	t.Parallel()

	c, clk := newTestCodec(t)
	access, _, err := c.SignAccess(1)
	require.NoError(t, err)
	refresh, err := c.SignRefresh(1, "jti", clk.t.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, StatusInvalidSignature, c.VerifyRefresh(access).Status)
	assert.Equal(t, StatusInvalidSignature, c.VerifyAccess(refresh).Status)
}

func TestCodec_Expiry(t *testing.T) {
	t.Parallel()

	c, clk := newTestCodec(t)
	raw, _, err := c.SignAccess(1)
	require.NoError(t, err)

	clk.add(15*time.Minute + 10*time.Second)
	assert.True(t, c.VerifyAccess(raw).Valid(), "inside leeway")

	clk.add(10 * time.Second)
	v := c.VerifyAccess(raw)
	assert.Equal(t, StatusExpired, v.Status)
	assert.ErrorIs(t, v.Err(), ErrExpired)
	assert.Zero(t, v.Claims.UserID)
}

func TestCodec_ZeroLeeway(t *testing.T) {
	t.Parallel()

	clk := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	c, err := NewCodec(Config{AccessSecret: accessSecret, RefreshSecret: refreshSecret, Now: clk.now})
	require.NoError(t, err)

	raw, _, err := c.SignAccess(1)
	require.NoError(t, err)
	clk.add(15*time.Minute + time.Second)
	assert.Equal(t, StatusExpired, c.VerifyAccess(raw).Status)

	_, err = NewCodec(Config{AccessSecret: accessSecret, RefreshSecret: refreshSecret, Leeway: -time.Second})
	assert.ErrorIs(t, err, ErrNegativeLeeway)
}

func TestCodec_IgnoreExpiration(t *testing.T) {
	t.Parallel()

	c, clk := newTestCodec(t)
	raw, err := c.SignRefresh(9, "old", clk.t.Add(time.Minute))
	require.NoError(t, err)
	clk.add(time.Hour)

	assert.Equal(t, StatusExpired, c.VerifyRefresh(raw).Status)

	v := c.VerifyRefresh(raw, IgnoreExpiration())
	require.True(t, v.Valid())
	assert.Equal(t, "old", v.Claims.JTI)

	tampered := raw[:len(raw)-2] + flip(raw[len(raw)-2:])
	assert.Equal(t, StatusInvalidSignature, c.VerifyRefresh(tampered, IgnoreExpiration()).Status)
}

func TestCodec_Rejects(t *testing.T) {
	t.Parallel()

	c, clk := newTestCodec(t)
	good, err := c.SignRefresh(3, "j", clk.t.Add(time.Hour))
	require.NoError(t, err)
	parts := strings.Split(good, ".")
	require.Len(t, parts, 3)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "3",
		ID:        "j",
		ExpiresAt: jwt.NewNumericDate(clk.t.Add(time.Hour)),
	}).SignedString([]byte("some-other-secret-some-other-secret-0000"))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "3",
		ID:        "j",
		ExpiresAt: jwt.NewNumericDate(clk.t.Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "3",
		ID:        "j",
		ExpiresAt: jwt.NewNumericDate(clk.t.Add(time.Hour)),
	}).SignedString(refreshSecret)
	require.NoError(t, err)

	noJTI, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "3",
		ExpiresAt: jwt.NewNumericDate(clk.t.Add(time.Hour)),
	}).SignedString(refreshSecret)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "3",
		ID:      "j",
	}).SignedString(refreshSecret)
	require.NoError(t, err)

	badSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ID:        "j",
		ExpiresAt: jwt.NewNumericDate(clk.t.Add(time.Hour)),
	}).SignedString(refreshSecret)
	require.NoError(t, err)

	cases := map[string]string{
		"empty":           "",
		"garbage":         "not.a.jwt",
		"altered body":    parts[0] + "." + parts[1] + "x." + parts[2],
		"foreign key":     forged,
		"alg none":        none,
		"other hmac":      hs512,
		"missing jti":     noJTI,
		"missing exp":     noExp,
		"non-numeric sub": badSub,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			v := c.VerifyRefresh(raw)
			assert.Equal(t, StatusInvalidSignature, v.Status)
			assert.ErrorIs(t, v.Err(), ErrInvalidSignature)
		})
	}
}

func flip(s string) string {
	if s[0] == 'A' {
		return "B" + s[1:]
	}
	return "A" + s[1:]
}
