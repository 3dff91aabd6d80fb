//go:build integration

package integration

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sessionsOf = `
SELECT count(*) FROM refresh_sessions s JOIN users u ON u.id = s.user_id
WHERE u.username = $1`

type authBody struct {
	AccessToken string `json:"accessToken"`
	User        struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

func register(t *testing.T, base, username string) Resp {
	t.Helper()
	r := Do(t, http.MethodPost, base+"/api/auth/register", map[string]string{
		"username": username, "password": "Passw0rd!",
	})
	require.Equal(t, http.StatusCreated, r.Code, string(r.Body))
	return r
}

func login(t *testing.T, base, username string) Resp {
	t.Helper()
	r := Do(t, http.MethodPost, base+"/api/auth/login", map[string]string{
		"username": username, "password": "Passw0rd!",
	})
	require.Equal(t, http.StatusOK, r.Code, string(r.Body))
	return r
}

func TestAuth_RegisterLoginMe(t *testing.T) {
	cfg := LoadCfg()
	WaitHealthz(t, cfg.AGBaseURL+"/healthz", 60*time.Second)
	db := DBOpen(t, cfg.DBDSN)
	name := RandName("it_")

	reg := register(t, cfg.AGBaseURL, name)
	var body authBody
	reg.JSON(t, &body)
	assert.Equal(t, name, body.User.Username)
	require.NotNil(t, reg.Cookies["refreshToken"])
	assert.True(t, reg.Cookies["refreshToken"].HttpOnly)

	dup := Do(t, http.MethodPost, cfg.AGBaseURL+"/api/auth/register", map[string]string{
		"username": name, "password": "Passw0rd!",
	})
	assert.Equal(t, http.StatusConflict, dup.Code)

	lg := login(t, cfg.AGBaseURL, name)
	assert.Equal(t, 2, CountRows(t, db, sessionsOf, name))

	me := Do(t, http.MethodGet, cfg.AGBaseURL+"/api/auth/me", nil, lg.Cookies["accessToken"])
	require.Equal(t, http.StatusOK, me.Code, string(me.Body))
	assert.Contains(t, string(me.Body), `"sessions":2`)
}

func TestAuth_RotationAndReuse(t *testing.T) {
	cfg := LoadCfg()
	db := DBOpen(t, cfg.DBDSN)
	name := RandName("it_")

	t1 := register(t, cfg.AGBaseURL, name).Cookies["refreshToken"]

	rot := Do(t, http.MethodPost, cfg.AGBaseURL+"/api/auth/refresh", nil, t1)
	require.Equal(t, http.StatusOK, rot.Code, string(rot.Body))
	t2 := rot.Cookies["refreshToken"]
	require.NotNil(t, t2)
	assert.NotEqual(t, t1.Value, t2.Value)
	assert.Equal(t, 1, CountRows(t, db, sessionsOf, name))

	replay := Do(t, http.MethodPost, cfg.AGBaseURL+"/api/auth/refresh", nil, t1)
	assert.Equal(t, http.StatusForbidden, replay.Code)
	assert.Equal(t, 0, CountRows(t, db, sessionsOf, name))

	after := Do(t, http.MethodPost, cfg.AGBaseURL+"/api/auth/refresh", nil, t2)
	assert.Equal(t, http.StatusForbidden, after.Code)

	// the reuse reaches the audit trail through outbox, kafka and the auditor
	n := WaitRows(t, db, 1, 30*time.Second, `
SELECT count(*) FROM security_audit a JOIN users u ON u.id = a.user_id
WHERE u.username = $1 AND a.kind = 'session.reuse_detected'`, name)
	assert.GreaterOrEqual(t, n, 1)
}

func jtiOf(t *testing.T, raw string) string {
	t.Helper()
	var rc jwt.RegisteredClaims
	_, _, err := jwt.NewParser().ParseUnverified(raw, &rc)
	require.NoError(t, err)
	require.NotEmpty(t, rc.ID)
	return rc.ID
}

// Concurrent redemptions of one refresh token race on the row lock of
// DELETE ... WHERE jti = $1. Exactly one caller may win; every loser sees no
// row, takes the reuse branch and revokes the winner's new session too.
func TestAuth_ConcurrentRefreshRedeemsOnce(t *testing.T) {
	const callers = 8
	cfg := LoadCfg()
	db := DBOpen(t, cfg.DBDSN)
	name := RandName("it_")

	rt := register(t, cfg.AGBaseURL, name).Cookies["refreshToken"]
	require.NotNil(t, rt)
	jti := jtiOf(t, rt.Value)

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		codes = make([]int, callers)
		errs  = make([]error, callers)
	)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			r, err := Send(http.MethodPost, cfg.AGBaseURL+"/api/auth/refresh", nil, rt)
			codes[i], errs[i] = r.Code, err
		}()
	}
	close(start)
	wg.Wait()

	ok, forbidden := 0, 0
	for i := range callers {
		require.NoError(t, errs[i])
		switch codes[i] {
		case http.StatusOK:
			ok++
		case http.StatusForbidden:
			forbidden++
		default:
			t.Errorf("caller %d got %d", i, codes[i])
		}
	}
	assert.Equal(t, 1, ok, "codes: %v", codes)
	assert.Equal(t, callers-1, forbidden, "codes: %v", codes)

	assert.Equal(t, 0, CountRows(t, db, `SELECT count(*) FROM refresh_sessions WHERE jti = $1`, jti))
	assert.Equal(t, 0, CountRows(t, db, sessionsOf, name))
}

func TestAuth_LogoutIdempotent(t *testing.T) {
	cfg := LoadCfg()
	db := DBOpen(t, cfg.DBDSN)
	name := RandName("it_")

	rt := register(t, cfg.AGBaseURL, name).Cookies["refreshToken"]
	for i := 0; i < 2; i++ {
		r := Do(t, http.MethodPost, cfg.AGBaseURL+"/api/auth/logout", nil, rt)
		assert.Equal(t, http.StatusOK, r.Code)
	}
	assert.Equal(t, 0, CountRows(t, db, sessionsOf, name))
}

func TestLinks_ShortenRedirectStats(t *testing.T) {
	cfg := LoadCfg()
	db := DBOpen(t, cfg.DBDSN)
	name := RandName("it_")
	access := register(t, cfg.AGBaseURL, name).Cookies["accessToken"]
	code := RandName("c")

	created := Do(t, http.MethodPost, cfg.AGBaseURL+"/api/links", map[string]string{
		"original_url": "https://example.com/it", "short_url": code,
	}, access)
	require.Equal(t, http.StatusCreated, created.Code, string(created.Body))

	for i := 0; i < 2; i++ {
		r := Do(t, http.MethodGet, cfg.AGBaseURL+"/"+code, nil)
		require.Equal(t, http.StatusFound, r.Code)
		assert.Equal(t, "https://example.com/it", r.Header.Get("Location"))
	}
	assert.Equal(t, 2, WaitRows(t, db, 2, 5*time.Second, `SELECT count(*) FROM clicks WHERE short_url = $1`, code))

	stats := Do(t, http.MethodGet, cfg.AGBaseURL+"/api/links/"+code+"/stats", nil, access)
	require.Equal(t, http.StatusOK, stats.Code)
	assert.JSONEq(t, `[{"countryName":"Unknown","clicks":2}]`, string(stats.Body))

	del := Do(t, http.MethodDelete, cfg.AGBaseURL+"/api/links/"+code, nil, access)
	assert.Equal(t, http.StatusOK, del.Code)
	gone := Do(t, http.MethodGet, cfg.AGBaseURL+"/"+code, nil)
	assert.Equal(t, http.StatusNotFound, gone.Code)
}
