package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/NordCoder/Shortly/internal/services/api-gateway/httpx"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type httpHarness struct {
	*harness
	handler http.Handler
}

func newHTTPHarness(t *testing.T) *httpHarness {
	t.Helper()
	h := newHarness(t)
	cookies := NewCookies(CookieConfig{Secure: true}, h.tokens.AccessTTL(), h.tokens.RefreshTTL())
	ctrl := NewController(zap.NewNop(), h.uc, cookies)

	mux := runtime.NewServeMux()
	require.NoError(t, ctrl.Mount(httpx.NewRouter(mux, nil)))
	return &httpHarness{harness: h, handler: mux}
}

func (h *httpHarness) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func errCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

const aliceJSON = `{"username":"alice","password":"Passw0rd!"}`

func TestController_RegisterSetsCookies(t *testing.T) {
	h := newHTTPHarness(t)

	rec := h.do(t, http.MethodPost, "/api/auth/register", aliceJSON)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alice", body.User.Username)
	assert.NotEmpty(t, body.AccessToken)

	access := cookieByName(rec, AccessCookie)
	require.NotNil(t, access)
	assert.True(t, access.HttpOnly)
	assert.True(t, access.Secure)
	assert.Equal(t, http.SameSiteStrictMode, access.SameSite)
	assert.Equal(t, int((15 * time.Minute).Seconds()), access.MaxAge)
	assert.Equal(t, "/", access.Path)

	refresh := cookieByName(rec, RefreshCookie)
	require.NotNil(t, refresh)
	assert.Equal(t, int((7 * 24 * time.Hour).Seconds()), refresh.MaxAge)

	rec = h.do(t, http.MethodPost, "/api/auth/register", aliceJSON)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, httpx.CodeConflict, errCode(t, rec))
}

func TestController_BadInput(t *testing.T) {
	h := newHTTPHarness(t)

	rec := h.do(t, http.MethodPost, "/api/auth/register", `{"username":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httpx.CodeValidation, errCode(t, rec))

	rec = h.do(t, http.MethodPost, "/api/auth/register", `{"username":"alice","password":"weak"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestController_LoginGenericFailure(t *testing.T) {
	h := newHTTPHarness(t)
	h.do(t, http.MethodPost, "/api/auth/register", aliceJSON)

	wrongPwd := h.do(t, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"Wrong0pass!"}`)
	noUser := h.do(t, http.MethodPost, "/api/auth/login", `{"username":"mallory","password":"Passw0rd!"}`)

	assert.Equal(t, http.StatusUnauthorized, wrongPwd.Code)
	assert.Equal(t, wrongPwd.Body.String(), noUser.Body.String())
}

func TestController_RefreshRotatesAndReuseIsForbidden(t *testing.T) {
	h := newHTTPHarness(t)
	reg := h.do(t, http.MethodPost, "/api/auth/register", aliceJSON)
	t1 := cookieByName(reg, RefreshCookie)

	rec := h.do(t, http.MethodPost, "/api/auth/refresh", "", t1)
	require.Equal(t, http.StatusOK, rec.Code)
	t2 := cookieByName(rec, RefreshCookie)
	require.NotNil(t, t2)
	assert.NotEqual(t, t1.Value, t2.Value)

	replay := h.do(t, http.MethodPost, "/api/auth/refresh", "", t1)
	assert.Equal(t, http.StatusForbidden, replay.Code)
	assert.Equal(t, httpx.CodeInvalidRefreshToken, errCode(t, replay))
	cleared := cookieByName(replay, RefreshCookie)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)

	h.clock.Advance(8 * 24 * time.Hour)
	expired := h.do(t, http.MethodPost, "/api/auth/refresh", "", t2)
	assert.Equal(t, replay.Body.String(), expired.Body.String(), "expiry and reuse look identical")
}

func TestController_LogoutAlwaysOK(t *testing.T) {
	h := newHTTPHarness(t)
	reg := h.do(t, http.MethodPost, "/api/auth/register", aliceJSON)
	refresh := cookieByName(reg, RefreshCookie)

	for i := 0; i < 2; i++ {
		rec := h.do(t, http.MethodPost, "/api/auth/logout", "", refresh)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, -1, cookieByName(rec, AccessCookie).MaxAge)
	}
	assert.Zero(t, h.store.sessionCount())
}

func TestMiddleware_AccessAndSilentRefresh(t *testing.T) {
	h := newHTTPHarness(t)
	reg := h.do(t, http.MethodPost, "/api/auth/register", aliceJSON)
	access := cookieByName(reg, AccessCookie)
	refresh := cookieByName(reg, RefreshCookie)

	rec := h.do(t, http.MethodGet, "/api/auth/me", "", access)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sessions":1`)

	rec = h.do(t, http.MethodGet, "/api/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	h.clock.Advance(20 * time.Minute)
	rec = h.do(t, http.MethodGet, "/api/auth/me", "", access)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "expired access without refresh cookie")

	rec = h.do(t, http.MethodGet, "/api/auth/me", "", access, refresh)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, cookieByName(rec, AccessCookie))
	assert.NotEqual(t, refresh.Value, cookieByName(rec, RefreshCookie).Value)

	rec = h.do(t, http.MethodGet, "/api/auth/me", "", &http.Cookie{Name: AccessCookie, Value: "forged"}, refresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_BearerHeader(t *testing.T) {
	h := newHTTPHarness(t)
	reg := h.do(t, http.MethodPost, "/api/auth/register", aliceJSON)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout-all", nil)
	req.Header.Set("Authorization", "Bearer "+cookieByName(reg, AccessCookie).Value)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"revoked":1}`, rec.Body.String())
}
