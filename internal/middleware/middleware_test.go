package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-booking/internal/config"
	"github.com/iliyamo/event-ticket-booking/internal/logging"
	"github.com/iliyamo/event-ticket-booking/internal/utils"
)

const secret = "middleware-secret"

// run sends one request through mw and returns the handler's view of the
// identity together with the middleware error.
func run(t *testing.T, mw []echo.MiddlewareFunc, header string) (string, string, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var user, role string
	h := func(c echo.Context) error {
		user, _ = UserID(c)
		role = Role(c)
		return c.NoContent(http.StatusNoContent)
	}
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	err := h(c)
	return user, role, err
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	return he.Code
}

func signed(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod, key any) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return "Bearer " + s
}

func TestOptionalJWT(t *testing.T) {
	tok, err := utils.NewAccessToken(secret, "alice", "customer", 5)
	require.NoError(t, err)

	user, role, err := run(t, []echo.MiddlewareFunc{OptionalJWT(secret)}, "Bearer "+tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", user)
	assert.Equal(t, RoleCustomer, role)

	user, _, err = run(t, []echo.MiddlewareFunc{OptionalJWT(secret)}, "")
	require.NoError(t, err)
	assert.Empty(t, user)

	_, _, err = run(t, []echo.MiddlewareFunc{OptionalJWT(secret)}, "Basic Zm9vOmJhcg==")
	assert.Equal(t, http.StatusUnauthorized, httpCode(t, err))

	_, _, err = run(t, []echo.MiddlewareFunc{OptionalJWT("other")}, "Bearer "+tok.Token)
	assert.Equal(t, http.StatusUnauthorized, httpCode(t, err))

	// Disabled: even garbage passes and no identity is set.
	user, _, err = run(t, []echo.MiddlewareFunc{OptionalJWT("")}, "Bearer garbage")
	require.NoError(t, err)
	assert.Empty(t, user)
}

func TestOptionalJWT_Claims(t *testing.T) {
	exp := time.Now().Add(time.Minute).Unix()

	user, _, err := run(t, []echo.MiddlewareFunc{OptionalJWT(secret)},
		signed(t, jwt.MapClaims{"sub": float64(42), "role": RoleAdmin, "exp": exp}, jwt.SigningMethodHS256, []byte(secret)))
	require.NoError(t, err)
	assert.Equal(t, "42", user)

	tests := map[string]string{
		"expired":     signed(t, jwt.MapClaims{"sub": "a", "exp": time.Now().Add(-time.Minute).Unix()}, jwt.SigningMethodHS256, []byte(secret)),
		"missing sub": signed(t, jwt.MapClaims{"role": RoleAdmin, "exp": exp}, jwt.SigningMethodHS256, []byte(secret)),
		"hs512":       signed(t, jwt.MapClaims{"sub": "a", "exp": exp}, jwt.SigningMethodHS512, []byte(secret)),
	}
	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := run(t, []echo.MiddlewareFunc{OptionalJWT(secret)}, header)
			assert.Equal(t, http.StatusUnauthorized, httpCode(t, err))
		})
	}
}

func TestRequireAuthAndRole(t *testing.T) {
	admin, err := utils.NewAccessToken(secret, "root", RoleAdmin, 5)
	require.NoError(t, err)
	customer, err := utils.NewAccessToken(secret, "bob", RoleCustomer, 5)
	require.NoError(t, err)

	chain := []echo.MiddlewareFunc{OptionalJWT(secret), RequireAuth(true), RequireRole(true, RoleAdmin)}

	_, _, err = run(t, chain, "")
	assert.Equal(t, http.StatusUnauthorized, httpCode(t, err))

	_, _, err = run(t, chain, "Bearer "+customer.Token)
	assert.Equal(t, http.StatusForbidden, httpCode(t, err))

	user, role, err := run(t, chain, "Bearer "+admin.Token)
	require.NoError(t, err)
	assert.Equal(t, "root", user)
	assert.Equal(t, RoleAdmin, role)

	_, _, err = run(t, []echo.MiddlewareFunc{RequireAuth(false), RequireRole(false, RoleAdmin)}, "")
	assert.NoError(t, err)
}

func TestRequestContext(t *testing.T) {
	e := echo.New()
	var correlationID string
	e.GET("/x", func(c echo.Context) error {
		correlationID = logging.CorrelationID(c.Request().Context())
		return echo.NewHTTPError(http.StatusTeapot, "short and stout")
	}, RequestContext())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderCorrelationID, "corr-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "corr-1", rec.Header().Get(HeaderCorrelationID))
	assert.Equal(t, "corr-1", correlationID)
	assert.Len(t, rec.Header().Get(HeaderTraceID), 32)
	assert.Len(t, rec.Header().Get(HeaderSpanID), 16)
}

func TestNewTokenBucket_DisabledPassesThrough(t *testing.T) {
	mw := NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil)
	for i := 0; i < 3; i++ {
		_, _, err := run(t, []echo.MiddlewareFunc{mw}, "")
		require.NoError(t, err)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/events/1/holds", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/events/:id/holds")
	c.Set(ContextUserID, "42")

	tests := map[string]string{
		config.KeyByIP:        "tb:rl:ip:10.0.0.1",
		config.KeyByUser:      "tb:rl:user:42",
		config.KeyByRoute:     "tb:rl:route:POST /api/events/:id/holds",
		config.KeyByUserRoute: "tb:rl:user:42:route:POST /api/events/:id/holds",
		config.KeyByAll:       "tb:rl:ip:10.0.0.1:user:42:route:POST /api/events/:id/holds",
	}
	for strategy, want := range tests {
		got := buildRateKey(config.RateLimitConfig{Prefix: "tb:rl", KeyStrategy: strategy}, c)
		assert.Equal(t, want, got, strategy)
	}
}
