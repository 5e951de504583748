package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func newTestIssuer(t *testing.T) (*Issuer, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewIssuer(testSecret, 24*time.Hour, false, rdb), mr
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	return nil
}

func newSessionApp(issuer *Issuer) *fiber.App {
	app := fiber.New()
	app.Post("/login", func(c *fiber.Ctx) error {
		if _, err := issuer.Issue(c, c.Query("u")); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusOK)
	})
	app.Post("/logout", func(c *fiber.Ctx) error {
		issuer.Clear(c)
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/me", issuer.Required(), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("username").(string))
	})
	return app
}

func TestIssuer_SignAndParse(t *testing.T) {
	issuer, _ := newTestIssuer(t)

	signed, claims, err := issuer.Sign("alice")
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, "alice", claims.Username())
	_, err = time.Parse(time.RFC3339, claims.LoggedIn)
	assert.NoError(t, err)

	parsed, err := issuer.Parse(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, "alice", parsed.Subject)
	assert.Equal(t, claims.ID, parsed.ID)
}

func TestIssuer_ParseRejects(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	ctx := context.Background()

	other := NewIssuer("another-secret-key-123456789012345678901234", time.Hour, false, nil)
	foreign, _, err := other.Sign("alice")
	require.NoError(t, err)

	expired := NewIssuer(testSecret, time.Hour, false, nil)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _, err := expired.Sign("alice")
	require.NoError(t, err)

	wrongAud := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"iss": TokenIssuer,
		"aud": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	wrongAudSigned, err := wrongAud.SignedString([]byte(testSecret))
	require.NoError(t, err)

	noneAlg := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "alice"})
	noneSigned, err := noneAlg.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"malformed", "malformed.token.here"},
		{"wrong secret", foreign},
		{"expired", stale},
		{"wrong audience", wrongAudSigned},
		{"none algorithm", noneSigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Parse(ctx, tt.token)
			assert.Error(t, err)
		})
	}
}

func TestIssuer_SignWithoutSecret(t *testing.T) {
	issuer := NewIssuer("", time.Hour, false, nil)
	_, _, err := issuer.Sign("alice")
	assert.Error(t, err)
}

func TestIssuer_IssueSetsCookie(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	app := newSessionApp(issuer)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login?u=alice", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.Equal(t, 86400, cookie.MaxAge)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.False(t, cookie.Secure)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: cookie.Value})
	me, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = me.Body.Close() }()
	assert.Equal(t, http.StatusOK, me.StatusCode)
}

func TestIssuer_SecureCookieInProduction(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour, true, nil)
	app := newSessionApp(issuer)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login?u=alice", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.True(t, cookie.Secure)
	assert.Equal(t, 3600, cookie.MaxAge)
}

func TestIssuer_RequiredWithoutCookie(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	app := newSessionApp(issuer)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIssuer_ClearRevokesToken(t *testing.T) {
	issuer, mr := newTestIssuer(t)
	app := newSessionApp(issuer)

	signed, claims, err := issuer.Sign("alice")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: signed})
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.True(t, cookie.Expires.Before(time.Now()))

	assert.True(t, mr.Exists(revokedKeyPrefix+claims.ID))
	assert.Greater(t, mr.TTL(revokedKeyPrefix+claims.ID), time.Duration(0))

	_, err = issuer.Parse(context.Background(), signed)
	assert.ErrorIs(t, err, ErrRevoked)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: signed})
	me, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = me.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, me.StatusCode)
}

func TestIssuer_ClearWithoutCookie(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	app := newSessionApp(issuer)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/logout", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
}

func TestIssuer_RevocationStoreDownFailsOpen(t *testing.T) {
	issuer, mr := newTestIssuer(t)
	signed, _, err := issuer.Sign("alice")
	require.NoError(t, err)

	mr.Close()

	claims, err := issuer.Parse(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
}
