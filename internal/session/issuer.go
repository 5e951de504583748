// Package session issues and validates the signed session cookie.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"folio/internal/middleware"
	"folio/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "session"
	// TokenIssuer and TokenAudience are stamped into every session token.
	TokenIssuer   = "folio-api"
	TokenAudience = "folio-client"

	revokedKeyPrefix = "session:revoked:"
	storeTimeout     = 5 * time.Second
)

// ErrRevoked is returned by Parse for a token that was logged out.
var ErrRevoked = errors.New("session: token has been revoked")

// Claims is the payload of a session token. Subject holds the username.
type Claims struct {
	LoggedIn string `json:"loggedIn"`
	jwt.RegisteredClaims
}

// Username returns the session owner.
func (c *Claims) Username() string {
	return c.Subject
}

// Issuer signs session tokens and manages the session cookie. The Redis
// client is optional; without it logout cannot revoke outstanding tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	secure bool
	rdb    *redis.Client
	now    func() time.Time
}

// NewIssuer builds an Issuer. ttl is the lifetime of both the token and the cookie.
func NewIssuer(secret string, ttl time.Duration, secure bool, rdb *redis.Client) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		secure: secure,
		rdb:    rdb,
		now:    time.Now,
	}
}

// TTL returns the session lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Sign creates a signed token for username.
func (i *Issuer) Sign(username string) (string, *Claims, error) {
	if len(i.secret) == 0 {
		return "", nil, fmt.Errorf("session secret not configured")
	}

	now := i.now()
	claims := &Claims{
		LoggedIn: now.UTC().Format(time.RFC3339),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Parse validates signature, issuer, audience, expiry and revocation.
func (i *Issuer) Parse(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("session: invalid token")
	}

	revoked, err := i.isRevoked(ctx, claims.ID)
	if err != nil {
		// Store outages must not log everyone out.
		middleware.Logger.WarnContext(ctx, "session revocation check failed", "error", err.Error())
	} else if revoked {
		return nil, ErrRevoked
	}
	return claims, nil
}

// Issue signs a token for username and sets the session cookie.
func (i *Issuer) Issue(c *fiber.Ctx, username string) (*Claims, error) {
	signed, claims, err := i.Sign(username)
	if err != nil {
		return nil, err
	}

	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(i.ttl / time.Second),
		Secure:   i.secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return claims, nil
}

// Current returns the claims of a valid session cookie on the request.
func (i *Issuer) Current(c *fiber.Ctx) (*Claims, bool) {
	raw := c.Cookies(CookieName)
	if raw == "" {
		return nil, false
	}
	claims, err := i.Parse(c.UserContext(), raw)
	if err != nil {
		return nil, false
	}
	return claims, true
}

// Clear expires the session cookie and revokes the token it carried, if any.
func (i *Issuer) Clear(c *fiber.Ctx) {
	if raw := c.Cookies(CookieName); raw != "" {
		if claims, err := i.Parse(c.UserContext(), raw); err == nil {
			if err := i.Revoke(c.UserContext(), claims); err != nil {
				middleware.Logger.WarnContext(c.UserContext(), "failed to revoke session",
					"username", claims.Subject, "error", err.Error())
			}
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  i.now().Add(-24 * time.Hour),
		Secure:   i.secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// Revoke marks the token id as revoked until the token would have expired.
func (i *Issuer) Revoke(ctx context.Context, claims *Claims) error {
	if i.rdb == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	remaining := claims.ExpiresAt.Sub(i.now())
	if remaining <= 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return i.rdb.Set(ctx, revokedKeyPrefix+claims.ID, "1", remaining).Err()
}

func (i *Issuer) isRevoked(ctx context.Context, jti string) (bool, error) {
	if i.rdb == nil || jti == "" {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	n, err := i.rdb.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Required rejects requests without a valid session with 401. On success the
// username is stored in c.Locals("username") and on the logging context.
func (i *Issuer) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := i.Current(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Login required"))
		}
		middleware.WithUsername(c, claims.Subject)
		return c.Next()
	}
}
