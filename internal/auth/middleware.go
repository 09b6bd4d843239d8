package auth

import (
	"strings"

	"gcdl-backend/internal/apperr"
	"gcdl-backend/internal/rbac"

	"github.com/gofiber/fiber/v2"
)

func bearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", apperr.Unauthenticated("missing Authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperr.Unauthenticated("Authorization header must be 'Bearer <token>'")
	}
	return strings.TrimSpace(parts[1]), nil
}

// JWTMiddleware rejects requests without a valid bearer token.
func JWTMiddleware(tm *TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearerToken(c)
		if err != nil {
			return err
		}
		claims, err := tm.Verify(token)
		if err != nil {
			return apperr.Unauthenticated("invalid or expired token")
		}
		setIdentity(c, claims)
		return c.Next()
	}
}

// OptionalJWT lets anonymous requests through but still rejects a bad token.
func OptionalJWT(tm *TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return c.Next()
		}
		return JWTMiddleware(tm)(c)
	}
}

// QueryTokenJWT authenticates websocket upgrades, where browsers cannot set
// headers, from the token query parameter.
func QueryTokenJWT(tm *TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			return JWTMiddleware(tm)(c)
		}
		claims, err := tm.Verify(token)
		if err != nil {
			return apperr.Unauthenticated("invalid or expired token")
		}
		setIdentity(c, claims)
		return c.Next()
	}
}

// RequirePermission admits callers whose role, or an inherited role, holds
// key. The key is checked against the table when the route is registered.
func RequirePermission(table *rbac.Table, key rbac.Permission) fiber.Handler {
	key = table.MustKey(key)
	return func(c *fiber.Ctx) error {
		id, ok := IdentityFrom(c)
		if !ok {
			return apperr.Unauthenticated("authentication required")
		}
		if !table.IsAllowed(id.Role, key) {
			return apperr.Forbidden("insufficient permissions")
		}
		return c.Next()
	}
}
