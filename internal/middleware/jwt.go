package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-storefront/internal/token"
)

// Context keys written by JWTAuth and read by handlers and RequireRole.
const (
	ContextKeyClaims = "claims"
	ContextKeyUserID = "user_id"
	ContextKeyRole   = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the decoded claims into the request context. The provided
// secret must match the one used when issuing tokens. Every verification
// failure — missing header, malformed token, bad signature, non-object
// payload or expiry — answers 401; distinguishing them further is of no
// use to the client and would leak information to an attacker probing
// tokens. Role checks are a separate concern handled by RequireRole.
func JWTAuth(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := token.ExtractBearer(c.Request().Header.Get("Authorization"))
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := token.Verify(raw, secret)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			// Store the decoded claims plus the two fields almost every
			// handler needs. Downstream consumers perform their own type
			// assertions.
			c.Set(ContextKeyClaims, claims)
			if id, ok := token.UserID(claims); ok {
				c.Set(ContextKeyUserID, id)
			}
			c.Set(ContextKeyRole, token.Role(claims))
			return next(c)
		}
	}
}
