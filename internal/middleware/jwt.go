package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/product-api/internal/auth"
)

// TokenParser validates a raw bearer token. *auth.TokenIssuer implements it.
type TokenParser interface {
	Parse(raw string) (auth.Identity, error)
}

// JWTAuth returns an Echo middleware that admits a request only when it
// carries a valid Bearer token. On success the auth.Identity is stored in the
// context; handlers read it back with IdentityFrom. Rejected requests never
// reach the handler.
func JWTAuth(tokens TokenParser) echo.MiddlewareFunc {
	// The outer function runs once at registration; the inner handler runs
	// for every request on the protected group.
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A missing header and a non-Bearer scheme are reported the
			// same way: the client did not present a token at all.
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			// Parse checks signature, algorithm, issuer, audience, expiry
			// and the identity claims. The reason is not echoed back.
			id, err := tokens.Parse(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(identityKey, id)
			return next(c)
		}
	}
}

// bearerToken extracts the token from an Authorization header. The scheme is
// matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, raw, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}
