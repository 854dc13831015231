package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/product-api/internal/auth"
)

// identityKey is the echo context key JWTAuth stores the identity under.
const identityKey = "identity"

// IdentityFrom returns the identity stored by JWTAuth. ok is false on routes
// outside the gate.
func IdentityFrom(c echo.Context) (auth.Identity, bool) {
	id, ok := c.Get(identityKey).(auth.Identity)
	return id, ok
}
