// Package router wires handlers and middleware onto the Echo instance.
// Protection is decided here, at registration time: public routes live on
// groups without the JWT gate.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/product-api/internal/config"
	"github.com/iliyamo/product-api/internal/handler"
	"github.com/iliyamo/product-api/internal/logging"
	"github.com/iliyamo/product-api/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers register/login under /api/auth without the gate and
// user management under /api/auth/users behind it.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, tokens middleware.TokenParser) {
	// Registration and login are public: they are how a caller obtains a token.
	g := e.Group("/api/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	// User management needs a valid token. Any authenticated caller may act
	// on any user id; there are no roles.
	users := e.Group("/api/auth/users", middleware.JWTAuth(tokens))
	users.GET("", a.ListUsers)
	users.GET("/:id", a.GetUser)
	users.PUT("/:id", a.UpdateUser)
	users.DELETE("/:id", a.DeleteUser)
}

// RegisterProducts registers product CRUD behind the gate. Reads go through
// the Redis cache when enabled; successful writes invalidate it.
func RegisterProducts(e *echo.Echo, p *handler.ProductHandler, tokens middleware.TokenParser, cache config.CacheConfig, rdb *redis.Client, log logging.Logger) {
	// The gate runs before the cache so cached bodies are never served to
	// unauthenticated callers.
	g := e.Group("/api/products",
		middleware.JWTAuth(tokens),
		middleware.NewRedisCache(cache, rdb, log),
		middleware.InvalidateCache(cache, rdb, log),
	)
	g.GET("", p.List)
	// Named so Create can build the Location header with e.Reverse.
	g.GET("/:id", p.Get).Name = "products.get"
	g.POST("", p.Create)
	g.PUT("/:id", p.Update)
	g.DELETE("/:id", p.Delete)
}
