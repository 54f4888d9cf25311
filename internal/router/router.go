// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/kanrihq/kanri-backend/internal/config"
	"github.com/kanrihq/kanri-backend/internal/handler"
	"github.com/kanrihq/kanri-backend/internal/middleware"
	"github.com/kanrihq/kanri-backend/internal/model"
	"github.com/kanrihq/kanri-backend/internal/token"
)

// Register sets up all routes. The request authenticator runs on every /v1
// route; it only attaches the principal, leaving the decision to reject to
// RequireAuthenticated/RequireRole on the protected groups. The credential
// endpoints sit behind the Redis rate limiter, and the admin member listing
// behind the response cache.
func Register(e *echo.Echo, cfg config.Config, codec *token.Codec, members middleware.MemberLoader, a *handler.AuthHandler, m *handler.MemberHandler, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	authn := middleware.Authenticate(codec, members)

	auth := e.Group("/v1/auth", authn)
	auth.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	auth.POST("/register", a.Register)
	auth.POST("/login", a.Login)
	auth.POST("/refresh", a.Refresh)
	auth.POST("/change-password", a.ChangePassword, middleware.RequireAuthenticated())

	me := e.Group("/v1", authn, middleware.RequireAuthenticated())
	me.GET("/me", a.Me)

	admin := e.Group("/v1/members", authn,
		middleware.RequireAuthenticated(),
		middleware.RequireRole(model.RoleAdmin))
	admin.GET("", m.List, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	admin.GET("/:id", m.Get)
	admin.DELETE("/:id", m.Delete)
}
