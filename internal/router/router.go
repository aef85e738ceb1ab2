// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/calendar-booking/internal/handler"
	"github.com/iliyamo/calendar-booking/internal/middleware"
)

// RegisterRoutes registers the probes and, when enabled, /metrics.
func RegisterRoutes(e *echo.Echo, db *sql.DB, rdb *redis.Client, metrics bool) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Readyz(db, rdb))
	if metrics {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}
}

// RegisterAuth registers the admin session endpoints. Login and refresh are
// open but rate limited; logout and me need a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login, limit)
	g.POST("/refresh", a.Refresh, limit)

	auth := e.Group("/v1/auth", middleware.JWTAuth(jwtSecret), middleware.RequireRole(middleware.RoleAdmin))
	auth.POST("/logout", a.Logout)
	auth.GET("/me", a.Me)
}
