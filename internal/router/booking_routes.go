package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/calendar-booking/internal/handler"
	"github.com/iliyamo/calendar-booking/internal/middleware"
)

// RegisterPublic registers the visitor endpoints. Listings go through the
// response cache; writes and availability checks through the rate limiter.
func RegisterPublic(e *echo.Echo, h *handler.BookingHandler, cache, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/bookings")
	g.GET("", h.List, cache)
	g.GET("/:id", h.Get, cache)
	g.POST("", h.Create, limit)
	g.POST("/check", h.Check, limit)
}

// RegisterAdmin registers endpoints that need the ADMIN role.
func RegisterAdmin(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	guard := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleAdmin),
	}
	e.DELETE("/v1/bookings/:id", h.Delete, guard...)

	g := e.Group("/v1/admin/bookings", guard...)
	g.GET("/previous", h.Previous)
	g.GET("/export", h.Export)
}
