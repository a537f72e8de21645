package entity

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers the entity routes.
func RegisterRoutes(e *echo.Echo, handler *Handler) {
	g := e.Group("/api/entities")

	g.POST("", handler.Create)
	g.GET("", handler.List)
	g.GET("/:entityId", handler.Get)
	g.DELETE("/:entityId", handler.Archive)
}
