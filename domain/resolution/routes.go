package resolution

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers the resolution routes.
func RegisterRoutes(e *echo.Echo, handler *Handler) {
	g := e.Group("/api/resolution")

	g.POST("/find-matches", handler.FindMatches)
	g.GET("/entities/:entityId/potential-matches", handler.PotentialMatches)
	g.GET("/analyze", handler.Analyze)
	g.POST("/resolve", handler.Resolve)
	g.GET("/config", handler.GetConfig)
	g.PUT("/config", handler.UpdateConfig)
}
