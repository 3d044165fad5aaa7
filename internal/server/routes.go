package server

import (
	"net/http"

	"github.com/OFFIS-RIT/argmap/internal/server/middleware"
	"github.com/OFFIS-RIT/argmap/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "argmap"})
	})
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	apiRoutes := e.Group("/api", middleware.APIKeyMiddleware)

	// Extraction routes
	apiRoutes.POST("/extract", routes.ExtractHandler)
	apiRoutes.POST("/extract/stream", routes.ExtractStreamHandler)

	// Saved query routes
	apiRoutes.GET("/saved", routes.ListSavedHandler)
	apiRoutes.GET("/saved/:hash", routes.GetSavedHandler)
	apiRoutes.GET("/results/:hash", routes.GetResultHandler)
}
