package routes

import (
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/argmap/internal/server/middleware"
	"github.com/OFFIS-RIT/argmap/pkg/logger"
	"github.com/OFFIS-RIT/argmap/pkg/store"

	"github.com/labstack/echo/v4"
)

func GetResultHandler(c echo.Context) error {
	params := new(hashParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	s := c.(*middleware.AppContext).App.Store
	r, err := s.GetResult(c.Request().Context(), params.Hash)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Result not found"})
	}
	if err != nil {
		logger.Error("Failed to load saved result", "hash", params.Hash, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, r)
}
