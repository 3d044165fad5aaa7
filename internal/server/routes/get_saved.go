package routes

import (
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/argmap/internal/server/middleware"
	"github.com/OFFIS-RIT/argmap/pkg/logger"
	"github.com/OFFIS-RIT/argmap/pkg/store"

	"github.com/labstack/echo/v4"
)

type hashParams struct {
	Hash string `param:"hash" validate:"required"`
}

func ListSavedHandler(c echo.Context) error {
	s := c.(*middleware.AppContext).App.Store

	previews, err := s.ListQueries(c.Request().Context())
	if err != nil {
		logger.Error("Failed to list saved queries", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, previews)
}

func GetSavedHandler(c echo.Context) error {
	params := new(hashParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	s := c.(*middleware.AppContext).App.Store
	q, err := s.GetQuery(c.Request().Context(), params.Hash)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Query not found"})
	}
	if err != nil {
		logger.Error("Failed to load saved query", "hash", params.Hash, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, q)
}
