package routes

import (
	"context"
	"net/http"
	"strings"

	"github.com/OFFIS-RIT/argmap/internal/server/middleware"
	"github.com/OFFIS-RIT/argmap/internal/util"
	"github.com/OFFIS-RIT/argmap/pkg/argmap"
	"github.com/OFFIS-RIT/argmap/pkg/logger"
	"github.com/OFFIS-RIT/argmap/pkg/store"

	"github.com/labstack/echo/v4"
)

type extractRequest struct {
	Text        string  `json:"text" validate:"required"`
	APIKey      string  `json:"api_key"`
	Temperature float64 `json:"temperature" validate:"min=0,max=2"`
	Model       string  `json:"model"`
}

func (r *extractRequest) model() *string {
	if r.Model == "" {
		return nil
	}
	m := r.Model
	return &m
}

// options builds the extraction options. A key from the X-API-Key header is
// already in the request context and wins over the body key.
func (r *extractRequest) options(c echo.Context) []argmap.ExtractOption {
	opts := []argmap.ExtractOption{
		argmap.WithTemperature(r.Temperature),
		argmap.WithModel(r.Model),
	}
	if key := strings.TrimSpace(r.APIKey); key != "" && !middleware.HasRequestAPIKey(c) {
		opts = append(opts, argmap.WithAPIKey(key))
	}
	return opts
}

func bindExtractRequest(c echo.Context) (*extractRequest, error) {
	data := new(extractRequest)
	if err := c.Bind(data); err != nil {
		return nil, err
	}
	if err := c.Validate(data); err != nil {
		return nil, err
	}
	return data, nil
}

// saveExtraction persists the query and its result. Persistence failures
// are logged; the extraction result is still returned, just without a saved
// hash.
func saveExtraction(
	ctx context.Context,
	s store.Store,
	data *extractRequest,
	m *argmap.ArgumentMap,
) argmap.Response {
	resp, err := store.SaveExtraction(ctx, s, store.Query{
		Text:        data.Text,
		Temperature: data.Temperature,
		Model:       data.model(),
	}, m)
	if err != nil {
		logger.Error("Failed to save extraction", "err", err)
		return resp
	}

	logger.Info("Saved extraction", "hash", *resp.SavedHash, "nodes", len(m.Nodes), "edges", len(m.Edges))
	return resp
}

// ExtractHandler runs a blocking extraction. Extraction failures are
// reported in the response body with success set to false.
func ExtractHandler(c echo.Context) error {
	data, err := bindExtractRequest(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	m, err := app.Extractor.Extract(ctx, data.Text, data.options(c)...)
	if err != nil {
		logger.Error("Extraction failed", "err", err)
		return c.JSON(http.StatusOK, argmap.NewFailure(util.ErrorMessage(err)))
	}

	return c.JSON(http.StatusOK, saveExtraction(ctx, app.Store, data, m))
}
