package routes

import (
	"context"
	"net/http"

	"github.com/OFFIS-RIT/argmap/internal/server/middleware"
	"github.com/OFFIS-RIT/argmap/internal/server/util"
	apputil "github.com/OFFIS-RIT/argmap/internal/util"
	"github.com/OFFIS-RIT/argmap/pkg/argmap"
	"github.com/OFFIS-RIT/argmap/pkg/logger"

	"github.com/labstack/echo/v4"
)

type streamEvent struct {
	Type    string           `json:"type"`
	Content string           `json:"content,omitempty"`
	Data    *argmap.Response `json:"data,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// ExtractStreamHandler streams the raw model output as "chunk" events and
// ends with one "result" or "error" event. The result is saved only after
// the whole output converted successfully.
func ExtractStreamHandler(c echo.Context) error {
	data, err := bindExtractRequest(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App
	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	events, err := app.Extractor.ExtractStream(ctx, data.Text, data.options(c)...)

	util.StartSSE(c)
	if err != nil {
		logger.Error("Extraction stream failed to start", "err", err)
		return util.WriteSSEEvent(c, "", streamEvent{Type: "error", Error: apputil.ErrorMessage(err)})
	}

	for ev := range events {
		var out streamEvent
		switch ev.Type {
		case "chunk":
			out = streamEvent{Type: "chunk", Content: ev.Content}
		case "result":
			resp := saveExtraction(ctx, app.Store, data, ev.Map)
			out = streamEvent{Type: "result", Data: &resp}
		case "error":
			logger.Error("Extraction stream failed", "err", ev.Err)
			out = streamEvent{Type: "error", Error: apputil.ErrorMessage(ev.Err)}
		default:
			continue
		}

		if err := util.WriteSSEEvent(c, "", out); err != nil {
			logger.Debug("Client left extraction stream", "err", err)
			return nil
		}
	}

	return nil
}
