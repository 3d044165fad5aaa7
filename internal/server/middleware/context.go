package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/argmap/pkg/argmap"
	"github.com/OFFIS-RIT/argmap/pkg/store"
)

type App struct {
	Extractor *argmap.Extractor
	Store     store.Store
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
