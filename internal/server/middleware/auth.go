package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/argmap/pkg/ai"
)

// APIKeyHeader carries a caller supplied model API key.
const APIKeyHeader = "X-API-Key"

// APIKeyMiddleware stores the key from the X-API-Key header in the request
// context. Only calls made on behalf of this request see it.
func APIKeyMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := strings.TrimSpace(c.Request().Header.Get(APIKeyHeader))
		if key == "" {
			return next(c)
		}

		req := c.Request()
		c.SetRequest(req.WithContext(ai.WithRequestAPIKey(req.Context(), key)))
		return next(c)
	}
}

// HasRequestAPIKey reports whether the request carries a header key.
func HasRequestAPIKey(c echo.Context) bool {
	return ai.RequestAPIKey(c.Request().Context()) != ""
}
