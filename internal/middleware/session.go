package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/gramudyog/assist/internal/assistant"
)

// ContextKey is where the resolved session is stored on the echo context.
const ContextKey = "assistantSession"

// Lookup finds a live session by ID.
type Lookup func(id string) (*assistant.Session, bool)

// SessionFromRequest resolves the session named by the header (or the session_id query
// parameter) for requests under prefix. Unknown IDs are rejected with 404; requests that
// name no session pass through so handlers can create one.
func SessionFromRequest(prefix, header string, lookup Lookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !strings.HasPrefix(c.Request().URL.Path, prefix) {
				return next(c)
			}
			id := strings.TrimSpace(c.Request().Header.Get(header))
			if id == "" {
				id = strings.TrimSpace(c.QueryParam("session_id"))
			}
			if id == "" {
				return next(c)
			}
			s, ok := lookup(id)
			if !ok {
				return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown session"})
			}
			c.Set(ContextKey, s)
			return next(c)
		}
	}
}

// Session returns the session resolved for this request, if any.
func Session(c echo.Context) (*assistant.Session, bool) {
	s, ok := c.Get(ContextKey).(*assistant.Session)
	return s, ok && s != nil
}
