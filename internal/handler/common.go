package handler

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"
)

// dbTimeout bounds every database call made from a handler.
const dbTimeout = 5 * time.Second

var errNoUser = errors.New("no user in context")

// getUserID returns the authenticated user's opaque subject as stored in
// the context by the JWT middleware.
func getUserID(c echo.Context) (string, error) {
	if v, ok := c.Get("user_id").(string); ok && v != "" {
		return v, nil
	}
	return "", errNoUser
}
