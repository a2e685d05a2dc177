package middleware

// identity.go defines helper functions shared across middleware files.  The
// rate limiter and the response cache both need a per-user component in
// their keys; userID reads the subject that JWTAuth stored in the context
// and falls back to "guest" on unauthenticated routes.

import "github.com/labstack/echo/v4"

// userID extracts the authenticated user identifier from the Echo context.
// It returns "guest" when no user is authenticated.
func userID(c echo.Context) string {
    if v, ok := c.Get("user_id").(string); ok && v != "" {
        return v
    }
    return "guest"
}
