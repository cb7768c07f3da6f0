package middleware

// identity.go defines helper functions shared across middleware files and
// handlers.  They read the identity stored by OptionalJWT.  When no token was
// verified, UserID reports false and Role returns "".

import (
    "github.com/labstack/echo/v4"
)

// UserID returns the authenticated user id, if any.
func UserID(c echo.Context) (string, bool) {
    if s, ok := c.Get(ContextUserID).(string); ok && s != "" {
        return s, true
    }
    return "", false
}

// Role returns the authenticated role, or "" when unauthenticated.
func Role(c echo.Context) string {
    s, _ := c.Get(ContextRole).(string)
    return s
}
