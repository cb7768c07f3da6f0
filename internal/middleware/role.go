package middleware // middleware provides shared request processing for handlers

import (
    "net/http" // http package defines standard HTTP status codes

    "github.com/labstack/echo/v4" // echo provides middleware chaining and context
)

// Roles carried in the token's "role" claim.
const (
    RoleAdmin    = "ADMIN"
    RoleCustomer = "CUSTOMER"
)

// RequireRole returns a middleware function that enforces that the
// authenticated user has one of the specified roles.  If the user's role
// is not in the allowed set, the request is aborted with a 403 Forbidden
// error.  It assumes OptionalJWT and RequireAuth ran before it; when
// authentication is disabled (enabled is false) every request passes.
func RequireRole(enabled bool, roles ...string) echo.MiddlewareFunc {
    // Build a set of allowed roles for constant-time lookups.
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        if !enabled {
            return next
        }
        return func(c echo.Context) error {
            if !allowed[Role(c)] {
                return echo.NewHTTPError(http.StatusForbidden, "role not permitted")
            }
            return next(c)
        }
    }
}
