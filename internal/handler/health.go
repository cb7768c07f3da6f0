package handler // declare the package name; contains HTTP handlers

import (
    "context"  // context bounds the readiness check
    "net/http" // net/http provides status codes and response helpers
    "time"     // time sets the check timeout

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Health is a simple health-check endpoint used by load balancers and
// monitoring systems to verify that the service is running.  It returns
// a plain text "ok" message with an HTTP 200 status code.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// Pinger is implemented by dependencies that can report readiness, such as
// the database pool.
type Pinger interface {
    PingContext(ctx context.Context) error
}

// Ready returns a handler that answers 200 "ready" when p responds within
// two seconds and 503 otherwise.  A nil pinger is always ready.
func Ready(p Pinger) echo.HandlerFunc {
    return func(c echo.Context) error {
        if p == nil {
            return c.String(http.StatusOK, "ready")
        }
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        if err := p.PingContext(ctx); err != nil {
            return c.String(http.StatusServiceUnavailable, "not ready")
        }
        return c.String(http.StatusOK, "ready")
    }
}
