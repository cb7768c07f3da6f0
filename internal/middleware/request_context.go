package middleware

import (
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    "github.com/lithammer/shortuuid/v3"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/event-ticket-booking/internal/logging"
)

// Tracing headers read from and echoed back to the client.
const (
    HeaderCorrelationID = "X-Correlation-Id"
    HeaderTraceID       = "X-Trace-Id"
    HeaderSpanID        = "X-Span-Id"
)

// RequestContext tags every request with a correlation id, trace id and
// span id (taken from the request headers or generated), stores a logrus
// entry carrying them in the request context and logs one line per
// request once it completes.
func RequestContext() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            start := time.Now()

            correlationID := headerOr(req.Header.Get(HeaderCorrelationID), shortuuid.New)
            traceID := headerOr(req.Header.Get(HeaderTraceID), func() string {
                return strings.ReplaceAll(uuid.NewString(), "-", "")
            })
            spanID := headerOr(req.Header.Get(HeaderSpanID), func() string {
                return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
            })

            res := c.Response().Header()
            res.Set(HeaderCorrelationID, correlationID)
            res.Set(HeaderTraceID, traceID)
            res.Set(HeaderSpanID, spanID)

            entry := logrus.WithFields(logrus.Fields{
                "correlation_id": correlationID,
                "trace_id":       traceID,
                "span_id":        spanID,
            })
            c.SetRequest(req.WithContext(logging.ToContext(req.Context(), entry)))

            err := next(c)
            if err != nil {
                // Let echo write the error response so the logged status is final.
                c.Error(err)
            }

            entry.WithFields(logrus.Fields{
                "method":      req.Method,
                "path":        req.URL.Path,
                "status":      c.Response().Status,
                "duration_ms": time.Since(start).Milliseconds(),
            }).Info("request completed")
            return nil
        }
    }
}

func headerOr(v string, gen func() string) string {
    if v = strings.TrimSpace(v); v != "" {
        return v
    }
    return gen()
}
