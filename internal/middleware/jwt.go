package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "fmt"      // fmt renders numeric subjects as strings
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
    "github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers
)

// Context keys set by OptionalJWT.
const (
    ContextUserID = "user_id"
    ContextRole   = "role"
)

// OptionalJWT returns an Echo middleware that validates a Bearer access
// token when one is sent and injects the token's subject and role claims
// into the request context.  Anonymous requests pass through; a token that
// is present but invalid is rejected with 401.  Handlers read the
// authenticated user through UserID and Role.
//
// An empty secret disables authentication: the middleware passes every
// request through untouched and handlers fall back to the user id in the
// request body.
func OptionalJWT(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        if secret == "" {
            return next
        }
        return func(c echo.Context) error {
            // A valid header starts with "Bearer " followed by the JWT.
            auth := c.Request().Header.Get("Authorization")
            if auth == "" {
                return next(c)
            }
            if !strings.HasPrefix(auth, "Bearer ") {
                return echo.NewHTTPError(http.StatusUnauthorized, "malformed authorization header")
            }
            sub, role, err := parseToken(secret, strings.TrimPrefix(auth, "Bearer "))
            if err != nil {
                return err
            }
            c.Set(ContextUserID, sub)
            c.Set(ContextRole, role)
            return next(c)
        }
    }
}

// RequireAuth rejects requests that carry no verified identity.  It is a
// no-op when authentication is disabled.
func RequireAuth(enabled bool) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        if !enabled {
            return next
        }
        return func(c echo.Context) error {
            if _, ok := UserID(c); !ok {
                return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
            }
            return next(c)
        }
    }
}

// parseToken verifies raw and returns its subject and role claims.
func parseToken(secret, raw string) (string, string, error) {
    // Only HMAC signatures made with our secret are accepted.
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, echo.ErrUnauthorized
        }
        return []byte(secret), nil
    }, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
    if err != nil || !tok.Valid {
        return "", "", echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
    }

    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return "", "", echo.NewHTTPError(http.StatusUnauthorized, "invalid claims")
    }
    sub := subject(claims["sub"])
    if sub == "" {
        return "", "", echo.NewHTTPError(http.StatusUnauthorized, "invalid claims")
    }
    role, _ := claims["role"].(string)
    return sub, role, nil
}

// subject normalizes the sub claim.  Older tokens carry numeric ids, which
// JSON decodes as float64.
func subject(v interface{}) string {
    switch t := v.(type) {
    case string:
        return strings.TrimSpace(t)
    case float64:
        return fmt.Sprintf("%.0f", t)
    }
    return ""
}
