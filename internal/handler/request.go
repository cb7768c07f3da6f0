package handler

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/middleware"
)

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, malformed("invalid %s %q", name, raw)
	}
	return id, nil
}

// bind decodes the JSON body into v.  Decoding errors are reported as
// malformed requests.
func bind(c echo.Context, v any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, v); err != nil {
		return malformed("invalid request body")
	}
	return nil
}

// actingUser resolves whose behalf a request acts on.  Without a verified
// token the id from the request body is used as is.  A customer token may
// only act for its own subject; an admin token may act for anyone and
// falls back to its own subject.
func actingUser(c echo.Context, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	sub, ok := middleware.UserID(c)
	if !ok {
		return requested, nil
	}
	if requested == "" {
		return sub, nil
	}
	if requested != sub && middleware.Role(c) != middleware.RoleAdmin {
		return "", &forbiddenError{msg: "user_id does not match the authenticated user"}
	}
	return requested, nil
}

// ownerFilter returns the user a listing must be narrowed to: the token
// subject for customers, nobody otherwise.
func ownerFilter(c echo.Context) string {
	sub, ok := middleware.UserID(c)
	if !ok || middleware.Role(c) == middleware.RoleAdmin {
		return ""
	}
	return sub
}
