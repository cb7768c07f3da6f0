package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/apperr"
	"github.com/iliyamo/event-ticket-booking/internal/logging"
	"github.com/iliyamo/event-ticket-booking/internal/metrics"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeHoldExpired  = "HOLD_EXPIRED"
	CodeMalformed    = "MALFORMED_REQUEST"
	CodeForbidden    = "FORBIDDEN"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeInternal     = "INTERNAL_ERROR"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Timestamp string `json:"timestamp"`
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// malformedError marks a request that could not be parsed.
type malformedError struct{ msg string }

func (e *malformedError) Error() string { return e.msg }

func malformed(format string, args ...any) error {
	return &malformedError{msg: fmt.Sprintf(format, args...)}
}

// forbiddenError marks a request whose token does not allow the action.
type forbiddenError struct{ msg string }

func (e *forbiddenError) Error() string { return e.msg }

// classify maps err to an HTTP status, an error code and a client message.
func classify(err error) (int, string, string) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity, CodeValidation, err.Error()
	case apperr.KindNotFound:
		return http.StatusNotFound, CodeNotFound, err.Error()
	case apperr.KindConflict:
		return http.StatusConflict, CodeConflict, err.Error()
	case apperr.KindHoldExpired:
		return http.StatusGone, CodeHoldExpired, err.Error()
	}

	var me *malformedError
	if errors.As(err, &me) {
		return http.StatusBadRequest, CodeMalformed, me.msg
	}
	var fe *forbiddenError
	if errors.As(err, &fe) {
		return http.StatusForbidden, CodeForbidden, fe.msg
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := fmt.Sprint(he.Message)
		switch he.Code {
		case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusRequestEntityTooLarge:
			return http.StatusBadRequest, CodeMalformed, msg
		case http.StatusNotFound:
			return http.StatusNotFound, CodeNotFound, msg
		case http.StatusMethodNotAllowed:
			return http.StatusMethodNotAllowed, CodeNotAllowed, msg
		case http.StatusUnauthorized:
			return http.StatusUnauthorized, CodeUnauthorized, msg
		case http.StatusForbidden:
			return http.StatusForbidden, CodeForbidden, msg
		}
		if he.Code < 500 {
			return he.Code, "HTTP_" + strconv.Itoa(he.Code), msg
		}
	}
	return http.StatusInternalServerError, CodeInternal, "unexpected error"
}

// ErrorHandler is installed as echo's HTTPErrorHandler.  It writes the
// error body and counts the response in the api errors metric.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, code, msg := classify(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).WithError(err).Error("request failed")
	}
	metrics.APIError(status, code)

	body := ErrorBody{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Status:    status,
		Error:     http.StatusText(status),
		Code:      code,
		Message:   msg,
	}
	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, body)
	}
	if werr != nil {
		logging.FromContext(c.Request().Context()).WithError(werr).Warn("write error response failed")
	}
}
