package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/apperr"
	"github.com/iliyamo/event-ticket-booking/internal/service"
)

// maxEventBody bounds the size of event create/update bodies.
const maxEventBody = 1 << 20

// EventHandler exposes event record management.
type EventHandler struct {
	Events *service.EventService
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(events *service.EventService) *EventHandler {
	if events == nil {
		panic("nil service passed to NewEventHandler")
	}
	return &EventHandler{Events: events}
}

type eventRequest struct {
	Name       string `json:"name"`
	EventDate  string `json:"event_date"`
	Location   string `json:"location"`
	TotalSeats int    `json:"total_seats"`
}

// dateLayouts are the accepted event_date formats.  Values without an
// offset are taken as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

func (r eventRequest) input() (service.EventInput, error) {
	in := service.EventInput{Name: r.Name, Location: r.Location, TotalSeats: r.TotalSeats}
	raw := strings.TrimSpace(r.EventDate)
	if raw == "" {
		return in, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			in.EventDate = t.UTC()
			return in, nil
		}
	}
	return in, apperr.Validation("event_date: must be an ISO-8601 date-time")
}

// Create handles POST /api/events.  The body is a single event object or an
// array of them; identical events are deduplicated and returned as is.
func (h *EventHandler) Create(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxEventBody))
	if err != nil {
		return malformed("could not read request body")
	}
	body = bytes.TrimSpace(body)
	ctx := c.Request().Context()

	switch {
	case bytes.HasPrefix(body, []byte("[")):
		var reqs []eventRequest
		if err := json.Unmarshal(body, &reqs); err != nil {
			return malformed("invalid request body")
		}
		ins := make([]service.EventInput, 0, len(reqs))
		for _, r := range reqs {
			in, err := r.input()
			if err != nil {
				return err
			}
			ins = append(ins, in)
		}
		events, err := h.Events.CreateEvents(ctx, ins)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, events)

	case bytes.HasPrefix(body, []byte("{")):
		var r eventRequest
		if err := json.Unmarshal(body, &r); err != nil {
			return malformed("invalid request body")
		}
		in, err := r.input()
		if err != nil {
			return err
		}
		e, err := h.Events.CreateEvent(ctx, in)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, e)
	}
	return apperr.Validation("request body must be either an event object or an array of event objects")
}

// List handles GET /api/events.
func (h *EventHandler) List(c echo.Context) error {
	events, err := h.Events.ListEvents(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, events)
}

// Get handles GET /api/events/:id.
func (h *EventHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	e, err := h.Events.GetEvent(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

// Update handles PUT /api/events/:id.
func (h *EventHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var r eventRequest
	if err := bind(c, &r); err != nil {
		return err
	}
	in, err := r.input()
	if err != nil {
		return err
	}
	e, err := h.Events.UpdateEvent(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

// Delete handles DELETE /api/events/:id.  It returns 204, or 409 while
// holds or bookings reference the event.
func (h *EventHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Events.DeleteEvent(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
