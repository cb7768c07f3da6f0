package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/service"
)

// HoldHandler exposes seat hold placement and listing.
type HoldHandler struct {
	Holds *service.HoldService
}

// NewHoldHandler constructs a HoldHandler.  The service must be non-nil.
func NewHoldHandler(holds *service.HoldService) *HoldHandler {
	if holds == nil {
		panic("nil service passed to NewHoldHandler")
	}
	return &HoldHandler{Holds: holds}
}

type holdRequest struct {
	UserID      string `json:"user_id"`
	SeatNumbers []int  `json:"seat_numbers"`
}

// Create handles POST /api/events/:id/holds.  The body carries the user id
// and the seat numbers to hold for five minutes.  It returns 201 with the
// hold, 409 when a seat is taken and 422 for invalid seats.
func (h *HoldHandler) Create(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req holdRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	userID, err := actingUser(c, req.UserID)
	if err != nil {
		return err
	}
	hold, err := h.Holds.HoldSeats(c.Request().Context(), eventID, userID, req.SeatNumbers)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, hold)
}

// List handles GET /api/holds?event_id=&user_id=.  Only ACTIVE holds are
// returned.  Customers always see their own holds only.
func (h *HoldHandler) List(c echo.Context) error {
	var f model.HoldFilter
	if raw := strings.TrimSpace(c.QueryParam("event_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return malformed("invalid event_id %q", raw)
		}
		f.EventID = &id
	}
	f.UserID = strings.TrimSpace(c.QueryParam("user_id"))
	if owner := ownerFilter(c); owner != "" {
		f.UserID = owner
	}
	holds, err := h.Holds.ListHolds(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, holds)
}
