package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/service"
)

// BookingHandler exposes confirmation, cancellation and booking queries.
type BookingHandler struct {
	Bookings *service.BookingService
}

// NewBookingHandler constructs a BookingHandler.  The service must be
// non-nil.
func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	if bookings == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: bookings}
}

type confirmRequest struct {
	HoldID string `json:"hold_id"`
}

// Confirm handles POST /api/bookings/confirm.  It returns 201 with the
// booking, 403 when a customer confirms another user's hold, 410 when the
// hold expired and 409 when a seat got booked meanwhile or the hold was
// already confirmed.
func (h *BookingHandler) Confirm(c echo.Context) error {
	var req confirmRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	var (
		b   *model.Booking
		err error
	)
	if owner := ownerFilter(c); owner != "" {
		b, err = h.Bookings.ConfirmOwnedBooking(ctx, req.HoldID, owner)
	} else {
		b, err = h.Bookings.ConfirmBooking(ctx, req.HoldID)
	}
	if errors.Is(err, service.ErrHoldNotOwned) {
		return &forbiddenError{msg: "hold belongs to another user"}
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, b)
}

// List handles GET /api/bookings.  Customers only see their own bookings
// and holds.
func (h *BookingHandler) List(c echo.Context) error {
	summary, err := h.Bookings.ListBookings(c.Request().Context())
	if err != nil {
		return err
	}
	if owner := ownerFilter(c); owner != "" {
		summary = onlyOwner(summary, owner)
	}
	return c.JSON(http.StatusOK, summary)
}

// Get handles GET /api/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	b, err := h.Bookings.ViewBooking(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if owner := ownerFilter(c); owner != "" && b.UserID != owner {
		return &forbiddenError{msg: "booking belongs to another user"}
	}
	return c.JSON(http.StatusOK, b)
}

// Cancel handles POST /api/bookings/:id/cancel.  Canceling twice yields
// 409.
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if owner := ownerFilter(c); owner != "" {
		b, err := h.Bookings.ViewBooking(ctx, id)
		if err != nil {
			return err
		}
		if b.UserID != owner {
			return &forbiddenError{msg: "booking belongs to another user"}
		}
	}
	b, err := h.Bookings.CancelBooking(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func onlyOwner(in *model.BookingsSummary, owner string) *model.BookingsSummary {
	out := &model.BookingsSummary{
		Bookings: []model.BookingWithHolds{},
		Holds:    []model.SeatHold{},
	}
	for _, b := range in.Bookings {
		if b.UserID == owner {
			out.Bookings = append(out.Bookings, b)
		}
	}
	for _, h := range in.Holds {
		if h.UserID == owner {
			out.Holds = append(out.Holds, h)
		}
	}
	return out
}
