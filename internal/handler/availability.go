package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/service"
)

// AvailabilityHandler reports seat counts.  Responses are computed per
// request and must not be cached.
type AvailabilityHandler struct {
	Availability *service.AvailabilityService
}

// NewAvailabilityHandler constructs an AvailabilityHandler.
func NewAvailabilityHandler(a *service.AvailabilityService) *AvailabilityHandler {
	if a == nil {
		panic("nil service passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{Availability: a}
}

// One handles GET /api/events/:id/availability.
func (h *AvailabilityHandler) One(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.Availability.Availability(c.Request().Context(), id)
	if err != nil {
		return err
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(http.StatusOK, a)
}

// All handles GET /api/events/availability.
func (h *AvailabilityHandler) All(c echo.Context) error {
	all, err := h.Availability.AvailabilityAll(c.Request().Context())
	if err != nil {
		return err
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(http.StatusOK, all)
}
