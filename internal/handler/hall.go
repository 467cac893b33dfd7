package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-reservation/internal/service"
)

// HallHandler serves the public catalogue, calendar and price reads.
type HallHandler struct {
	Svc *service.Reservations
	// Horizon is the default number of days of a calendar read without
	// start and end.
	Horizon int
}

func NewHallHandler(svc *service.Reservations, horizon int) *HallHandler {
	return &HallHandler{Svc: svc, Horizon: horizon}
}

// ListHalls handles GET /v1/halls.
func (h *HallHandler) ListHalls(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	halls, err := h.Svc.ListHalls(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": halls})
}

// GetHall handles GET /v1/halls/:id.
func (h *HallHandler) GetHall(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	hall, err := h.Svc.GetHall(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, hall)
}

// Availability handles GET /v1/halls/:id/availability?start&end.
func (h *HallHandler) Availability(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	r, err := rangeQuery(c, h.Horizon)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	days, err := h.Svc.Availability(ctx, id, r)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"hall_id": id, "days": days})
}

// CheckAvailability handles GET /v1/halls/:id/availability/check?start&end.
func (h *HallHandler) CheckAvailability(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	r, err := rangeQuery(c, 0)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	chk, err := h.Svc.CheckAvailability(ctx, id, r)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, chk)
}

// Quote handles GET /v1/halls/:id/quote?start&end.
func (h *HallHandler) Quote(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	r, err := rangeQuery(c, 0)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	q, err := h.Svc.Quote(ctx, id, r)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, q)
}

// PricingRules handles GET /v1/halls/:id/pricing-rules.
func (h *HallHandler) PricingRules(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	rules, err := h.Svc.PricingRules(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"hall_id": id, "items": rules})
}
