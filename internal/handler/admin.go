package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-reservation/internal/apperror"
	"github.com/iliyamo/hall-reservation/internal/middleware"
	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/service"
)

// AdminHandler serves the /v1/admin endpoints.  Routes are guarded by
// RequireRole(ADMIN); the engine checks the role again.
type AdminHandler struct {
	Svc *service.Reservations
	// Horizon is the default window of calendar reads and seeding.
	Horizon int
}

func NewAdminHandler(svc *service.Reservations, horizon int) *AdminHandler {
	return &AdminHandler{Svc: svc, Horizon: horizon}
}

type reviewReq struct {
	Action string  `json:"action"`
	Reason *string `json:"reason"`
}

type setDayReq struct {
	Available *bool `json:"available"`
}

type setRangeReq struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	Available *bool  `json:"available"`
}

type seedReq struct {
	Days int `json:"days"`
}

type pricingRuleReq struct {
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	PricePerDayCents int64  `json:"price_per_day_cents"`
}

type createHallReq struct {
	Name             string   `json:"name"`
	Location         *string  `json:"location"`
	Address          *string  `json:"address"`
	Capacity         uint32   `json:"capacity"`
	DefaultRateCents int64    `json:"default_rate_cents"`
	Description      *string  `json:"description"`
	Amenities        []string `json:"amenities"`
}

// Bookings handles GET /v1/admin/bookings?status=.
func (h *AdminHandler) Bookings(c echo.Context) error {
	var status *model.Status
	if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
		s, err := model.ParseStatus(raw)
		if err != nil {
			return respondError(c, apperror.Validation("status", err.Error()))
		}
		status = &s
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	items, err := h.Svc.ListBookings(ctx, middleware.CallerFrom(c), status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// PaymentReview handles POST /v1/admin/bookings/:id/payment-review.
func (h *AdminHandler) PaymentReview(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	approve, err := reviewAction(strings.ToLower(strings.TrimSpace(req.Action)), "verify", "reject")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := h.Svc.ReviewPayment(ctx, middleware.CallerFrom(c), id, approve, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// CancellationReview handles POST /v1/admin/bookings/:id/cancellation-review.
func (h *AdminHandler) CancellationReview(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	approve, err := reviewAction(strings.ToLower(strings.TrimSpace(req.Action)), "approve", "reject")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := h.Svc.ReviewCancellation(ctx, middleware.CallerFrom(c), id, approve, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Overview handles GET /v1/admin/overview.
func (h *AdminHandler) Overview(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	ov, err := h.Svc.Overview(ctx, middleware.CallerFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, ov)
}

// CreateHall handles POST /v1/admin/halls.
func (h *AdminHandler) CreateHall(c echo.Context) error {
	var req createHallReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	hall := &model.Hall{
		Name:             req.Name,
		Location:         req.Location,
		Address:          req.Address,
		Capacity:         req.Capacity,
		DefaultRateCents: req.DefaultRateCents,
		Description:      req.Description,
		Amenities:        req.Amenities,
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Svc.CreateHall(ctx, hall); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, hall)
}

// Availability handles GET /v1/admin/halls/:id/availability?start&end.
func (h *AdminHandler) Availability(c echo.Context) error {
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

// SetDay handles PUT /v1/admin/halls/:id/availability/:date.
func (h *AdminHandler) SetDay(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	date, err := model.ParseDate(c.Param("date"))
	if err != nil {
		return respondError(c, apperror.Validation("date", "must be a YYYY-MM-DD date"))
	}
	var req setDayReq
	if err := c.Bind(&req); err != nil || req.Available == nil {
		return respondError(c, apperror.Validation("available", "is required"))
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Svc.SetAvailability(ctx, middleware.CallerFrom(c), id, date, *req.Available); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, model.DayStatus{Date: model.FormatDate(date), Available: *req.Available})
}

// SetRange handles PUT /v1/admin/halls/:id/availability.
func (h *AdminHandler) SetRange(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req setRangeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Available == nil {
		return respondError(c, apperror.Validation("available", "is required"))
	}
	r, err := model.ParseDateRange("start", req.Start, "end", req.End)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Svc.SetAvailabilityRange(ctx, middleware.CallerFrom(c), id, r, *req.Available); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"hall_id":   id,
		"start":     model.FormatDate(r.Start),
		"end":       model.FormatDate(r.End),
		"available": *req.Available,
		"days":      r.Days(),
	})
}

// Seed handles POST /v1/admin/halls/:id/availability/seed.  An empty
// body seeds the default horizon.
func (h *AdminHandler) Seed(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	req := seedReq{Days: h.Horizon}
	_ = c.Bind(&req)
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	days, err := h.Svc.SeedAvailability(ctx, middleware.CallerFrom(c), id, req.Days)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"hall_id": id, "days": days})
}

// AddPricingRule handles POST /v1/admin/halls/:id/pricing-rules.
func (h *AdminHandler) AddPricingRule(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req pricingRuleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	r, err := model.ParseDateRange("start_date", req.StartDate, "end_date", req.EndDate)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	rule, err := h.Svc.AddPricingRule(ctx, middleware.CallerFrom(c), id, r, req.PricePerDayCents)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, rule)
}

// ClearPricingRules handles DELETE /v1/admin/halls/:id/pricing-rules.
func (h *AdminHandler) ClearPricingRules(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	n, err := h.Svc.ClearPricingRules(ctx, middleware.CallerFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"hall_id": id, "deleted": n})
}

// DeletePricingRule handles DELETE /v1/admin/pricing-rules/:id.
func (h *AdminHandler) DeletePricingRule(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Svc.DeletePricingRule(ctx, middleware.CallerFrom(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
