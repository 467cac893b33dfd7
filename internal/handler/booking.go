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

// BookingHandler serves the customer side of the booking lifecycle.
type BookingHandler struct {
	Svc *service.Reservations
	// MaxSlipBytes caps multipart uploads before they reach the store.
	MaxSlipBytes int64
}

func NewBookingHandler(svc *service.Reservations, maxSlipBytes int64) *BookingHandler {
	return &BookingHandler{Svc: svc, MaxSlipBytes: maxSlipBytes}
}

type createBookingReq struct {
	HallID       uint64  `json:"hall_id"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	EventName    string  `json:"event_name"`
	ContactName  string  `json:"contact_name"`
	ContactPhone string  `json:"contact_phone"`
	ContactEmail *string `json:"contact_email"`
	Notes        *string `json:"notes"`
}

type paymentReq struct {
	SlipRef string `json:"slip_ref"`
}

type cancelReq struct {
	Reason *string `json:"reason"`
}

// Create handles POST /v1/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	r, err := model.ParseDateRange("start_date", req.StartDate, "end_date", req.EndDate)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := h.Svc.CreateBooking(ctx, middleware.CallerFrom(c), service.CreateBookingRequest{
		HallID: req.HallID,
		Range:  r,
		Details: model.BookingDetails{
			EventName:    req.EventName,
			ContactName:  req.ContactName,
			ContactPhone: req.ContactPhone,
			ContactEmail: req.ContactEmail,
			Notes:        req.Notes,
		},
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Mine handles GET /v1/my-bookings.
func (h *BookingHandler) Mine(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	items, err := h.Svc.ListMyBookings(ctx, middleware.CallerFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := h.Svc.GetBooking(ctx, middleware.CallerFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// SubmitPayment handles POST /v1/bookings/:id/payment.  A multipart body
// carries the slip file in the "slip" field; a JSON body carries an
// existing evidence reference in "slip_ref".
func (h *BookingHandler) SubmitPayment(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	caller := middleware.CallerFrom(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := c.FormFile("slip")
		if err != nil {
			return respondError(c, apperror.Validation("slip", "file is required"))
		}
		if h.MaxSlipBytes > 0 && fh.Size > h.MaxSlipBytes {
			return respondError(c, apperror.Validation("slip", "file is too large"))
		}
		f, err := fh.Open()
		if err != nil {
			return respondError(c, apperror.Validation("slip", "file cannot be read"))
		}
		defer f.Close()

		b, err := h.Svc.UploadPaymentSlip(ctx, caller, id, fh.Filename, f)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, b)
	}

	var req paymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	b, err := h.Svc.SubmitPayment(ctx, caller, id, req.SlipRef)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Cancel handles POST /v1/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req cancelReq
	_ = c.Bind(&req) // the reason is optional
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := h.Svc.RequestCancellation(ctx, middleware.CallerFrom(c), id, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Delete handles DELETE /v1/bookings/:id.
func (h *BookingHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Svc.DeleteBooking(ctx, middleware.CallerFrom(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
