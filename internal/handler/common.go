package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hall-reservation/internal/apperror"
	"github.com/iliyamo/hall-reservation/internal/model"
)

// requestTimeout bounds the work done for one request.
const requestTimeout = 5 * time.Second

// respondError maps engine errors onto HTTP responses.  Anything outside
// the taxonomy is a 500 and is not echoed to the client.
func respondError(c echo.Context, err error) error {
	var (
		ve *apperror.ValidationError
		nf *apperror.NotFoundError
		ae *apperror.AuthorizationError
		ce *apperror.ConflictError
		te *apperror.InvalidStateTransitionError
	)
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Error(), "field": ve.Field})
	case errors.As(err, &nf):
		return c.JSON(http.StatusNotFound, echo.Map{"error": nf.Error()})
	case errors.As(err, &ae):
		if ae.Unauthenticated {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": ae.Error()})
		}
		return c.JSON(http.StatusForbidden, echo.Map{"error": ae.Error()})
	case errors.As(err, &ce):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":      ce.Error(),
			"hall_id":    ce.HallID,
			"start_date": ce.Start,
			"end_date":   ce.End,
		})
	case errors.As(err, &te):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":  te.Error(),
			"status": te.From,
			"action": te.Action,
		})
	}
	logrus.WithError(err).WithFields(logrus.Fields{
		"method": c.Request().Method,
		"path":   c.Path(),
	}).Error("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.Validation(name, "must be a positive integer")
	}
	return id, nil
}

// rangeQuery reads ?start=&end=.  When both are absent and horizon is
// positive the range defaults to horizon days from today.
func rangeQuery(c echo.Context, horizon int) (model.DateRange, error) {
	start, end := c.QueryParam("start"), c.QueryParam("end")
	if start == "" && end == "" && horizon > 0 {
		return model.HorizonFrom(time.Now().UTC(), horizon), nil
	}
	return model.ParseDateRange("start", start, "end", end)
}

// reviewAction maps the review body's action onto approve/reject.
func reviewAction(action, approve, reject string) (bool, error) {
	switch action {
	case approve:
		return true, nil
	case reject:
		return false, nil
	}
	return false, apperror.Validation("action", "must be "+approve+" or "+reject)
}
