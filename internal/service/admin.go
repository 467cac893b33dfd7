package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/hall-reservation/internal/apperror"
	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/store"
)

// Overview summarises bookings for the admin dashboard.  Income only
// counts confirmed bookings; the month is that of the verification
// time, or of creation when a booking was never verified.
type Overview struct {
	TotalIncomeCents   int64 `json:"total_income_cents"`
	MonthIncomeCents   int64 `json:"month_income_cents"`
	PendingPayments    int   `json:"pending_payments"`
	CancelRequests     int   `json:"cancel_requests"`
	ConfirmedCount     int   `json:"confirmed_count"`
	ConfirmedThisMonth int   `json:"confirmed_this_month"`
}

func sameMonth(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// Overview computes the dashboard figures.
func (o *Reservations) Overview(ctx context.Context, caller model.Caller) (Overview, error) {
	ctx, span := o.start(ctx, "Overview")
	defer span.End()

	if err := requireAdmin(caller); err != nil {
		return Overview{}, o.fail(span, "overview", err)
	}
	all, err := o.store.Repos().Bookings.List(ctx, nil)
	if err != nil {
		return Overview{}, o.fail(span, "overview", err)
	}
	now := o.now()
	var ov Overview
	for _, b := range all {
		switch b.Status {
		case model.StatusPaidPendingReview:
			ov.PendingPayments++
		case model.StatusCancelRequested:
			ov.CancelRequests++
		case model.StatusConfirmed:
			ov.ConfirmedCount++
			ov.TotalIncomeCents += b.TotalCents
			at := b.CreatedAt
			if b.VerifiedAt != nil {
				at = *b.VerifiedAt
			}
			if sameMonth(at, now) {
				ov.ConfirmedThisMonth++
				ov.MonthIncomeCents += b.TotalCents
			}
		}
	}
	return ov, nil
}

// ListHalls returns the hall catalogue.
func (o *Reservations) ListHalls(ctx context.Context) ([]*model.Hall, error) {
	ctx, span := o.start(ctx, "ListHalls")
	defer span.End()

	halls, err := o.store.Repos().Halls.List(ctx)
	if err != nil {
		return nil, o.fail(span, "list halls", err)
	}
	return halls, nil
}

// GetHall returns one hall.
func (o *Reservations) GetHall(ctx context.Context, hallID uint64) (*model.Hall, error) {
	ctx, span := o.start(ctx, "GetHall", attribute.Int64("hall_id", int64(hallID)))
	defer span.End()

	h, err := o.hall(ctx, hallID)
	if err != nil {
		return nil, o.fail(span, "get hall", err)
	}
	return h, nil
}

// CreateHall adds a hall to the catalogue.  It does not check the
// caller; the HTTP route is admin-only and the CLI is trusted.
func (o *Reservations) CreateHall(ctx context.Context, h *model.Hall) error {
	ctx, span := o.start(ctx, "CreateHall")
	defer span.End()

	h.Name = strings.TrimSpace(h.Name)
	switch {
	case h.Name == "":
		return o.fail(span, "create hall", apperror.Validation("name", "is required"))
	case h.Capacity == 0:
		return o.fail(span, "create hall", apperror.Validation("capacity", "must be greater than zero"))
	case h.DefaultRateCents <= 0:
		return o.fail(span, "create hall", apperror.Validation("default_rate_cents", "must be greater than zero"))
	}
	if err := o.store.Repos().Halls.Create(ctx, h); err != nil {
		return o.fail(span, "create hall", err)
	}
	o.log.WithFields(logrus.Fields{"hall_id": h.ID, "name": h.Name}).Info("hall created")
	return nil
}

// Availability returns the calendar of a hall over r.
func (o *Reservations) Availability(ctx context.Context, hallID uint64, r model.DateRange) ([]model.DayStatus, error) {
	ctx, span := o.start(ctx, "Availability", attribute.Int64("hall_id", int64(hallID)))
	defer span.End()

	if err := checkRange(r); err != nil {
		return nil, o.fail(span, "availability", err)
	}
	if _, err := o.hall(ctx, hallID); err != nil {
		return nil, o.fail(span, "availability", err)
	}
	days, err := o.bind(o.store.Repos()).calendar.Get(ctx, hallID, r)
	if err != nil {
		return nil, o.fail(span, "availability", err)
	}
	return days, nil
}

// SetAvailability sets one day of a hall.
func (o *Reservations) SetAvailability(ctx context.Context, caller model.Caller, hallID uint64, date time.Time, available bool) error {
	ctx, span := o.start(ctx, "SetAvailability", attribute.Int64("hall_id", int64(hallID)))
	defer span.End()

	if err := requireAdmin(caller); err != nil {
		return o.fail(span, "set availability", err)
	}
	err := o.inHall(ctx, hallID, func(c components) error {
		return c.calendar.Set(ctx, hallID, date, available)
	})
	if err != nil {
		return o.fail(span, "set availability", err)
	}
	return nil
}

// SetAvailabilityRange sets every day of r in one transaction.
func (o *Reservations) SetAvailabilityRange(ctx context.Context, caller model.Caller, hallID uint64, r model.DateRange, available bool) error {
	ctx, span := o.start(ctx, "SetAvailabilityRange", attribute.Int64("hall_id", int64(hallID)))
	defer span.End()

	if err := requireAdmin(caller); err != nil {
		return o.fail(span, "set availability range", err)
	}
	if err := checkRange(r); err != nil {
		return o.fail(span, "set availability range", err)
	}
	err := o.inHall(ctx, hallID, func(c components) error {
		return c.calendar.SetRange(ctx, hallID, r, available)
	})
	if err != nil {
		return o.fail(span, "set availability range", err)
	}
	o.log.WithFields(logrus.Fields{"hall_id": hallID, "range": r.String(), "available": available}).Info("availability range set")
	return nil
}

// SeedAvailability regenerates the next days of a hall's calendar and
// returns the resulting entries.
func (o *Reservations) SeedAvailability(ctx context.Context, caller model.Caller, hallID uint64, days int) ([]model.DayStatus, error) {
	ctx, span := o.start(ctx, "SeedAvailability", attribute.Int64("hall_id", int64(hallID)), attribute.Int("days", days))
	defer span.End()

	if err := requireAdmin(caller); err != nil {
		return nil, o.fail(span, "seed availability", err)
	}
	var out []model.DayStatus
	err := o.inHall(ctx, hallID, func(c components) error {
		r, err := c.calendar.Seed(ctx, hallID, days)
		if err != nil {
			return err
		}
		out, err = c.calendar.Get(ctx, hallID, r)
		return err
	})
	if err != nil {
		return nil, o.fail(span, "seed availability", err)
	}
	o.log.WithFields(logrus.Fields{"hall_id": hallID, "days": days}).Info("availability seeded")
	return out, nil
}

// PricingRules lists a hall's rules in the order they are applied.
func (o *Reservations) PricingRules(ctx context.Context, hallID uint64) ([]model.PricingRule, error) {
	ctx, span := o.start(ctx, "PricingRules", attribute.Int64("hall_id", int64(hallID)))
	defer span.End()

	if _, err := o.hall(ctx, hallID); err != nil {
		return nil, o.fail(span, "pricing rules", err)
	}
	rules, err := o.bind(o.store.Repos()).pricing.RulesFor(ctx, hallID)
	if err != nil {
		return nil, o.fail(span, "pricing rules", err)
	}
	return rules, nil
}

// AddPricingRule upserts a rule for the hall.  Existing bookings keep
// their price snapshot.
func (o *Reservations) AddPricingRule(ctx context.Context, caller model.Caller, hallID uint64, r model.DateRange, pricePerDayCents int64) (*model.PricingRule, error) {
	ctx, span := o.start(ctx, "AddPricingRule", attribute.Int64("hall_id", int64(hallID)))
	defer span.End()

	if err := requireAdmin(caller); err != nil {
		return nil, o.fail(span, "add pricing rule", err)
	}
	if err := checkRange(r); err != nil {
		return nil, o.fail(span, "add pricing rule", err)
	}
	var rule *model.PricingRule
	err := o.inHall(ctx, hallID, func(c components) error {
		var err error
		rule, err = c.pricing.AddRule(ctx, hallID, r, pricePerDayCents)
		return err
	})
	if err != nil {
		return nil, o.fail(span, "add pricing rule", err)
	}
	return rule, nil
}

// DeletePricingRule removes one rule.
func (o *Reservations) DeletePricingRule(ctx context.Context, caller model.Caller, ruleID uint64) error {
	ctx, span := o.start(ctx, "DeletePricingRule", attribute.Int64("rule_id", int64(ruleID)))
	defer span.End()

	if err := requireAdmin(caller); err != nil {
		return o.fail(span, "delete pricing rule", err)
	}
	rule, err := o.store.Repos().Pricing.GetByID(ctx, ruleID)
	if errors.Is(err, store.ErrNotFound) {
		return o.fail(span, "delete pricing rule", apperror.NotFound("pricing rule", ruleID))
	}
	if err != nil {
		return o.fail(span, "delete pricing rule", err)
	}
	err = o.inHall(ctx, rule.HallID, func(c components) error {
		err := c.pricing.DeleteRule(ctx, ruleID)
		if errors.Is(err, store.ErrNotFound) {
			return apperror.NotFound("pricing rule", ruleID)
		}
		return err
	})
	if err != nil {
		return o.fail(span, "delete pricing rule", err)
	}
	return nil
}

// ClearPricingRules removes every rule of the hall and returns how many
// were removed.
func (o *Reservations) ClearPricingRules(ctx context.Context, caller model.Caller, hallID uint64) (int64, error) {
	ctx, span := o.start(ctx, "ClearPricingRules", attribute.Int64("hall_id", int64(hallID)))
	defer span.End()

	if err := requireAdmin(caller); err != nil {
		return 0, o.fail(span, "clear pricing rules", err)
	}
	var n int64
	err := o.inHall(ctx, hallID, func(c components) error {
		var err error
		n, err = c.pricing.ClearRules(ctx, hallID)
		return err
	})
	if err != nil {
		return 0, o.fail(span, "clear pricing rules", err)
	}
	return n, nil
}
