// Package service implements the reservation engine: the calendar,
// pricing, conflict and ledger components and the Reservations façade
// that composes them under a per-hall lock.
package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/hall-reservation/internal/apperror"
	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/queue"
	"github.com/iliyamo/hall-reservation/internal/store"
)

// MaxRangeDays bounds every date range accepted from callers.
const MaxRangeDays = 731

// SlipStore persists payment evidence and returns a reference to it.
type SlipStore interface {
	// Check rejects a file name before any bytes are read.
	Check(filename string) error
	Save(ctx context.Context, bookingID uint64, filename string, r io.Reader) (string, error)
}

// Reservations is the entry point of the engine.  Every method that
// reads or changes which days of a hall are taken runs in one
// transaction holding that hall's lock.
type Reservations struct {
	store  store.Store
	gen    AvailabilityGenerator
	slips  SlipStore
	events EventPublisher
	log    logrus.FieldLogger
	tracer trace.Tracer
	now    func() time.Time
}

// Option customises Reservations.
type Option func(*Reservations)

// WithGenerator replaces the seeding generator.
func WithGenerator(g AvailabilityGenerator) Option { return func(o *Reservations) { o.gen = g } }

// WithSlipStore enables slip uploads.
func WithSlipStore(s SlipStore) Option { return func(o *Reservations) { o.slips = s } }

// WithEvents sets the lifecycle event publisher.
func WithEvents(p EventPublisher) Option { return func(o *Reservations) { o.events = p } }

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option { return func(o *Reservations) { o.log = l } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(o *Reservations) { o.now = now } }

// New builds the engine on top of st.
func New(st store.Store, opts ...Option) *Reservations {
	o := &Reservations{
		store:  st,
		gen:    NewRandomGenerator(time.Now().UnixNano()),
		events: queue.Discard{},
		log:    logrus.StandardLogger(),
		tracer: otel.Tracer("github.com/iliyamo/hall-reservation/internal/service"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// components bundles the engine parts bound to one set of repositories.
type components struct {
	repos     store.Repos
	calendar  *CalendarStore
	pricing   *PricingCalendar
	conflicts *ConflictChecker
	ledger    *BookingLedger
}

func (o *Reservations) bind(r store.Repos) components {
	cal := NewCalendarStore(r.Calendar, o.gen, o.now)
	conf := NewConflictChecker(r.Bookings)
	return components{
		repos:     r,
		calendar:  cal,
		pricing:   NewPricingCalendar(r.Pricing),
		conflicts: conf,
		ledger:    NewBookingLedger(r.Bookings, cal, conf, o.now),
	}
}

// start opens a span for op.
func (o *Reservations) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, "reservations."+op, trace.WithAttributes(attrs...))
}

// fail records err on span and returns it as a taxonomy error.
func (o *Reservations) fail(span trace.Span, op string, err error) error {
	err = apperror.Infra(op, err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	var ie *apperror.InfraError
	if errors.As(err, &ie) {
		o.log.WithError(ie.Err).WithField("op", op).Error("storage failure")
	}
	return err
}

// inHall runs fn in a transaction holding hallID's lock.  A missing hall
// becomes a NotFoundError.
func (o *Reservations) inHall(ctx context.Context, hallID uint64, fn func(c components) error) error {
	err := o.store.InTx(ctx, hallID, func(r store.Repos) error { return fn(o.bind(r)) })
	if errors.Is(err, store.ErrNotFound) {
		return apperror.NotFound("hall", hallID)
	}
	return err
}

// hall loads a hall outside any transaction.
func (o *Reservations) hall(ctx context.Context, id uint64) (*model.Hall, error) {
	h, err := o.store.Repos().Halls.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperror.NotFound("hall", id)
	}
	return h, err
}

func checkRange(r model.DateRange) error {
	if r.End.Before(r.Start) {
		return apperror.Validation("end_date", "must be on or after start_date")
	}
	if r.Days() > MaxRangeDays {
		return apperror.Validation("end_date", "range must not exceed 731 days")
	}
	return nil
}

func requireUser(caller model.Caller) error {
	if !caller.Authenticated() {
		return &apperror.AuthorizationError{Reason: "authentication required", Unauthenticated: true}
	}
	return nil
}

func requireAdmin(caller model.Caller) error {
	if err := requireUser(caller); err != nil {
		return err
	}
	if !caller.IsAdmin() {
		return apperror.Forbidden("admin role required")
	}
	return nil
}

// Quote prices r for the hall without reserving anything.
func (o *Reservations) Quote(ctx context.Context, hallID uint64, r model.DateRange) (model.Quote, error) {
	ctx, span := o.start(ctx, "Quote", attribute.Int64("hall_id", int64(hallID)))
	defer span.End()

	if err := checkRange(r); err != nil {
		return model.Quote{}, o.fail(span, "quote", err)
	}
	h, err := o.hall(ctx, hallID)
	if err != nil {
		return model.Quote{}, o.fail(span, "quote", err)
	}
	total, err := o.bind(o.store.Repos()).pricing.Quote(ctx, hallID, r, h.DefaultRateCents)
	if err != nil {
		return model.Quote{}, o.fail(span, "quote", err)
	}
	return model.Quote{
		HallID:           hallID,
		StartDate:        model.FormatDate(r.Start),
		EndDate:          model.FormatDate(r.End),
		Days:             r.Days(),
		TotalCents:       total,
		DefaultRateCents: h.DefaultRateCents,
	}, nil
}

// AvailabilityCheck is the answer to CheckAvailability.  Available is
// true only when both underlying checks pass.
type AvailabilityCheck struct {
	Available         bool `json:"available"`
	CalendarAvailable bool `json:"calendar_available"`
	BookingAvailable  bool `json:"booking_available"`
}

// CheckAvailability reports whether r could be booked right now.  The
// answer is advisory; CreateBooking checks again under the lock.
func (o *Reservations) CheckAvailability(ctx context.Context, hallID uint64, r model.DateRange) (AvailabilityCheck, error) {
	ctx, span := o.start(ctx, "CheckAvailability", attribute.Int64("hall_id", int64(hallID)))
	defer span.End()

	if err := checkRange(r); err != nil {
		return AvailabilityCheck{}, o.fail(span, "check availability", err)
	}
	if _, err := o.hall(ctx, hallID); err != nil {
		return AvailabilityCheck{}, o.fail(span, "check availability", err)
	}
	c := o.bind(o.store.Repos())
	calOK, err := c.calendar.IsRangeAvailable(ctx, hallID, r)
	if err != nil {
		return AvailabilityCheck{}, o.fail(span, "check availability", err)
	}
	taken, err := c.conflicts.HasConflict(ctx, hallID, r, 0)
	if err != nil {
		return AvailabilityCheck{}, o.fail(span, "check availability", err)
	}
	return AvailabilityCheck{
		Available:         calOK && !taken,
		CalendarAvailable: calOK,
		BookingAvailable:  !taken,
	}, nil
}

// CreateBookingRequest carries the input of CreateBooking.
type CreateBookingRequest struct {
	HallID  uint64
	Range   model.DateRange
	Details model.BookingDetails
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}

func (req *CreateBookingRequest) normalize() error {
	d := &req.Details
	d.EventName = strings.TrimSpace(d.EventName)
	d.ContactName = strings.TrimSpace(d.ContactName)
	d.ContactPhone = strings.TrimSpace(d.ContactPhone)
	d.ContactEmail = trimmed(d.ContactEmail)
	d.Notes = trimmed(d.Notes)
	switch {
	case req.HallID == 0:
		return apperror.Validation("hall_id", "is required")
	case d.EventName == "":
		return apperror.Validation("event_name", "is required")
	case d.ContactName == "":
		return apperror.Validation("contact_name", "is required")
	case d.ContactPhone == "":
		return apperror.Validation("contact_phone", "is required")
	}
	return checkRange(req.Range)
}

// CreateBooking reserves req.Range for the caller in pending_payment.
// Availability and conflicts are re-checked and the total is priced
// under the hall lock, so the snapshot matches the rules at creation.
func (o *Reservations) CreateBooking(ctx context.Context, caller model.Caller, req CreateBookingRequest) (*model.Booking, error) {
	ctx, span := o.start(ctx, "CreateBooking", attribute.Int64("hall_id", int64(req.HallID)))
	defer span.End()

	if err := requireUser(caller); err != nil {
		return nil, o.fail(span, "create booking", err)
	}
	if err := req.normalize(); err != nil {
		return nil, o.fail(span, "create booking", err)
	}

	var created *model.Booking
	err := o.inHall(ctx, req.HallID, func(c components) error {
		h, err := c.repos.Halls.GetByID(ctx, req.HallID)
		if err != nil {
			return err
		}
		if err := c.ledger.ensureFree(ctx, h.ID, req.Range, 0); err != nil {
			return err
		}
		total, err := c.pricing.Quote(ctx, h.ID, req.Range, h.DefaultRateCents)
		if err != nil {
			return err
		}
		b := model.NewBooking(caller.UserID, h.ID, req.Range, total, req.Details, o.now().UTC())
		if err := c.ledger.Create(ctx, b); err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		return nil, o.fail(span, "create booking", err)
	}

	span.SetAttributes(attribute.Int64("booking_id", int64(created.ID)))
	o.log.WithFields(logrus.Fields{
		"booking_id": created.ID,
		"hall_id":    created.HallID,
		"user_id":    created.UserID,
		"range":      req.Range.String(),
	}).Info("booking created")
	o.publish(ctx, queue.EventCreated, created, caller, nil)
	return created, nil
}
