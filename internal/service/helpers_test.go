package service_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/queue"
	"github.com/iliyamo/hall-reservation/internal/repository/memory"
	"github.com/iliyamo/hall-reservation/internal/service"
)

var (
	clock    = time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
	admin    = model.Caller{UserID: 1, Role: model.RoleAdmin}
	alice    = model.Caller{UserID: 10, Role: model.RoleCustomer}
	bob      = model.Caller{UserID: 11, Role: model.RoleCustomer}
	anonymous = model.Caller{}
)

type recorder struct {
	mu     sync.Mutex
	events []queue.BookingEvent
}

func (r *recorder) Publish(_ context.Context, ev queue.BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []queue.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]queue.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	st     *memory.Store
	svc    *service.Reservations
	events *recorder
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newFixture(t *testing.T, opts ...service.Option) *fixture {
	t.Helper()
	f := &fixture{st: memory.New(), events: &recorder{}}
	base := []service.Option{
		service.WithClock(func() time.Time { return clock }),
		service.WithGenerator(service.GeneratorFunc(func(time.Time) bool { return true })),
		service.WithEvents(f.events),
		service.WithLogger(quietLogger()),
	}
	f.svc = service.New(f.st, append(base, opts...)...)
	return f
}

func (f *fixture) hall(t *testing.T, name string, rate int64) uint64 {
	t.Helper()
	h := &model.Hall{Name: name, Capacity: 200, DefaultRateCents: rate}
	require.NoError(t, f.svc.CreateHall(context.Background(), h))
	return h.ID
}

func dr(t *testing.T, start, end string) model.DateRange {
	t.Helper()
	r, err := model.ParseDateRange("start_date", start, "end_date", end)
	require.NoError(t, err)
	return r
}

func request(hallID uint64, r model.DateRange) service.CreateBookingRequest {
	return service.CreateBookingRequest{
		HallID: hallID,
		Range:  r,
		Details: model.BookingDetails{
			EventName:    "Wedding reception",
			ContactName:  "Alice",
			ContactPhone: "+1 555 0100",
		},
	}
}

// book creates a booking for caller on r and returns its id.
func (f *fixture) book(t *testing.T, caller model.Caller, hallID uint64, r model.DateRange) uint64 {
	t.Helper()
	b, err := f.svc.CreateBooking(context.Background(), caller, request(hallID, r))
	require.NoError(t, err)
	return b.ID
}

// confirm drives a booking from pending_payment to confirmed.
func (f *fixture) confirm(t *testing.T, caller model.Caller, id uint64) {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.SubmitPayment(ctx, caller, id, "payment_slips/test.png")
	require.NoError(t, err)
	b, err := f.svc.ReviewPayment(ctx, admin, id, true, nil)
	require.NoError(t, err)
	require.Equal(t, model.StatusConfirmed, b.Status)
}

func availability(t *testing.T, f *fixture, hallID uint64, r model.DateRange) []bool {
	t.Helper()
	days, err := f.svc.Availability(context.Background(), hallID, r)
	require.NoError(t, err)
	out := make([]bool, len(days))
	for i, d := range days {
		out[i] = d.Available
	}
	return out
}
