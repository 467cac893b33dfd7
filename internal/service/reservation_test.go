package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hall-reservation/internal/apperror"
	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/queue"
)

func TestQuoteMixesRuleAndDefaultRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hall := f.hall(t, "Grand", 3500)

	// rule covers 2025-06-01..2025-06-07; the query starts on its fifth day
	_, err := f.svc.AddPricingRule(ctx, admin, hall, dr(t, "2025-06-01", "2025-06-07"), 3150)
	require.NoError(t, err)

	q, err := f.svc.Quote(ctx, hall, dr(t, "2025-06-05", "2025-06-09"))
	require.NoError(t, err)
	assert.Equal(t, int64(16450), q.TotalCents)
	assert.Equal(t, 5, q.Days)
	assert.Equal(t, int64(3500), q.DefaultRateCents)

	again, err := f.svc.Quote(ctx, hall, dr(t, "2025-06-05", "2025-06-09"))
	require.NoError(t, err)
	assert.Equal(t, q, again)
}

func TestQuoteUnknownHall(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Quote(context.Background(), 42, dr(t, "2025-06-01", "2025-06-02"))
	var nf *apperror.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "hall", nf.Resource)
}

func TestCreateBookingConflictsWithConfirmedBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hall1 := f.hall(t, "Hall 1", 5000)
	hall2 := f.hall(t, "Hall 2", 5000)

	a := f.book(t, alice, hall1, dr(t, "2025-06-01", "2025-06-05"))
	f.confirm(t, alice, a)

	_, err := f.svc.CreateBooking(ctx, bob, request(hall1, dr(t, "2025-06-04", "2025-06-10")))
	var ce *apperror.ConflictError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, hall1, ce.HallID)

	b, err := f.svc.CreateBooking(ctx, bob, request(hall2, dr(t, "2025-06-04", "2025-06-10")))
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingPayment, b.Status)
	assert.Equal(t, int64(7*5000), b.TotalCents)
}

func TestCreateBookingSharedBoundaryDayConflicts(t *testing.T) {
	f := newFixture(t)
	hall := f.hall(t, "Hall", 1000)
	a := f.book(t, alice, hall, dr(t, "2025-06-01", "2025-06-05"))
	f.confirm(t, alice, a)

	_, err := f.svc.CreateBooking(context.Background(), bob, request(hall, dr(t, "2025-06-05", "2025-06-06")))
	var ce *apperror.ConflictError
	assert.True(t, errors.As(err, &ce))

	// the day after is free
	f.book(t, bob, hall, dr(t, "2025-06-06", "2025-06-07"))
}

func TestCreateBookingRejectsUnavailableDays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hall := f.hall(t, "Hall", 1000)
	require.NoError(t, f.svc.SetAvailability(ctx, admin, hall, dr(t, "2025-06-03", "2025-06-03").Start, false))

	_, err := f.svc.CreateBooking(ctx, alice, request(hall, dr(t, "2025-06-01", "2025-06-05")))
	var ce *apperror.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, ce.Reason, "unavailable")
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hall := f.hall(t, "Hall", 1000)

	_, err := f.svc.CreateBooking(ctx, anonymous, request(hall, dr(t, "2025-06-01", "2025-06-02")))
	var ae *apperror.AuthorizationError
	require.True(t, errors.As(err, &ae))
	assert.True(t, ae.Unauthenticated)

	req := request(hall, dr(t, "2025-06-01", "2025-06-02"))
	req.Details.ContactPhone = "   "
	_, err = f.svc.CreateBooking(ctx, alice, req)
	var ve *apperror.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "contact_phone", ve.Field)

	_, err = f.svc.CreateBooking(ctx, alice, request(hall, dr(t, "2025-01-01", "2027-01-10")))
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "end_date", ve.Field)

	_, err = f.svc.CreateBooking(ctx, alice, request(99, dr(t, "2025-06-01", "2025-06-02")))
	var nf *apperror.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestPendingBookingsMayOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hall := f.hall(t, "Hall", 1000)
	f.book(t, alice, hall, dr(t, "2025-06-01", "2025-06-05"))
	f.book(t, bob, hall, dr(t, "2025-06-03", "2025-06-04"))

	chk, err := f.svc.CheckAvailability(ctx, hall, dr(t, "2025-06-01", "2025-06-05"))
	require.NoError(t, err)
	assert.True(t, chk.Available)
}

func TestCheckAvailabilityBreakdown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hall := f.hall(t, "Hall", 1000)

	id := f.book(t, alice, hall, dr(t, "2025-06-10", "2025-06-12"))
	_, err := f.svc.SubmitPayment(ctx, alice, id, "ref")
	require.NoError(t, err)

	chk, err := f.svc.CheckAvailability(ctx, hall, dr(t, "2025-06-12", "2025-06-14"))
	require.NoError(t, err)
	assert.Equal(t, false, chk.Available)
	assert.Equal(t, true, chk.CalendarAvailable)
	assert.Equal(t, false, chk.BookingAvailable)

	require.NoError(t, f.svc.SetAvailability(ctx, admin, hall, dr(t, "2025-06-20", "2025-06-20").Start, false))
	chk, err = f.svc.CheckAvailability(ctx, hall, dr(t, "2025-06-19", "2025-06-21"))
	require.NoError(t, err)
	assert.False(t, chk.Available)
	assert.False(t, chk.CalendarAvailable)
	assert.True(t, chk.BookingAvailable)
}

// Several users hold overlapping unpaid bookings; only one payment may
// be submitted for the shared days.
func TestConcurrentSubmitPaymentAdmitsOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hall := f.hall(t, "Hall", 1000)

	const n = 8
	ids := make([]uint64, n)
	callers := make([]model.Caller, n)
	for i := range ids {
		callers[i] = model.Caller{UserID: uint64(100 + i), Role: model.RoleCustomer}
		ids[i] = f.book(t, callers[i], hall, dr(t, "2025-07-01", "2025-07-03"))
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.SubmitPayment(ctx, callers[i], ids[i], "ref")
			mu.Lock()
			defer mu.Unlock()
			var ce *apperror.ConflictError
			switch {
			case err == nil:
				ok++
			case errors.As(err, &ce):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)

	blocking := 0
	for _, id := range ids {
		b, err := f.svc.GetBooking(ctx, admin, id)
		require.NoError(t, err)
		if b.Status.Blocking() {
			blocking++
		}
	}
	assert.Equal(t, 1, blocking)
}

func TestConcurrentCreateAfterConfirmation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hall := f.hall(t, "Hall", 1000)
	id := f.book(t, alice, hall, dr(t, "2025-08-01", "2025-08-02"))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := f.svc.SubmitPayment(ctx, alice, id, "ref")
		assert.NoError(t, err)
		_, err = f.svc.ReviewPayment(ctx, admin, id, true, nil)
		assert.NoError(t, err)
	}()
	errs := make(chan error, 1)
	go func() {
		defer wg.Done()
		_, err := f.svc.CreateBooking(ctx, bob, request(hall, dr(t, "2025-08-02", "2025-08-03")))
		errs <- err
	}()
	wg.Wait()

	// either the create won the lock and is pending, or it lost and conflicts
	if err := <-errs; err != nil {
		var ce *apperror.ConflictError
		assert.True(t, errors.As(err, &ce))
	}
	b, err := f.svc.GetBooking(ctx, alice, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, b.Status)
}

func TestCreateBookingPublishesEvent(t *testing.T) {
	f := newFixture(t)
	hall := f.hall(t, "Hall", 1000)
	id := f.book(t, alice, hall, dr(t, "2025-06-01", "2025-06-01"))

	require.Len(t, f.events.events, 1)
	ev := f.events.events[0]
	assert.Equal(t, queue.EventCreated, ev.Type)
	assert.Equal(t, id, ev.BookingID)
	assert.Equal(t, alice.UserID, ev.ActorID)
	assert.Equal(t, int64(1000), ev.TotalAmountCents)
}
