package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/hall-reservation/internal/apperror"
	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/store"
)

// BookingLedger persists bookings and drives their state machine.  The
// transitions that change which days are blocked (submit, confirm,
// cancel) must run inside a Store.InTx holding the hall lock; the
// ledger itself does not lock.
type BookingLedger struct {
	bookings  store.BookingRepo
	calendar  *CalendarStore
	conflicts *ConflictChecker
	now       func() time.Time
}

// NewBookingLedger binds a ledger to its collaborators.
func NewBookingLedger(bookings store.BookingRepo, calendar *CalendarStore, conflicts *ConflictChecker, now func() time.Time) *BookingLedger {
	return &BookingLedger{bookings: bookings, calendar: calendar, conflicts: conflicts, now: now}
}

// Get loads a booking, mapping a missing row to a NotFoundError.
func (l *BookingLedger) Get(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := l.bookings.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperror.NotFound("booking", id)
	}
	return b, err
}

// Create stores a new booking.
func (l *BookingLedger) Create(ctx context.Context, b *model.Booking) error {
	return l.bookings.Create(ctx, b)
}

// ensureFree returns a ConflictError when r cannot be reserved for
// booking excludeID.
func (l *BookingLedger) ensureFree(ctx context.Context, hallID uint64, r model.DateRange, excludeID uint64) error {
	ok, err := l.calendar.IsRangeAvailable(ctx, hallID, r)
	if err != nil {
		return err
	}
	if !ok {
		return conflict(hallID, r, "selected dates include unavailable days")
	}
	taken, err := l.conflicts.HasConflict(ctx, hallID, r, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return conflict(hallID, r, "hall is already booked for the selected dates")
	}
	return nil
}

// SubmitPayment attaches the evidence reference and moves the booking
// to paid_pending_review.  From that status the booking blocks its
// range, so the range is checked again first: two unpaid bookings may
// overlap, but only one of them can get this far.
func (l *BookingLedger) SubmitPayment(ctx context.Context, b *model.Booking, evidenceRef string) error {
	if _, ok := model.NextStatus(b.Status, model.EventSubmitPayment); !ok {
		return transitionErr(b, model.EventSubmitPayment)
	}
	if err := l.ensureFree(ctx, b.HallID, b.Range(), b.ID); err != nil {
		return err
	}
	if err := b.SubmitPayment(evidenceRef, l.now().UTC()); err != nil {
		return err
	}
	return l.bookings.Update(ctx, b)
}

// VerifyPayment confirms the booking and marks its days unavailable.
func (l *BookingLedger) VerifyPayment(ctx context.Context, b *model.Booking) error {
	if err := b.VerifyPayment(l.now().UTC()); err != nil {
		return err
	}
	if err := l.bookings.Update(ctx, b); err != nil {
		return err
	}
	return l.calendar.SetRange(ctx, b.HallID, b.Range(), false)
}

// RejectPayment marks the payment as rejected.
func (l *BookingLedger) RejectPayment(ctx context.Context, b *model.Booking, reason *string) error {
	if err := b.RejectPayment(reason, l.now().UTC()); err != nil {
		return err
	}
	return l.bookings.Update(ctx, b)
}

// RequestCancel records the requester's cancellation request.
func (l *BookingLedger) RequestCancel(ctx context.Context, b *model.Booking, reason *string) error {
	if err := b.RequestCancel(reason, l.now().UTC()); err != nil {
		return err
	}
	return l.bookings.Update(ctx, b)
}

// ApproveCancel cancels the booking and frees its days.
func (l *BookingLedger) ApproveCancel(ctx context.Context, b *model.Booking) error {
	if err := b.ApproveCancel(l.now().UTC()); err != nil {
		return err
	}
	if err := l.bookings.Update(ctx, b); err != nil {
		return err
	}
	return l.calendar.SetRange(ctx, b.HallID, b.Range(), true)
}

// RejectCancel keeps the booking in effect.
func (l *BookingLedger) RejectCancel(ctx context.Context, b *model.Booking, reason *string) error {
	if err := b.RejectCancel(reason, l.now().UTC()); err != nil {
		return err
	}
	return l.bookings.Update(ctx, b)
}

// Delete removes a booking.  Admins may delete in any status; the owner
// only once the booking is cancelled or its cancellation was rejected.
func (l *BookingLedger) Delete(ctx context.Context, caller model.Caller, b *model.Booking) error {
	if !caller.IsAdmin() {
		if b.UserID != caller.UserID {
			return apperror.Forbidden("only the owner or an admin may delete this booking")
		}
		if !b.Status.Deletable() {
			return &apperror.InvalidStateTransitionError{BookingID: b.ID, From: string(b.Status), Action: "delete"}
		}
	}
	return l.bookings.Delete(ctx, b.ID)
}

func conflict(hallID uint64, r model.DateRange, reason string) error {
	return &apperror.ConflictError{
		HallID: hallID,
		Start:  model.FormatDate(r.Start),
		End:    model.FormatDate(r.End),
		Reason: reason,
	}
}

func transitionErr(b *model.Booking, ev model.Event) error {
	return &apperror.InvalidStateTransitionError{BookingID: b.ID, From: string(b.Status), Action: string(ev)}
}
