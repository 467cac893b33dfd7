package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/hall-reservation/internal/apperror"
	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/queue"
	"github.com/iliyamo/hall-reservation/internal/store"
)

// locate returns the hall of a booking so its lock can be taken.  The
// hall of a booking never changes.
func (o *Reservations) locate(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	b, err := o.store.Repos().Bookings.GetByID(ctx, bookingID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperror.NotFound("booking", bookingID)
	}
	return b, err
}

// mutate loads the booking again under its hall lock and applies fn.
func (o *Reservations) mutate(ctx context.Context, bookingID uint64, fn func(c components, b *model.Booking) error) (*model.Booking, error) {
	pre, err := o.locate(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	var out *model.Booking
	err = o.inHall(ctx, pre.HallID, func(c components) error {
		b, err := c.ledger.Get(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := fn(c, b); err != nil {
			return err
		}
		out = b
		return nil
	})
	return out, err
}

func ownerOnly(caller model.Caller, b *model.Booking) error {
	if err := requireUser(caller); err != nil {
		return err
	}
	if b.UserID != caller.UserID {
		return apperror.Forbidden("only the owner may perform this action")
	}
	return nil
}

func ownerOrAdmin(caller model.Caller, b *model.Booking) error {
	if err := requireUser(caller); err != nil {
		return err
	}
	if b.UserID != caller.UserID && !caller.IsAdmin() {
		return apperror.Forbidden("only the owner or an admin may view this booking")
	}
	return nil
}

func (o *Reservations) logTransition(b *model.Booking, caller model.Caller, msg string) {
	o.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"hall_id":    b.HallID,
		"user_id":    caller.UserID,
		"status":     b.Status,
	}).Info(msg)
}

// SubmitPayment records evidenceRef on the caller's booking and moves
// it to paid_pending_review.  It fails with a ConflictError when another
// booking became blocking for the same days in the meantime.
func (o *Reservations) SubmitPayment(ctx context.Context, caller model.Caller, bookingID uint64, evidenceRef string) (*model.Booking, error) {
	ctx, span := o.start(ctx, "SubmitPayment", attribute.Int64("booking_id", int64(bookingID)))
	defer span.End()

	evidenceRef = strings.TrimSpace(evidenceRef)
	if evidenceRef == "" {
		return nil, o.fail(span, "submit payment", apperror.Validation("slip_ref", "is required"))
	}
	b, err := o.mutate(ctx, bookingID, func(c components, b *model.Booking) error {
		if err := ownerOnly(caller, b); err != nil {
			return err
		}
		return c.ledger.SubmitPayment(ctx, b, evidenceRef)
	})
	if err != nil {
		return nil, o.fail(span, "submit payment", err)
	}
	o.logTransition(b, caller, "payment submitted")
	o.publish(ctx, queue.EventPaymentSubmitted, b, caller, nil)
	return b, nil
}

// UploadPaymentSlip stores the evidence through the SlipStore and then
// submits the payment.  Ownership and status are checked before the
// upload is written.
func (o *Reservations) UploadPaymentSlip(ctx context.Context, caller model.Caller, bookingID uint64, filename string, r io.Reader) (*model.Booking, error) {
	ctx, span := o.start(ctx, "UploadPaymentSlip", attribute.Int64("booking_id", int64(bookingID)))
	defer span.End()

	if o.slips == nil {
		return nil, o.fail(span, "upload slip", errors.New("slip storage is not configured"))
	}
	if err := o.slips.Check(filename); err != nil {
		return nil, o.fail(span, "upload slip", err)
	}
	pre, err := o.locate(ctx, bookingID)
	if err != nil {
		return nil, o.fail(span, "upload slip", err)
	}
	if err := ownerOnly(caller, pre); err != nil {
		return nil, o.fail(span, "upload slip", err)
	}
	if _, ok := model.NextStatus(pre.Status, model.EventSubmitPayment); !ok {
		return nil, o.fail(span, "upload slip", transitionErr(pre, model.EventSubmitPayment))
	}
	ref, err := o.slips.Save(ctx, bookingID, filename, r)
	if err != nil {
		return nil, o.fail(span, "upload slip", err)
	}
	return o.SubmitPayment(ctx, caller, bookingID, ref)
}

// ReviewPayment lets an admin verify or reject a submitted payment.
// Verifying confirms the booking and blocks its days in the same
// transaction.
func (o *Reservations) ReviewPayment(ctx context.Context, caller model.Caller, bookingID uint64, approve bool, reason *string) (*model.Booking, error) {
	ctx, span := o.start(ctx, "ReviewPayment",
		attribute.Int64("booking_id", int64(bookingID)), attribute.Bool("approve", approve))
	defer span.End()

	if err := requireAdmin(caller); err != nil {
		return nil, o.fail(span, "review payment", err)
	}
	reason = trimmed(reason)
	b, err := o.mutate(ctx, bookingID, func(c components, b *model.Booking) error {
		if approve {
			return c.ledger.VerifyPayment(ctx, b)
		}
		return c.ledger.RejectPayment(ctx, b, reason)
	})
	if err != nil {
		return nil, o.fail(span, "review payment", err)
	}
	if approve {
		o.logTransition(b, caller, "payment verified")
		o.publish(ctx, queue.EventConfirmed, b, caller, nil)
	} else {
		o.logTransition(b, caller, "payment rejected")
		o.publish(ctx, queue.EventPaymentRejected, b, caller, reason)
	}
	return b, nil
}

// RequestCancellation lets the owner of a confirmed booking ask for it
// to be cancelled.
func (o *Reservations) RequestCancellation(ctx context.Context, caller model.Caller, bookingID uint64, reason *string) (*model.Booking, error) {
	ctx, span := o.start(ctx, "RequestCancellation", attribute.Int64("booking_id", int64(bookingID)))
	defer span.End()

	reason = trimmed(reason)
	b, err := o.mutate(ctx, bookingID, func(c components, b *model.Booking) error {
		if err := ownerOnly(caller, b); err != nil {
			return err
		}
		return c.ledger.RequestCancel(ctx, b, reason)
	})
	if err != nil {
		return nil, o.fail(span, "request cancellation", err)
	}
	o.logTransition(b, caller, "cancellation requested")
	o.publish(ctx, queue.EventCancelRequested, b, caller, reason)
	return b, nil
}

// ReviewCancellation lets an admin approve or reject a cancellation
// request.  Approving frees the booking's days in the same transaction.
func (o *Reservations) ReviewCancellation(ctx context.Context, caller model.Caller, bookingID uint64, approve bool, reason *string) (*model.Booking, error) {
	ctx, span := o.start(ctx, "ReviewCancellation",
		attribute.Int64("booking_id", int64(bookingID)), attribute.Bool("approve", approve))
	defer span.End()

	if err := requireAdmin(caller); err != nil {
		return nil, o.fail(span, "review cancellation", err)
	}
	reason = trimmed(reason)
	b, err := o.mutate(ctx, bookingID, func(c components, b *model.Booking) error {
		if approve {
			return c.ledger.ApproveCancel(ctx, b)
		}
		return c.ledger.RejectCancel(ctx, b, reason)
	})
	if err != nil {
		return nil, o.fail(span, "review cancellation", err)
	}
	if approve {
		o.logTransition(b, caller, "booking cancelled")
		o.publish(ctx, queue.EventCancelled, b, caller, nil)
	} else {
		o.logTransition(b, caller, "cancellation rejected")
		o.publish(ctx, queue.EventCancelRejected, b, caller, reason)
	}
	return b, nil
}

// GetBooking returns a booking to its owner or to an admin.
func (o *Reservations) GetBooking(ctx context.Context, caller model.Caller, bookingID uint64) (*model.Booking, error) {
	ctx, span := o.start(ctx, "GetBooking", attribute.Int64("booking_id", int64(bookingID)))
	defer span.End()

	if err := requireUser(caller); err != nil {
		return nil, o.fail(span, "get booking", err)
	}
	b, err := o.locate(ctx, bookingID)
	if err != nil {
		return nil, o.fail(span, "get booking", err)
	}
	if err := ownerOrAdmin(caller, b); err != nil {
		return nil, o.fail(span, "get booking", err)
	}
	return b, nil
}

// ListMyBookings returns the caller's bookings, newest first.
func (o *Reservations) ListMyBookings(ctx context.Context, caller model.Caller) ([]*model.Booking, error) {
	ctx, span := o.start(ctx, "ListMyBookings")
	defer span.End()

	if err := requireUser(caller); err != nil {
		return nil, o.fail(span, "list my bookings", err)
	}
	out, err := o.store.Repos().Bookings.ListByUser(ctx, caller.UserID)
	if err != nil {
		return nil, o.fail(span, "list my bookings", err)
	}
	return out, nil
}

// ListBookings returns every booking for an admin, optionally filtered
// by status.
func (o *Reservations) ListBookings(ctx context.Context, caller model.Caller, status *model.Status) ([]*model.Booking, error) {
	ctx, span := o.start(ctx, "ListBookings")
	defer span.End()

	if err := requireAdmin(caller); err != nil {
		return nil, o.fail(span, "list bookings", err)
	}
	out, err := o.store.Repos().Bookings.List(ctx, status)
	if err != nil {
		return nil, o.fail(span, "list bookings", err)
	}
	return out, nil
}

// DeleteBooking removes a booking.  See BookingLedger.Delete for who may
// delete what.
func (o *Reservations) DeleteBooking(ctx context.Context, caller model.Caller, bookingID uint64) error {
	ctx, span := o.start(ctx, "DeleteBooking", attribute.Int64("booking_id", int64(bookingID)))
	defer span.End()

	if err := requireUser(caller); err != nil {
		return o.fail(span, "delete booking", err)
	}
	b, err := o.mutate(ctx, bookingID, func(c components, b *model.Booking) error {
		return c.ledger.Delete(ctx, caller, b)
	})
	if err != nil {
		return o.fail(span, "delete booking", err)
	}
	o.logTransition(b, caller, "booking deleted")
	o.publish(ctx, queue.EventDeleted, b, caller, nil)
	return nil
}
