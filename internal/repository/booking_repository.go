package repository

import (
	"context"

	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/store"
)

const bookingColumns = `id, hall_id, user_id, start_date, end_date, days, total_cents, status,
	event_name, contact_name, contact_phone, contact_email, notes, slip_ref,
	paid_at, verified_at, rejected_at, reject_reason,
	cancel_requested_at, cancel_reason, cancelled_at, cancel_rejected_at, cancel_reject_reason,
	created_at, updated_at`

// BookingRepo provides CRUD operations for bookings.  All timestamp
// fields are stored in UTC; start_date and end_date are DATE columns.
type BookingRepo struct {
	db dbtx
}

// NewBookingRepo returns a BookingRepo bound to the given handle.
func NewBookingRepo(db dbtx) *BookingRepo { return &BookingRepo{db: db} }

func scanBooking(s interface{ Scan(...any) error }) (*model.Booking, error) {
	var b model.Booking
	err := s.Scan(
		&b.ID, &b.HallID, &b.UserID, &b.StartDate, &b.EndDate, &b.Days, &b.TotalCents, &b.Status,
		&b.EventName, &b.ContactName, &b.ContactPhone, &b.ContactEmail, &b.Notes, &b.SlipRef,
		&b.PaidAt, &b.VerifiedAt, &b.RejectedAt, &b.RejectReason,
		&b.CancelRequestedAt, &b.CancelReason, &b.CancelledAt, &b.CancelRejectedAt, &b.CancelRejectReason,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.StartDate = model.Day(b.StartDate)
	b.EndDate = model.Day(b.EndDate)
	return &b, nil
}

func (r *BookingRepo) query(ctx context.Context, q string, args ...any) ([]*model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a new booking and populates its ID.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings
	           (hall_id, user_id, start_date, end_date, days, total_cents, status,
	            event_name, contact_name, contact_phone, contact_email, notes, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		b.HallID, b.UserID, model.FormatDate(b.StartDate), model.FormatDate(b.EndDate), b.Days, b.TotalCents, b.Status,
		b.EventName, b.ContactName, b.ContactPhone, b.ContactEmail, b.Notes, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetByID returns a booking or store.ErrNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

// ListByUser returns the user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]*model.Booking, error) {
	return r.query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
}

// List returns all bookings, newest first, optionally restricted to one
// status.
func (r *BookingRepo) List(ctx context.Context, status *model.Status) ([]*model.Booking, error) {
	if status != nil {
		return r.query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE status = ? ORDER BY created_at DESC, id DESC`, string(*status))
	}
	return r.query(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC, id DESC`)
}

// ListOverlapping returns the hall's bookings whose closed range
// intersects dr, whatever their status.
func (r *BookingRepo) ListOverlapping(ctx context.Context, hallID uint64, dr model.DateRange) ([]*model.Booking, error) {
	return r.query(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE hall_id = ? AND start_date <= ? AND end_date >= ?
		 ORDER BY start_date, id`,
		hallID, model.FormatDate(dr.End), model.FormatDate(dr.Start))
}

// Update writes the status, stamps and reasons of a booking.  The range,
// total and metadata are immutable after creation.  MySQL reports zero
// affected rows for a no-op update, so the row count is not checked.
func (r *BookingRepo) Update(ctx context.Context, b *model.Booking) error {
	const q = `UPDATE bookings SET status = ?, slip_ref = ?,
	               paid_at = ?, verified_at = ?, rejected_at = ?, reject_reason = ?,
	               cancel_requested_at = ?, cancel_reason = ?, cancelled_at = ?,
	               cancel_rejected_at = ?, cancel_reject_reason = ?, updated_at = ?
	           WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q,
		b.Status, b.SlipRef,
		b.PaidAt, b.VerifiedAt, b.RejectedAt, b.RejectReason,
		b.CancelRequestedAt, b.CancelReason, b.CancelledAt,
		b.CancelRejectedAt, b.CancelRejectReason, b.UpdatedAt,
		b.ID,
	)
	return err
}

// Delete removes a booking.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}
