package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/iliyamo/hall-reservation/internal/apperror"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPendingPayment    Status = "pending_payment"
	StatusPaidPendingReview Status = "paid_pending_review"
	StatusConfirmed         Status = "confirmed"
	StatusPaymentRejected   Status = "payment_rejected"
	StatusCancelRequested   Status = "cancel_requested"
	StatusCancelled         Status = "cancelled"
	StatusCancelRejected    Status = "cancel_rejected"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusPendingPayment,
	StatusPaidPendingReview,
	StatusConfirmed,
	StatusPaymentRejected,
	StatusCancelRequested,
	StatusCancelled,
	StatusCancelRejected,
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Blocking reports whether a booking in this status occupies its date
// range for conflict purposes.  An unpaid hold does not block; a payment
// awaiting review does, so two payments for the same slot cannot be
// pending at once.
func (s Status) Blocking() bool {
	return s == StatusConfirmed || s == StatusPaidPendingReview
}

// Deletable reports whether the owner of a booking may delete it.
func (s Status) Deletable() bool {
	return s == StatusCancelled || s == StatusCancelRejected
}

// ParseStatus converts a string into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return st, nil
}

// Event is a lifecycle action applied to a booking.
type Event string

const (
	EventSubmitPayment Event = "submit_payment"
	EventVerifyPayment Event = "verify_payment"
	EventRejectPayment Event = "reject_payment"
	EventRequestCancel Event = "request_cancel"
	EventApproveCancel Event = "approve_cancel"
	EventRejectCancel  Event = "reject_cancel"
)

type edge struct {
	from Status
	to   Status
}

// transitions is the complete state graph.  Each event has exactly one
// valid source status.
var transitions = map[Event]edge{
	EventSubmitPayment: {StatusPendingPayment, StatusPaidPendingReview},
	EventVerifyPayment: {StatusPaidPendingReview, StatusConfirmed},
	EventRejectPayment: {StatusPaidPendingReview, StatusPaymentRejected},
	EventRequestCancel: {StatusConfirmed, StatusCancelRequested},
	EventApproveCancel: {StatusCancelRequested, StatusCancelled},
	EventRejectCancel:  {StatusCancelRequested, StatusCancelRejected},
}

// NextStatus returns the status reached by applying ev in status from.
// ok is false when the edge is not part of the state graph.
func NextStatus(from Status, ev Event) (Status, bool) {
	e, found := transitions[ev]
	if !found || e.from != from {
		return "", false
	}
	return e.to, true
}

// Booking is a requester's reservation of a hall for an inclusive date
// range.  TotalCents is a snapshot taken at creation and is never
// recomputed from the live pricing rules.
type Booking struct {
	ID                 uint64
	HallID             uint64
	UserID             uint64
	StartDate          time.Time
	EndDate            time.Time
	Days               int
	TotalCents         int64
	Status             Status
	EventName          string
	ContactName        string
	ContactPhone       string
	ContactEmail       *string
	Notes              *string
	SlipRef            *string
	PaidAt             *time.Time
	VerifiedAt         *time.Time
	RejectedAt         *time.Time
	RejectReason       *string
	CancelRequestedAt  *time.Time
	CancelReason       *string
	CancelledAt        *time.Time
	CancelRejectedAt   *time.Time
	CancelRejectReason *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// BookingDetails is the free-text metadata a requester supplies.
type BookingDetails struct {
	EventName    string
	ContactName  string
	ContactPhone string
	ContactEmail *string
	Notes        *string
}

// NewBooking builds a booking in its initial status.  Days is derived
// from the range so the day-count invariant always holds.
func NewBooking(userID, hallID uint64, r DateRange, totalCents int64, d BookingDetails, now time.Time) *Booking {
	return &Booking{
		HallID:       hallID,
		UserID:       userID,
		StartDate:    Day(r.Start),
		EndDate:      Day(r.End),
		Days:         r.Days(),
		TotalCents:   totalCents,
		Status:       StatusPendingPayment,
		EventName:    d.EventName,
		ContactName:  d.ContactName,
		ContactPhone: d.ContactPhone,
		ContactEmail: d.ContactEmail,
		Notes:        d.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Range returns the booked date range.
func (b *Booking) Range() DateRange {
	return DateRange{Start: Day(b.StartDate), End: Day(b.EndDate)}
}

// apply moves the booking along ev or fails without touching it.
func (b *Booking) apply(ev Event, now time.Time) error {
	next, ok := NextStatus(b.Status, ev)
	if !ok {
		return &apperror.InvalidStateTransitionError{BookingID: b.ID, From: string(b.Status), Action: string(ev)}
	}
	b.Status = next
	b.UpdatedAt = now
	return nil
}

// SubmitPayment records the evidence reference and moves the booking to
// paid_pending_review.
func (b *Booking) SubmitPayment(evidenceRef string, now time.Time) error {
	if err := b.apply(EventSubmitPayment, now); err != nil {
		return err
	}
	b.SlipRef = &evidenceRef
	b.PaidAt = &now
	return nil
}

// VerifyPayment confirms the booking.
func (b *Booking) VerifyPayment(now time.Time) error {
	if err := b.apply(EventVerifyPayment, now); err != nil {
		return err
	}
	b.VerifiedAt = &now
	return nil
}

// RejectPayment marks the payment as rejected with an optional reason.
func (b *Booking) RejectPayment(reason *string, now time.Time) error {
	if err := b.apply(EventRejectPayment, now); err != nil {
		return err
	}
	b.RejectReason = reason
	b.RejectedAt = &now
	return nil
}

// RequestCancel records the requester's cancellation request.
func (b *Booking) RequestCancel(reason *string, now time.Time) error {
	if err := b.apply(EventRequestCancel, now); err != nil {
		return err
	}
	b.CancelReason = reason
	b.CancelRequestedAt = &now
	return nil
}

// ApproveCancel cancels the booking.
func (b *Booking) ApproveCancel(now time.Time) error {
	if err := b.apply(EventApproveCancel, now); err != nil {
		return err
	}
	b.CancelledAt = &now
	return nil
}

// RejectCancel refuses the cancellation request; the booking stays in
// effect.
func (b *Booking) RejectCancel(reason *string, now time.Time) error {
	if err := b.apply(EventRejectCancel, now); err != nil {
		return err
	}
	b.CancelRejectReason = reason
	b.CancelRejectedAt = &now
	return nil
}

// bookingJSON is the wire shape of a booking.
type bookingJSON struct {
	ID                 uint64     `json:"id"`
	HallID             uint64     `json:"hall_id"`
	UserID             uint64     `json:"user_id"`
	StartDate          string     `json:"start_date"`
	EndDate            string     `json:"end_date"`
	Days               int        `json:"days"`
	TotalCents         int64      `json:"total_cents"`
	Status             Status     `json:"status"`
	EventName          string     `json:"event_name"`
	ContactName        string     `json:"contact_name"`
	ContactPhone       string     `json:"contact_phone"`
	ContactEmail       *string    `json:"contact_email,omitempty"`
	Notes              *string    `json:"notes,omitempty"`
	SlipRef            *string    `json:"slip_ref,omitempty"`
	PaidAt             *time.Time `json:"paid_at,omitempty"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`
	RejectedAt         *time.Time `json:"rejected_at,omitempty"`
	RejectReason       *string    `json:"reject_reason,omitempty"`
	CancelRequestedAt  *time.Time `json:"cancel_requested_at,omitempty"`
	CancelReason       *string    `json:"cancel_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancelRejectedAt   *time.Time `json:"cancel_rejected_at,omitempty"`
	CancelRejectReason *string    `json:"cancel_reject_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// MarshalJSON renders the booking with YYYY-MM-DD dates.
func (b Booking) MarshalJSON() ([]byte, error) {
	return json.Marshal(bookingJSON{
		ID: b.ID, HallID: b.HallID, UserID: b.UserID,
		StartDate: FormatDate(b.StartDate), EndDate: FormatDate(b.EndDate),
		Days: b.Days, TotalCents: b.TotalCents, Status: b.Status,
		EventName: b.EventName, ContactName: b.ContactName, ContactPhone: b.ContactPhone,
		ContactEmail: b.ContactEmail, Notes: b.Notes, SlipRef: b.SlipRef,
		PaidAt: b.PaidAt, VerifiedAt: b.VerifiedAt, RejectedAt: b.RejectedAt, RejectReason: b.RejectReason,
		CancelRequestedAt: b.CancelRequestedAt, CancelReason: b.CancelReason, CancelledAt: b.CancelledAt,
		CancelRejectedAt: b.CancelRejectedAt, CancelRejectReason: b.CancelRejectReason,
		CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt,
	})
}
