// Package queue carries booking lifecycle events over RabbitMQ.
package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hall-reservation/internal/model"
)

// EventType names a lifecycle event.  It is also the last segment of the
// routing key.
type EventType string

const (
	EventCreated          EventType = "created"
	EventPaymentSubmitted EventType = "payment_submitted"
	EventConfirmed        EventType = "confirmed"
	EventPaymentRejected  EventType = "payment_rejected"
	EventCancelRequested  EventType = "cancel_requested"
	EventCancelled        EventType = "cancelled"
	EventCancelRejected   EventType = "cancel_rejected"
	EventDeleted          EventType = "deleted"
)

// BookingEvent is published after a booking operation commits.  It
// carries enough for consumers to log or notify without reading the
// database.
type BookingEvent struct {
	EventID          string       `json:"event_id"`
	Type             EventType    `json:"type"`
	BookingID        uint64       `json:"booking_id"`
	HallID           uint64       `json:"hall_id"`
	UserID           uint64       `json:"user_id"`
	ActorID          uint64       `json:"actor_id"`
	Status           model.Status `json:"status"`
	StartDate        string       `json:"start_date"`
	EndDate          string       `json:"end_date"`
	Days             int          `json:"days"`
	TotalAmountCents int64        `json:"total_amount_cents"`
	Reason           *string      `json:"reason,omitempty"`
	OccurredAt       time.Time    `json:"occurred_at"`
}

// NewBookingEvent snapshots b into an event of type t.
func NewBookingEvent(t EventType, b *model.Booking, actorID uint64, reason *string, at time.Time) BookingEvent {
	return BookingEvent{
		EventID:          uuid.NewString(),
		Type:             t,
		BookingID:        b.ID,
		HallID:           b.HallID,
		UserID:           b.UserID,
		ActorID:          actorID,
		Status:           b.Status,
		StartDate:        model.FormatDate(b.StartDate),
		EndDate:          model.FormatDate(b.EndDate),
		Days:             b.Days,
		TotalAmountCents: b.TotalCents,
		Reason:           reason,
		OccurredAt:       at.UTC(),
	}
}

// RoutingKey is "booking.<type>".
func (e BookingEvent) RoutingKey() string { return "booking." + string(e.Type) }

// AuditLine renders the event as one line of the audit log.
func (e BookingEvent) AuditLine() string {
	line := fmt.Sprintf("[%s] booking %s | booking_id=%d | hall_id=%d | user_id=%d | actor_id=%d | status=%s | dates=%s..%s | days=%d | total=%d cents",
		e.OccurredAt.Format(time.RFC3339), e.Type, e.BookingID, e.HallID, e.UserID, e.ActorID, e.Status,
		e.StartDate, e.EndDate, e.Days, e.TotalAmountCents)
	if e.Reason != nil && *e.Reason != "" {
		line += fmt.Sprintf(" | reason=%q", *e.Reason)
	}
	return line + "\n"
}
