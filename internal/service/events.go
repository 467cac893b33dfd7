package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/queue"
)

// EventPublisher receives lifecycle events after the operation that
// produced them has committed.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// publish emits an event.  Delivery failures are logged and never undo
// or fail the committed operation.
func (o *Reservations) publish(ctx context.Context, t queue.EventType, b *model.Booking, actor model.Caller, reason *string) {
	ev := queue.NewBookingEvent(t, b, actor.UserID, reason, o.now())
	if err := o.events.Publish(ctx, ev); err != nil {
		o.log.WithError(err).WithFields(logrus.Fields{
			"event":      ev.Type,
			"booking_id": b.ID,
		}).Warn("publish booking event failed")
	}
}
