// Package store declares the persistence ports used by the reservation
// engine.  The MySQL adapter lives in internal/repository and an
// in-memory adapter used by tests lives in internal/repository/memory.
package store

import (
	"context"
	"errors"

	"github.com/iliyamo/hall-reservation/internal/model"
)

// ErrNotFound is returned by adapters when a row does not exist.
var ErrNotFound = errors.New("not found")

// HallRepo reads and creates halls.
type HallRepo interface {
	GetByID(ctx context.Context, id uint64) (*model.Hall, error)
	List(ctx context.Context) ([]*model.Hall, error)
	Create(ctx context.Context, h *model.Hall) error
}

// CalendarRepo stores explicit availability entries.  Get only returns
// dates that have a stored entry; callers apply the available default.
type CalendarRepo interface {
	Get(ctx context.Context, hallID uint64, r model.DateRange) (map[string]bool, error)
	// Upsert writes all days or none.
	Upsert(ctx context.Context, days []model.AvailabilityDay) error
}

// PricingRepo stores pricing rules.  ListByHall must order rules by
// start date, then by id.
type PricingRepo interface {
	ListByHall(ctx context.Context, hallID uint64) ([]model.PricingRule, error)
	Upsert(ctx context.Context, rule *model.PricingRule) error
	GetByID(ctx context.Context, id uint64) (*model.PricingRule, error)
	Delete(ctx context.Context, id uint64) error
	DeleteByHall(ctx context.Context, hallID uint64) (int64, error)
}

// BookingRepo stores bookings.
type BookingRepo interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	// ListByUser returns the user's bookings, newest first.
	ListByUser(ctx context.Context, userID uint64) ([]*model.Booking, error)
	// List returns every booking, newest first, optionally filtered.
	List(ctx context.Context, status *model.Status) ([]*model.Booking, error)
	// ListOverlapping returns bookings of any status on the hall whose
	// range intersects r.
	ListOverlapping(ctx context.Context, hallID uint64, r model.DateRange) ([]*model.Booking, error)
	Update(ctx context.Context, b *model.Booking) error
	Delete(ctx context.Context, id uint64) error
}

// Repos bundles the repositories bound to one connection or transaction.
type Repos struct {
	Halls    HallRepo
	Calendar CalendarRepo
	Pricing  PricingRepo
	Bookings BookingRepo
}

// Store hands out repositories.  InTx runs fn inside a transaction that
// holds an exclusive lock on hall lockHallID for its whole duration;
// lockHallID of zero takes no lock.  fn's error rolls the transaction
// back and is returned unchanged.  When the hall does not exist InTx
// returns ErrNotFound without calling fn.
type Store interface {
	Repos() Repos
	InTx(ctx context.Context, lockHallID uint64, fn func(Repos) error) error
}
