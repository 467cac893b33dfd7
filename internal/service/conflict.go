package service

import (
	"context"

	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/store"
)

// ConflictChecker looks for blocking bookings that overlap a range.
type ConflictChecker struct {
	repo store.BookingRepo
}

// NewConflictChecker binds a ConflictChecker to repo.
func NewConflictChecker(repo store.BookingRepo) *ConflictChecker {
	return &ConflictChecker{repo: repo}
}

// HasConflict reports whether another booking of the hall, in a
// blocking status, shares at least one day with r.  excludeID of zero
// excludes nothing.
func (c *ConflictChecker) HasConflict(ctx context.Context, hallID uint64, r model.DateRange, excludeID uint64) (bool, error) {
	overlapping, err := c.repo.ListOverlapping(ctx, hallID, r)
	if err != nil {
		return false, err
	}
	for _, b := range overlapping {
		if b.ID != excludeID && b.Status.Blocking() && b.Range().Overlaps(r) {
			return true, nil
		}
	}
	return false, nil
}
