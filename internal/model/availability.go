package model

import "time"

// AvailabilityDay is a per-hall, per-date availability flag.  A date
// without a stored entry is available by default, so the table only ever
// holds overrides and seeded demo data.
type AvailabilityDay struct {
	HallID    uint64    `json:"hall_id"`   // availability.hall_id
	Date      time.Time `json:"date"`      // availability.date
	Available bool      `json:"available"` // availability.is_available
}

// DayStatus is one entry of a calendar read: the date and its effective
// availability after applying the default.
type DayStatus struct {
	Date      string `json:"date"`
	Available bool   `json:"available"`
}
