package model

import "time"

// Hall represents a bookable event hall.  Only ID and
// DefaultRateCents are load-bearing for the reservation engine;
// the remaining fields are descriptive metadata shown to customers.
//
// Fields:
//  ID               – primary key identifier.
//  Name             – display name of the hall.
//  Location         – short location label (nullable).
//  Address          – street address (nullable).
//  Capacity         – maximum number of guests.
//  DefaultRateCents – price per day in cents when no pricing rule applies.
//  Description      – optional free text.
//  Amenities        – list of amenity labels, stored as JSON.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Hall struct {
	ID               uint64    `json:"id"`                    // halls.id
	Name             string    `json:"name"`                  // halls.name
	Location         *string   `json:"location,omitempty"`    // halls.location (nullable)
	Address          *string   `json:"address,omitempty"`     // halls.address (nullable)
	Capacity         uint32    `json:"capacity"`              // halls.capacity
	DefaultRateCents int64     `json:"default_rate_cents"`    // halls.default_rate_cents
	Description      *string   `json:"description,omitempty"` // halls.description (nullable)
	Amenities        []string  `json:"amenities"`             // halls.amenities (JSON)
	CreatedAt        time.Time `json:"created_at"`            // halls.created_at
	UpdatedAt        time.Time `json:"updated_at"`            // halls.updated_at
}
