package repository // repository holds data access logic for domain entities

import (
	"context"
	"encoding/json"

	"github.com/iliyamo/hall-reservation/internal/model"
)

const hallColumns = `id, name, location, address, capacity, default_rate_cents, description, amenities, created_at, updated_at`

// HallRepo provides methods to create and retrieve halls.
type HallRepo struct {
	db dbtx
}

// NewHallRepo constructs a HallRepo with the given handle.
func NewHallRepo(db dbtx) *HallRepo { return &HallRepo{db: db} }

func scanHall(s interface{ Scan(...any) error }) (*model.Hall, error) {
	var (
		h         model.Hall
		amenities []byte
	)
	if err := s.Scan(&h.ID, &h.Name, &h.Location, &h.Address, &h.Capacity, &h.DefaultRateCents,
		&h.Description, &amenities, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, err
	}
	h.Amenities = []string{}
	if len(amenities) > 0 {
		if err := json.Unmarshal(amenities, &h.Amenities); err != nil {
			return nil, err
		}
	}
	return &h, nil
}

// Create inserts a new hall.  After insert the row is read back so that
// ID and the timestamps are populated.
func (r *HallRepo) Create(ctx context.Context, h *model.Hall) error {
	if h.Amenities == nil {
		h.Amenities = []string{}
	}
	amenities, err := json.Marshal(h.Amenities)
	if err != nil {
		return err
	}
	const qInsert = `INSERT INTO halls (name, location, address, capacity, default_rate_cents, description, amenities)
	                 VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert, h.Name, h.Location, h.Address, h.Capacity, h.DefaultRateCents, h.Description, string(amenities))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*h = *got
	return nil
}

// GetByID retrieves a hall.  It returns store.ErrNotFound when no row
// matches.
func (r *HallRepo) GetByID(ctx context.Context, id uint64) (*model.Hall, error) {
	h, err := scanHall(r.db.QueryRowContext(ctx, `SELECT `+hallColumns+` FROM halls WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return h, nil
}

// List returns all halls ordered by name.
func (r *HallRepo) List(ctx context.Context) ([]*model.Hall, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+hallColumns+` FROM halls ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Hall{}
	for rows.Next() {
		h, err := scanHall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
