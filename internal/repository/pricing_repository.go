package repository

import (
	"context"

	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/store"
)

const ruleColumns = `id, hall_id, start_date, end_date, price_per_day_cents, created_at`

// PricingRepo persists pricing_rules.  (hall_id, start_date, end_date) is
// unique, which makes Upsert replace the price of an identical range.
type PricingRepo struct {
	db dbtx
}

// NewPricingRepo constructs a PricingRepo.
func NewPricingRepo(db dbtx) *PricingRepo { return &PricingRepo{db: db} }

func scanRule(s interface{ Scan(...any) error }) (*model.PricingRule, error) {
	var pr model.PricingRule
	if err := s.Scan(&pr.ID, &pr.HallID, &pr.StartDate, &pr.EndDate, &pr.PricePerDayCents, &pr.CreatedAt); err != nil {
		return nil, err
	}
	pr.StartDate = model.Day(pr.StartDate)
	pr.EndDate = model.Day(pr.EndDate)
	return &pr, nil
}

// ListByHall returns the hall's rules ordered by start date, then id.
// The order is significant: the first matching rule prices a date.
func (r *PricingRepo) ListByHall(ctx context.Context, hallID uint64) ([]model.PricingRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM pricing_rules WHERE hall_id = ? ORDER BY start_date, id`, hallID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.PricingRule{}
	for rows.Next() {
		pr, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *pr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert inserts the rule or updates the price of the rule with the same
// range, then reads it back.
func (r *PricingRepo) Upsert(ctx context.Context, rule *model.PricingRule) error {
	const q = `INSERT INTO pricing_rules (hall_id, start_date, end_date, price_per_day_cents)
	           VALUES (?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE price_per_day_cents = VALUES(price_per_day_cents)`
	start, end := model.FormatDate(rule.StartDate), model.FormatDate(rule.EndDate)
	if _, err := r.db.ExecContext(ctx, q, rule.HallID, start, end, rule.PricePerDayCents); err != nil {
		return err
	}
	got, err := scanRule(r.db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM pricing_rules WHERE hall_id = ? AND start_date = ? AND end_date = ?`,
		rule.HallID, start, end))
	if err != nil {
		return notFound(err)
	}
	*rule = *got
	return nil
}

// GetByID returns one rule or store.ErrNotFound.
func (r *PricingRepo) GetByID(ctx context.Context, id uint64) (*model.PricingRule, error) {
	pr, err := scanRule(r.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM pricing_rules WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return pr, nil
}

// Delete removes one rule.  It returns store.ErrNotFound when nothing was
// deleted.
func (r *PricingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pricing_rules WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteByHall removes every rule of the hall and reports how many rows
// went away.
func (r *PricingRepo) DeleteByHall(ctx context.Context, hallID uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pricing_rules WHERE hall_id = ?`, hallID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
