package service

import (
	"context"

	"github.com/iliyamo/hall-reservation/internal/apperror"
	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/store"
)

// PricingCalendar resolves per-day prices from a hall's rules.
type PricingCalendar struct {
	repo store.PricingRepo
}

// NewPricingCalendar binds a PricingCalendar to repo.
func NewPricingCalendar(repo store.PricingRepo) *PricingCalendar {
	return &PricingCalendar{repo: repo}
}

// RulesFor lists the hall's rules in pricing order.
func (p *PricingCalendar) RulesFor(ctx context.Context, hallID uint64) ([]model.PricingRule, error) {
	return p.repo.ListByHall(ctx, hallID)
}

// AddRule inserts a rule, or replaces the price of the rule with the
// same hall and range.
func (p *PricingCalendar) AddRule(ctx context.Context, hallID uint64, r model.DateRange, pricePerDayCents int64) (*model.PricingRule, error) {
	if r.End.Before(r.Start) {
		return nil, apperror.Validation("end_date", "must be on or after start_date")
	}
	if pricePerDayCents <= 0 {
		return nil, apperror.Validation("price_per_day_cents", "must be greater than zero")
	}
	rule := &model.PricingRule{HallID: hallID, StartDate: r.Start, EndDate: r.End, PricePerDayCents: pricePerDayCents}
	if err := p.repo.Upsert(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// DeleteRule removes one rule.
func (p *PricingCalendar) DeleteRule(ctx context.Context, ruleID uint64) error {
	return p.repo.Delete(ctx, ruleID)
}

// ClearRules removes every rule of the hall.
func (p *PricingCalendar) ClearRules(ctx context.Context, hallID uint64) (int64, error) {
	return p.repo.DeleteByHall(ctx, hallID)
}

// Quote sums the per-day price over r.
func (p *PricingCalendar) Quote(ctx context.Context, hallID uint64, r model.DateRange, defaultRate int64) (int64, error) {
	rules, err := p.repo.ListByHall(ctx, hallID)
	if err != nil {
		return 0, err
	}
	return model.QuoteTotal(r, rules, defaultRate), nil
}
