package model

import (
	"encoding/json"
	"time"
)

// PricingRule overrides a hall's default daily rate for an inclusive date
// range.  Rules of the same hall may overlap; see PriceForDate for how a
// date covered by several rules is priced.
type PricingRule struct {
	ID               uint64    `json:"id"`                  // pricing_rules.id
	HallID           uint64    `json:"hall_id"`             // pricing_rules.hall_id
	StartDate        time.Time `json:"-"`                   // pricing_rules.start_date
	EndDate          time.Time `json:"-"`                   // pricing_rules.end_date
	PricePerDayCents int64     `json:"price_per_day_cents"` // pricing_rules.price_per_day_cents
	CreatedAt        time.Time `json:"created_at"`          // pricing_rules.created_at
}

// Range returns the closed date range the rule covers.
func (r PricingRule) Range() DateRange {
	return DateRange{Start: Day(r.StartDate), End: Day(r.EndDate)}
}

// MarshalJSON renders the rule with YYYY-MM-DD dates.
func (r PricingRule) MarshalJSON() ([]byte, error) {
	type alias PricingRule
	return json.Marshal(struct {
		alias
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}{alias: alias(r), StartDate: FormatDate(r.StartDate), EndDate: FormatDate(r.EndDate)})
}

// PriceForDate returns the price of the first rule, in the order given,
// whose range contains date.  Overlapping rules are therefore resolved by
// storage order (start date, then insertion), not by how specific they
// are.  When no rule matches, defaultRate is returned.
func PriceForDate(date time.Time, rules []PricingRule, defaultRate int64) int64 {
	for _, rule := range rules {
		if rule.Range().Contains(date) {
			return rule.PricePerDayCents
		}
	}
	return defaultRate
}

// QuoteTotal sums PriceForDate over every date of the inclusive range.
func QuoteTotal(r DateRange, rules []PricingRule, defaultRate int64) int64 {
	var total int64
	for _, d := range r.Dates() {
		total += PriceForDate(d, rules, defaultRate)
	}
	return total
}

// Quote is the result of pricing a date range for a hall.
type Quote struct {
	HallID           uint64 `json:"hall_id"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	Days             int    `json:"days"`
	TotalCents       int64  `json:"total_cents"`
	DefaultRateCents int64  `json:"default_rate_cents"`
}
