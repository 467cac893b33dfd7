package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rule(id uint64, start, end string, price int64) PricingRule {
	return PricingRule{ID: id, HallID: 1, StartDate: date(start), EndDate: date(end), PricePerDayCents: price}
}

func TestQuoteTotalMixedRuleAndDefault(t *testing.T) {
	// rule covers the first three days of the query
	rules := []PricingRule{rule(1, "2025-06-01", "2025-06-07", 3150)}
	r := DateRange{Start: date("2025-06-05"), End: date("2025-06-09")}
	assert.Equal(t, int64(3*3150+2*3500), QuoteTotal(r, rules, 3500))
	assert.Equal(t, int64(16450), QuoteTotal(r, rules, 3500))
}

func TestQuoteTotalDeterminism(t *testing.T) {
	r := DateRange{Start: date("2025-06-01"), End: date("2025-06-10")}
	assert.Equal(t, int64(10*5000), QuoteTotal(r, nil, 5000))

	covering := []PricingRule{rule(1, "2025-05-01", "2025-07-01", 4200)}
	assert.Equal(t, int64(10*4200), QuoteTotal(r, covering, 5000))
}

func TestPriceForDateFirstMatchWins(t *testing.T) {
	wide := rule(1, "2025-06-01", "2025-06-30", 4000)
	narrow := rule(2, "2025-06-10", "2025-06-12", 9000)

	// storage order decides, not specificity
	assert.Equal(t, int64(4000), PriceForDate(date("2025-06-11"), []PricingRule{wide, narrow}, 1000))
	assert.Equal(t, int64(9000), PriceForDate(date("2025-06-11"), []PricingRule{narrow, wide}, 1000))
	assert.Equal(t, int64(1000), PriceForDate(date("2025-07-01"), []PricingRule{wide, narrow}, 1000))
	// both bounds are inclusive
	assert.Equal(t, int64(9000), PriceForDate(date("2025-06-12"), []PricingRule{narrow}, 1000))
}

func TestPricingRuleJSON(t *testing.T) {
	raw, err := json.Marshal(rule(3, "2025-06-01", "2025-06-07", 3150))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": 3, "hall_id": 1, "start_date": "2025-06-01", "end_date": "2025-06-07",
		"price_per_day_cents": 3150, "created_at": "0001-01-01T00:00:00Z"
	}`, string(raw))
}
