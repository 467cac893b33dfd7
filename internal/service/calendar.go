package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/iliyamo/hall-reservation/internal/apperror"
	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/store"
)

// MaxSeedDays bounds the seeding horizon.
const MaxSeedDays = 366

// AvailabilityGenerator decides the seeded flag of a date.
type AvailabilityGenerator interface {
	Available(date time.Time) bool
}

// GeneratorFunc adapts a function to AvailabilityGenerator.
type GeneratorFunc func(time.Time) bool

func (f GeneratorFunc) Available(d time.Time) bool { return f(d) }

// RandomGenerator blocks weekends and a random share of the other days.
type RandomGenerator struct {
	mu           sync.Mutex
	rnd          *rand.Rand
	blockPercent int
}

// NewRandomGenerator returns a generator blocking about 12% of weekdays.
func NewRandomGenerator(seed int64) *RandomGenerator {
	return &RandomGenerator{rnd: rand.New(rand.NewSource(seed)), blockPercent: 12}
}

func (g *RandomGenerator) Available(d time.Time) bool {
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	g.mu.Lock()
	roll := g.rnd.Intn(100) + 1
	g.mu.Unlock()
	return roll > g.blockPercent
}

// CalendarStore tracks per-day availability of halls.  A date without a
// stored entry is available.
type CalendarStore struct {
	repo store.CalendarRepo
	gen  AvailabilityGenerator
	now  func() time.Time
}

// NewCalendarStore binds a CalendarStore to repo.
func NewCalendarStore(repo store.CalendarRepo, gen AvailabilityGenerator, now func() time.Time) *CalendarStore {
	return &CalendarStore{repo: repo, gen: gen, now: now}
}

// Get returns one entry per date of r in ascending order.
func (c *CalendarStore) Get(ctx context.Context, hallID uint64, r model.DateRange) ([]model.DayStatus, error) {
	stored, err := c.repo.Get(ctx, hallID, r)
	if err != nil {
		return nil, err
	}
	out := make([]model.DayStatus, 0, r.Days())
	for _, d := range r.Dates() {
		key := model.FormatDate(d)
		available, ok := stored[key]
		out = append(out, model.DayStatus{Date: key, Available: !ok || available})
	}
	return out, nil
}

// Set writes one day.  Setting the same value twice is a no-op.
func (c *CalendarStore) Set(ctx context.Context, hallID uint64, date time.Time, available bool) error {
	return c.repo.Upsert(ctx, []model.AvailabilityDay{{HallID: hallID, Date: model.Day(date), Available: available}})
}

// SetRange writes every day of r.  Run it inside Store.InTx for the
// write to be all or nothing.
func (c *CalendarStore) SetRange(ctx context.Context, hallID uint64, r model.DateRange, available bool) error {
	dates := r.Dates()
	days := make([]model.AvailabilityDay, len(dates))
	for i, d := range dates {
		days[i] = model.AvailabilityDay{HallID: hallID, Date: d, Available: available}
	}
	return c.repo.Upsert(ctx, days)
}

// Seed overwrites horizonDays days starting today with the generator's
// decisions and returns the seeded range.
func (c *CalendarStore) Seed(ctx context.Context, hallID uint64, horizonDays int) (model.DateRange, error) {
	if horizonDays < 1 || horizonDays > MaxSeedDays {
		return model.DateRange{}, apperror.Validation("days", "must be between 1 and 366")
	}
	r := model.HorizonFrom(c.now(), horizonDays)
	dates := r.Dates()
	days := make([]model.AvailabilityDay, len(dates))
	for i, d := range dates {
		days[i] = model.AvailabilityDay{HallID: hallID, Date: d, Available: c.gen.Available(d)}
	}
	if err := c.repo.Upsert(ctx, days); err != nil {
		return model.DateRange{}, err
	}
	return r, nil
}

// IsRangeAvailable is false when any date of r is explicitly unavailable.
func (c *CalendarStore) IsRangeAvailable(ctx context.Context, hallID uint64, r model.DateRange) (bool, error) {
	stored, err := c.repo.Get(ctx, hallID, r)
	if err != nil {
		return false, err
	}
	for _, available := range stored {
		if !available {
			return false, nil
		}
	}
	return true, nil
}
