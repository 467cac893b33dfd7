// Package memory is an in-process implementation of store.Store used by
// the engine and HTTP tests.  InTx holds a
// single store-wide mutex for the whole transaction and restores a
// snapshot when fn fails, so it is serialisable but not concurrent
// across halls.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/store"
)

type state struct {
	halls      map[uint64]*model.Hall
	avail      map[uint64]map[string]bool
	rules      map[uint64]model.PricingRule
	bookings   map[uint64]*model.Booking
	hallSeq    uint64
	ruleSeq    uint64
	bookingSeq uint64
}

func newState() *state {
	return &state{
		halls:    map[uint64]*model.Hall{},
		avail:    map[uint64]map[string]bool{},
		rules:    map[uint64]model.PricingRule{},
		bookings: map[uint64]*model.Booking{},
	}
}

func (s *state) clone() *state {
	c := newState()
	c.hallSeq, c.ruleSeq, c.bookingSeq = s.hallSeq, s.ruleSeq, s.bookingSeq
	for id, h := range s.halls {
		hc := *h
		c.halls[id] = &hc
	}
	for id, days := range s.avail {
		m := make(map[string]bool, len(days))
		for d, v := range days {
			m[d] = v
		}
		c.avail[id] = m
	}
	for id, r := range s.rules {
		c.rules[id] = r
	}
	for id, b := range s.bookings {
		bc := *b
		c.bookings[id] = &bc
	}
	return c
}

// Store is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	data   *state
	faults map[string]error
	now    func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{data: newState(), faults: map[string]error{}, now: time.Now}
}

// InjectError makes the named operation fail with err until cleared
// with a nil err.  Operation names are "<repo>.<method>", for example
// "calendar.upsert" or "bookings.update".
func (s *Store) InjectError(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

type nopLocker struct{}

func (nopLocker) Lock()   {}
func (nopLocker) Unlock() {}

func (s *Store) repos(l sync.Locker) store.Repos {
	b := base{s: s, l: l}
	return store.Repos{
		Halls:    hallRepo{b},
		Calendar: calendarRepo{b},
		Pricing:  pricingRepo{b},
		Bookings: bookingRepo{b},
	}
}

// Repos returns repositories that lock the store per call.
func (s *Store) Repos() store.Repos { return s.repos(&s.mu) }

// InTx runs fn with the store locked.  If fn fails every change it made
// is discarded.
func (s *Store) InTx(ctx context.Context, lockHallID uint64, fn func(store.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if lockHallID != 0 {
		if _, ok := s.data.halls[lockHallID]; !ok {
			return store.ErrNotFound
		}
	}
	snapshot := s.data.clone()
	if err := fn(s.repos(nopLocker{})); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

type base struct {
	s *Store
	l sync.Locker
}

func (b base) fault(op string) error { return b.s.faults[op] }

type hallRepo struct{ base }

func (r hallRepo) GetByID(_ context.Context, id uint64) (*model.Hall, error) {
	r.l.Lock()
	defer r.l.Unlock()
	h, ok := r.s.data.halls[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	hc := *h
	return &hc, nil
}

func (r hallRepo) List(_ context.Context) ([]*model.Hall, error) {
	r.l.Lock()
	defer r.l.Unlock()
	out := make([]*model.Hall, 0, len(r.s.data.halls))
	for _, h := range r.s.data.halls {
		hc := *h
		out = append(out, &hc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r hallRepo) Create(_ context.Context, h *model.Hall) error {
	r.l.Lock()
	defer r.l.Unlock()
	if err := r.fault("halls.create"); err != nil {
		return err
	}
	r.s.data.hallSeq++
	now := r.s.now().UTC()
	h.ID = r.s.data.hallSeq
	h.CreatedAt, h.UpdatedAt = now, now
	if h.Amenities == nil {
		h.Amenities = []string{}
	}
	hc := *h
	r.s.data.halls[h.ID] = &hc
	return nil
}

type calendarRepo struct{ base }

func (r calendarRepo) Get(_ context.Context, hallID uint64, dr model.DateRange) (map[string]bool, error) {
	r.l.Lock()
	defer r.l.Unlock()
	if err := r.fault("calendar.get"); err != nil {
		return nil, err
	}
	out := map[string]bool{}
	for d, v := range r.s.data.avail[hallID] {
		if day, err := model.ParseDate(d); err == nil && dr.Contains(day) {
			out[d] = v
		}
	}
	return out, nil
}

func (r calendarRepo) Upsert(_ context.Context, days []model.AvailabilityDay) error {
	r.l.Lock()
	defer r.l.Unlock()
	if err := r.fault("calendar.upsert"); err != nil {
		return err
	}
	for _, d := range days {
		m, ok := r.s.data.avail[d.HallID]
		if !ok {
			m = map[string]bool{}
			r.s.data.avail[d.HallID] = m
		}
		m[model.FormatDate(d.Date)] = d.Available
	}
	return nil
}

type pricingRepo struct{ base }

func (r pricingRepo) ListByHall(_ context.Context, hallID uint64) ([]model.PricingRule, error) {
	r.l.Lock()
	defer r.l.Unlock()
	out := []model.PricingRule{}
	for _, pr := range r.s.data.rules {
		if pr.HallID == hallID {
			out = append(out, pr)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r pricingRepo) Upsert(_ context.Context, rule *model.PricingRule) error {
	r.l.Lock()
	defer r.l.Unlock()
	if err := r.fault("pricing.upsert"); err != nil {
		return err
	}
	rule.StartDate, rule.EndDate = model.Day(rule.StartDate), model.Day(rule.EndDate)
	for id, pr := range r.s.data.rules {
		if pr.HallID == rule.HallID && pr.StartDate.Equal(rule.StartDate) && pr.EndDate.Equal(rule.EndDate) {
			pr.PricePerDayCents = rule.PricePerDayCents
			r.s.data.rules[id] = pr
			*rule = pr
			return nil
		}
	}
	r.s.data.ruleSeq++
	rule.ID = r.s.data.ruleSeq
	rule.CreatedAt = r.s.now().UTC()
	r.s.data.rules[rule.ID] = *rule
	return nil
}

func (r pricingRepo) GetByID(_ context.Context, id uint64) (*model.PricingRule, error) {
	r.l.Lock()
	defer r.l.Unlock()
	pr, ok := r.s.data.rules[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &pr, nil
}

func (r pricingRepo) Delete(_ context.Context, id uint64) error {
	r.l.Lock()
	defer r.l.Unlock()
	if _, ok := r.s.data.rules[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.data.rules, id)
	return nil
}

func (r pricingRepo) DeleteByHall(_ context.Context, hallID uint64) (int64, error) {
	r.l.Lock()
	defer r.l.Unlock()
	var n int64
	for id, pr := range r.s.data.rules {
		if pr.HallID == hallID {
			delete(r.s.data.rules, id)
			n++
		}
	}
	return n, nil
}

type bookingRepo struct{ base }

func (r bookingRepo) Create(_ context.Context, b *model.Booking) error {
	r.l.Lock()
	defer r.l.Unlock()
	if err := r.fault("bookings.create"); err != nil {
		return err
	}
	r.s.data.bookingSeq++
	b.ID = r.s.data.bookingSeq
	bc := *b
	r.s.data.bookings[b.ID] = &bc
	return nil
}

func (r bookingRepo) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	r.l.Lock()
	defer r.l.Unlock()
	b, ok := r.s.data.bookings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	bc := *b
	return &bc, nil
}

// newestFirst copies the bookings matching keep, ordered by creation
// time descending.
func (r bookingRepo) newestFirst(keep func(*model.Booking) bool) []*model.Booking {
	out := []*model.Booking{}
	for _, b := range r.s.data.bookings {
		if keep(b) {
			bc := *b
			out = append(out, &bc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r bookingRepo) ListByUser(_ context.Context, userID uint64) ([]*model.Booking, error) {
	r.l.Lock()
	defer r.l.Unlock()
	return r.newestFirst(func(b *model.Booking) bool { return b.UserID == userID }), nil
}

func (r bookingRepo) List(_ context.Context, status *model.Status) ([]*model.Booking, error) {
	r.l.Lock()
	defer r.l.Unlock()
	return r.newestFirst(func(b *model.Booking) bool { return status == nil || b.Status == *status }), nil
}

func (r bookingRepo) ListOverlapping(_ context.Context, hallID uint64, dr model.DateRange) ([]*model.Booking, error) {
	r.l.Lock()
	defer r.l.Unlock()
	if err := r.fault("bookings.list_overlapping"); err != nil {
		return nil, err
	}
	out := []*model.Booking{}
	for _, b := range r.s.data.bookings {
		if b.HallID == hallID && b.Range().Overlaps(dr) {
			bc := *b
			out = append(out, &bc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r bookingRepo) Update(_ context.Context, b *model.Booking) error {
	r.l.Lock()
	defer r.l.Unlock()
	if err := r.fault("bookings.update"); err != nil {
		return err
	}
	if _, ok := r.s.data.bookings[b.ID]; !ok {
		return store.ErrNotFound
	}
	bc := *b
	r.s.data.bookings[b.ID] = &bc
	return nil
}

func (r bookingRepo) Delete(_ context.Context, id uint64) error {
	r.l.Lock()
	defer r.l.Unlock()
	if err := r.fault("bookings.delete"); err != nil {
		return err
	}
	if _, ok := r.s.data.bookings[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.data.bookings, id)
	return nil
}
