package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"evcharge/backend/services/booking-service/internal/cache"
	"evcharge/backend/services/booking-service/internal/clients"
	"evcharge/backend/services/booking-service/internal/models"
	"evcharge/backend/services/booking-service/internal/repository"
)

type fakeStations struct {
	mu       sync.Mutex
	stations map[int64]*models.Station
	nextID   int64
	bookings *fakeBookings
}

func newFakeStations(list ...*models.Station) *fakeStations {
	f := &fakeStations{stations: make(map[int64]*models.Station)}
	for _, st := range list {
		f.stations[st.ID] = st
		if st.ID > f.nextID {
			f.nextID = st.ID
		}
	}
	return f
}

func (f *fakeStations) Create(_ context.Context, st *models.Station) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	st.ID = f.nextID
	st.CreatedAt = time.Now()
	cp := *st
	f.stations[st.ID] = &cp
	return nil
}

func (f *fakeStations) GetByID(_ context.Context, id int64) (*models.Station, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.stations[id]
	if !ok {
		return nil, repository.ErrStationNotFound
	}
	cp := *st
	return &cp, nil
}

func (f *fakeStations) Update(_ context.Context, st *models.Station) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.stations[st.ID]; !ok {
		return repository.ErrStationNotFound
	}
	cp := *st
	f.stations[st.ID] = &cp
	return nil
}

func (f *fakeStations) UpdateStatus(_ context.Context, id int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.stations[id]
	if !ok {
		return repository.ErrStationNotFound
	}
	st.Status = status
	return nil
}

func (f *fakeStations) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.stations[id]; !ok {
		return repository.ErrStationNotFound
	}
	if f.bookings != nil && f.bookings.activeFor(id) > 0 {
		return repository.ErrStationHasBookings
	}
	delete(f.stations, id)
	return nil
}

func (f *fakeStations) List(_ context.Context, filter models.StationFilter) ([]models.Station, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Station
	for _, st := range f.stations {
		if filter.Status != "" && st.Status != filter.Status {
			continue
		}
		if b := filter.Box; b != nil {
			c := st.Coordinates
			if c == nil || c.Latitude < b.MinLat || c.Latitude > b.MaxLat || c.Longitude < b.MinLng || c.Longitude > b.MaxLng {
				continue
			}
		}
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

type fakeBookings struct {
	mu        sync.Mutex
	bookings  map[int64]*models.Booking
	nextID    int64
	createErr error
	// onOccupied runs after OccupiedSlots has read its result.
	onOccupied func()
}

func newFakeBookings() *fakeBookings {
	return &fakeBookings{bookings: make(map[int64]*models.Booking)}
}

// seed stores b as-is and returns its id.
func (f *fakeBookings) seed(b models.Booking) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	b.ID = f.nextID
	if b.Slots == nil {
		b.Slots = []string{b.TimeSlot}
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, int(b.ID), time.UTC)
	}
	f.bookings[b.ID] = &b
	return b.ID
}

func (f *fakeBookings) get(id int64) models.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.bookings[id]
}

func (f *fakeBookings) takenLocked(exclude int64, stationID *int64, date string, labels []string) bool {
	for id, b := range f.bookings {
		if id == exclude || !b.Active() || b.StationID == nil || stationID == nil || *b.StationID != *stationID || b.Date != date {
			continue
		}
		for _, held := range b.Slots {
			for _, l := range labels {
				if held == l {
					return true
				}
			}
		}
	}
	return false
}

func (f *fakeBookings) Create(_ context.Context, b *models.Booking, occupied []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if f.takenLocked(0, b.StationID, b.Date, occupied) {
		return repository.ErrSlotTaken
	}
	f.nextID++
	b.ID = f.nextID
	b.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, int(b.ID), time.UTC)
	b.Slots = occupied
	cp := *b
	f.bookings[b.ID] = &cp
	return nil
}

func (f *fakeBookings) OccupiedSlots(_ context.Context, stationID int64, date string) ([]string, error) {
	f.mu.Lock()
	var out []string
	for _, b := range f.bookings {
		if b.Active() && b.StationID != nil && *b.StationID == stationID && b.Date == date {
			out = append(out, b.Slots...)
		}
	}
	hook := f.onOccupied
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return out, nil
}

func (f *fakeBookings) GetByID(_ context.Context, id int64) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookings) transition(b *models.Booking, apply func(*models.Booking)) (*models.Booking, error) {
	next := *b
	apply(&next)
	if next.Active() && f.takenLocked(next.ID, next.StationID, next.Date, next.Slots) {
		return nil, repository.ErrSlotTaken
	}
	*b = next
	cp := next
	return &cp, nil
}

func (f *fakeBookings) GetBySession(_ context.Context, sessionID string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.StripeSessionID == sessionID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repository.ErrBookingNotFound
}

func (f *fakeBookings) MarkPaid(_ context.Context, id int64, intent string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.BookingStatus == models.BookingCancelled ||
		(b.PaymentStatus != models.PaymentPending && b.PaymentStatus != models.PaymentFailed) {
		return nil, repository.ErrBookingNotPending
	}
	return f.transition(b, func(n *models.Booking) {
		n.PaymentStatus = models.PaymentCompleted
		n.BookingStatus = models.BookingConfirmed
		n.StripePaymentIntentID = intent
	})
}

func (f *fakeBookings) Cancel(_ context.Context, id int64, paymentStatus string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	return f.transition(b, func(n *models.Booking) {
		n.BookingStatus = models.BookingCancelled
		n.PaymentStatus = paymentStatus
	})
}

func (f *fakeBookings) SetStatus(_ context.Context, id int64, status string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	return f.transition(b, func(n *models.Booking) { n.BookingStatus = status })
}

func (f *fakeBookings) ListByUser(_ context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.Booking
	for _, b := range f.bookings {
		if b.UserID == filter.UserID && (filter.Status == "" || b.BookingStatus == filter.Status) {
			all = append(all, *b)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	start := (filter.Page - 1) * filter.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + filter.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (f *fakeBookings) activeFor(stationID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.bookings {
		if b.Active() && b.StationID != nil && *b.StationID == stationID {
			n++
		}
	}
	return n
}

func (f *fakeBookings) ExpirePending(_ context.Context, cutoff time.Time) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Booking
	for _, b := range f.bookings {
		if b.PaymentStatus == models.PaymentPending && b.Active() && b.CreatedAt.Before(cutoff) {
			b.BookingStatus = models.BookingCancelled
			b.PaymentStatus = models.PaymentFailed
			out = append(out, *b)
		}
	}
	return out, nil
}

type fakePayments struct {
	mu        sync.Mutex
	created   []clients.CheckoutParams
	sessions  map[string]*clients.CheckoutSession
	expired   []string
	refunds   []string
	createErr error
	refundErr error
	expireErr error
	nextID    int
}

func newFakePayments() *fakePayments {
	return &fakePayments{sessions: make(map[string]*clients.CheckoutSession)}
}

func (f *fakePayments) CreateCheckoutSession(_ context.Context, p clients.CheckoutParams) (*clients.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	f.created = append(f.created, p)
	id := fmt.Sprintf("cs_test_%d", f.nextID)
	s := &clients.CheckoutSession{ID: id, URL: "https://checkout.test/" + id, Status: "open", PaymentStatus: "unpaid"}
	f.sessions[id] = s
	return s, nil
}

func (f *fakePayments) RetrieveCheckoutSession(_ context.Context, id string) (*clients.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, &clients.StripeError{Status: 404, Type: "invalid_request_error", Code: "resource_missing"}
	}
	cp := *s
	return &cp, nil
}

func (f *fakePayments) ExpireCheckoutSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.expireErr != nil {
		return f.expireErr
	}
	f.expired = append(f.expired, id)
	if s, ok := f.sessions[id]; ok {
		s.Status = "expired"
	}
	return nil
}

func (f *fakePayments) CreateRefund(_ context.Context, intent string) (*clients.Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	f.refunds = append(f.refunds, intent)
	return &clients.Refund{ID: "re_" + intent, Status: "succeeded"}, nil
}

type fakeCache struct {
	mu          sync.Mutex
	entries     map[string][]string
	gens        map[string]int64
	getErr      error
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]string), gens: make(map[string]int64)}
}

func cacheKey(stationID int64, date string) string {
	return fmt.Sprintf("%d/%s", stationID, date)
}

func (f *fakeCache) Get(_ context.Context, stationID int64, date string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.entries[cacheKey(stationID, date)]
	if !ok {
		return nil, cache.ErrMiss
	}
	return v, nil
}

func (f *fakeCache) Generation(_ context.Context, stationID int64, date string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gens[cacheKey(stationID, date)], nil
}

func (f *fakeCache) Set(_ context.Context, stationID int64, date string, gen int64, slots []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := cacheKey(stationID, date)
	if f.gens[key] != gen {
		return nil
	}
	f.entries[key] = slots
	return nil
}

func (f *fakeCache) Invalidate(_ context.Context, stationID int64, date string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := cacheKey(stationID, date)
	delete(f.entries, key)
	f.gens[key]++
	f.invalidated = append(f.invalidated, key)
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []cache.Event
	err    error
}

func (f *fakeEvents) Publish(_ context.Context, ev cache.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

var errBoom = errors.New("boom")
