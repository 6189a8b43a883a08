package stock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// ReservationTTL is how long a checkout reservation is valid before auto-expiring
	ReservationTTL = 5 * time.Minute

	// CleanupInterval is how often the background cleanup runs
	CleanupInterval = 30 * time.Second
)

var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrReservationExpired  = errors.New("reservation has expired")
	ErrNothingToReserve    = errors.New("no stock-tracked items to reserve")
)

// Decrementer removes sold units from the catalog.
type Decrementer interface {
	DecrementStock(ctx context.Context, productID int64, size string, qty int) error
}

// Item is one product line held for checkout.
type Item struct {
	ProductID int64
	Size      string
	Quantity  int
}

type Reservation struct {
	ID        string
	ProfileID string
	Items     []Item
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (r *Reservation) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}

// Manager holds at most one pending reservation per profile between checkout
// start and confirmation. Cart clears drop the pending reservation.
type Manager struct {
	mu           sync.Mutex
	reservations map[string]*Reservation // profileID -> reservation
	catalog      Decrementer
	logger       *zap.Logger
	ttl          time.Duration

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

func NewManager(catalog Decrementer, logger *zap.Logger) *Manager {
	return newManager(catalog, logger, ReservationTTL, CleanupInterval)
}

func newManager(catalog Decrementer, logger *zap.Logger, ttl, cleanupEvery time.Duration) *Manager {
	m := &Manager{
		reservations: make(map[string]*Reservation),
		catalog:      catalog,
		logger:       logger,
		ttl:          ttl,
		stopCleanup:  make(chan struct{}),
	}

	m.wg.Add(1)
	go m.cleanupLoop(cleanupEvery)

	return m
}

func (m *Manager) cleanupLoop(every time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.expireReservations()
		case <-m.stopCleanup:
			return
		}
	}
}

func (m *Manager) expireReservations() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for profileID, r := range m.reservations {
		if r.IsExpired() {
			m.logger.Info("reservation expired", zap.String("profile_id", profileID), zap.String("reservation_id", r.ID))
			delete(m.reservations, profileID)
		}
	}
}

// Reserve replaces any pending reservation of the profile.
func (m *Manager) Reserve(profileID string, items []Item) (*Reservation, error) {
	if len(items) == 0 {
		return nil, ErrNothingToReserve
	}

	now := time.Now()
	r := &Reservation{
		ID:        uuid.New().String(),
		ProfileID: profileID,
		Items:     append([]Item(nil), items...),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	m.mu.Lock()
	m.reservations[profileID] = r
	m.mu.Unlock()

	return r, nil
}

// Confirm decrements catalog stock for the pending reservation. Items that
// cannot be decremented are reported together; the reservation is consumed either way.
func (m *Manager) Confirm(ctx context.Context, profileID string) error {
	m.mu.Lock()
	r, ok := m.reservations[profileID]
	if ok {
		delete(m.reservations, profileID)
	}
	m.mu.Unlock()

	if !ok {
		return ErrReservationNotFound
	}
	if r.IsExpired() {
		return ErrReservationExpired
	}

	var errs []error
	for _, item := range r.Items {
		if err := m.catalog.DecrementStock(ctx, item.ProductID, item.Size, item.Quantity); err != nil {
			errs = append(errs, fmt.Errorf("product %d: %w", item.ProductID, err))
		}
	}
	return errors.Join(errs...)
}

// Pending returns the profile's reservation, if any.
func (m *Manager) Pending(profileID string) (*Reservation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[profileID]
	return r, ok
}

// ClearItems drops the profile's pending reservation.
func (m *Manager) ClearItems(_ context.Context, profileID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reservations[profileID]; ok {
		m.logger.Debug("reservation released", zap.String("profile_id", profileID))
		delete(m.reservations, profileID)
	}
}

// Close stops the background cleanup and waits for it to finish
func (m *Manager) Close() error {
	close(m.stopCleanup)
	m.wg.Wait()
	return nil
}
