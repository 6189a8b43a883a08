package service

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_giftpack/internal/cart"
	"github.com/fjod/go_giftpack/internal/composer"
	"github.com/fjod/go_giftpack/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Session is the in-memory state of one browser profile.
type Session struct {
	Cart  *cart.Store
	Inbox *cart.Inbox

	mu        sync.Mutex
	composers map[string]*composer.Composer
	catalog   composer.Catalog
	lastSeen  time.Time
}

// Composer returns the pack being assembled for the template, starting one if needed.
func (s *Session) Composer(template string) (*composer.Composer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.composers[template]; ok {
		return c, nil
	}
	c, err := composer.New(template, s.catalog)
	if err != nil {
		return nil, err
	}
	s.composers[template] = c
	return c, nil
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

type SessionDeps struct {
	KV      storage.KV
	Ledger  *cart.Ledger
	Stock   cart.StockReducer
	Catalog composer.Catalog
	Logger  *zap.Logger
}

// Sessions keeps one rehydrated cart per profile.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	sfg      singleflight.Group
	deps     SessionDeps
}

func NewSessions(deps SessionDeps) *Sessions {
	if deps.Ledger == nil {
		deps.Ledger = cart.NewLedger(deps.KV, deps.Logger)
	}
	return &Sessions{
		sessions: make(map[string]*Session),
		deps:     deps,
	}
}

// Get returns the profile's session, rehydrating it from storage on first use.
func (s *Sessions) Get(ctx context.Context, profileID string) *Session {
	s.mu.RLock()
	sess, ok := s.sessions[profileID]
	s.mu.RUnlock()
	if ok {
		sess.touch()
		return sess
	}

	v, _, _ := s.sfg.Do(profileID, func() (interface{}, error) {
		s.mu.RLock()
		existing, ok := s.sessions[profileID]
		s.mu.RUnlock()
		if ok {
			return existing, nil
		}

		inbox := &cart.Inbox{}
		sess := &Session{
			Cart: cart.NewStore(context.WithoutCancel(ctx), profileID, cart.Deps{
				KV:       s.deps.KV,
				Ledger:   s.deps.Ledger,
				Notifier: inbox,
				Stock:    s.deps.Stock,
				Logger:   s.deps.Logger,
			}),
			Inbox:     inbox,
			composers: make(map[string]*composer.Composer),
			catalog:   s.deps.Catalog,
			lastSeen:  time.Now(),
		}

		s.mu.Lock()
		s.sessions[profileID] = sess
		s.mu.Unlock()
		return sess, nil
	})
	return v.(*Session)
}

// Evict drops the in-memory session so the next request rehydrates from storage.
func (s *Sessions) Evict(_ context.Context, profileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, profileID)
}

// EvictIdle drops sessions not used since the cutoff and returns how many were dropped.
func (s *Sessions) EvictIdle(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.idleSince().Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

const minSweepInterval = time.Second

// sweepInterval is half the idle limit, never below minSweepInterval.
func sweepInterval(maxIdle time.Duration) time.Duration {
	return max(maxIdle/2, minSweepInterval)
}

// RunJanitor evicts sessions idle for longer than maxIdle until ctx is done.
func (s *Sessions) RunJanitor(ctx context.Context, maxIdle time.Duration) {
	ticker := time.NewTicker(sweepInterval(maxIdle))
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.EvictIdle(time.Now().Add(-maxIdle)); n > 0 {
				s.deps.Logger.Info("evicted idle sessions", zap.Int("count", n))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
