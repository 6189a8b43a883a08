// Package cart owns the shopping cart of one browser profile: its lines, the
// pack cascade on removal and the newsletter discount flag.
//
// Commands never fail. The in-memory cart is authoritative for the session and
// storage write errors are logged and dropped.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/fjod/go_giftpack/internal/domain"
	"github.com/fjod/go_giftpack/internal/pricing"
	"github.com/fjod/go_giftpack/internal/storage"
	"go.uber.org/zap"
)

const persistTimeout = 2 * time.Second

// Deps are the collaborators of a Store. Notifier and Stock may be nil.
type Deps struct {
	KV       storage.KV
	Ledger   *Ledger
	Notifier Notifier
	Stock    StockReducer
	Logger   *zap.Logger
}

type Store struct {
	mu sync.Mutex

	profileID        string
	lines            []domain.CartLine
	personalizations map[int64]string
	subscribedEmail  string
	newsletter       bool

	kv       storage.KV
	ledger   *Ledger
	notifier Notifier
	stock    StockReducer
	logger   *zap.Logger
}

// NewStore rehydrates the cart of a profile from storage.
func NewStore(ctx context.Context, profileID string, deps Deps) *Store {
	s := &Store{
		profileID:        profileID,
		personalizations: map[int64]string{},
		kv:               deps.KV,
		ledger:           deps.Ledger,
		notifier:         deps.Notifier,
		stock:            deps.Stock,
		logger:           deps.Logger,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.With(zap.String("profile_id", profileID))
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.stock == nil {
		s.stock = nopStock{}
	}
	if s.ledger == nil {
		s.ledger = NewLedger(deps.KV, s.logger)
	}
	s.rehydrate(ctx)
	return s
}

func (s *Store) ProfileID() string { return s.profileID }

func (s *Store) rehydrate(ctx context.Context) {
	if data, ok := s.load(ctx, PersonalizationsKey(s.profileID)); ok {
		m, err := decodePersonalizations(data)
		if err != nil {
			s.logger.Warn("discarding stored personalizations", zap.Error(err))
		} else {
			s.personalizations = m
		}
	}

	if data, ok := s.load(ctx, LinesKey(s.profileID)); ok {
		lines, err := decodeLines(data, s.personalizations)
		if err != nil {
			s.logger.Warn("discarding stored cart", zap.Error(err))
		} else {
			s.lines = lines
		}
	}
	if data, ok := s.load(ctx, subscribedEmailKey(s.profileID)); ok {
		_ = json.Unmarshal(data, &s.subscribedEmail)
	}
	if data, ok := s.load(ctx, newsletterFlagKey(s.profileID)); ok {
		_ = json.Unmarshal(data, &s.newsletter)
	}
}

func (s *Store) load(ctx context.Context, key string) ([]byte, bool) {
	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("storage read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return data, true
}

// Lines returns a copy of the cart lines in insertion order.
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Store) HasNewsletterDiscount() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newsletter
}

func (s *Store) SubscribedEmail() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribedEmail
}

// Totals derives the price summary of the current cart.
func (s *Store) Totals() pricing.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pricing.CartTotals(s.lines, s.newsletter)
}

// Add merges the item into a matching line or appends a new priced line.
// Re-adding a pack component or fee line already present for that pack is a no-op.
func (s *Store) Add(ctx context.Context, item domain.CartLine) {
	item = Normalize(item)
	if item.Quantity < 1 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item.FromPack || item.IsPackagingFee() {
		for _, l := range s.lines {
			if l.ID == item.ID && l.PackName() == item.PackName() {
				return
			}
		}
	}

	for i := range s.lines {
		if s.lines[i].SameIdentity(item) {
			s.lines[i].Quantity += item.Quantity
			s.persistLines(ctx)
			return
		}
	}

	base := item.Price
	price := pricing.FinalPrice(base, item.Discount) +
		pricing.PersonalizationSurcharge(item.ItemGroup, item.Personalization, item.FromPack)
	if item.WithBox {
		price += pricing.BoxPrice
	}
	item.OriginalPrice = nil
	if _, ok := pricing.ParseDiscount(item.Discount); ok {
		item.OriginalPrice = &base
	}
	item.Price = price

	s.lines = append(s.lines, item)
	s.persistLines(ctx)
}

// Remove deletes the first line with the given product id. Removing a pack
// component or a packaging fee removes the whole pack.
func (s *Store) Remove(ctx context.Context, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, l := range s.lines {
		if l.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	target := s.lines[idx]
	pack := target.PackName()
	if (target.FromPack || target.IsPackagingFee()) && pack != "" {
		kept := s.lines[:0:0]
		for _, l := range s.lines {
			if l.PackName() != pack {
				kept = append(kept, l)
			}
		}
		s.lines = kept
		s.persistLines(ctx)
		s.logger.Info("pack removed", zap.String("pack", pack))
		s.notifier.Notify(ctx, packRemoved)
		return
	}

	s.lines = append(s.lines[:idx:idx], s.lines[idx+1:]...)
	s.persistLines(ctx)
}

// UpdateQuantity sets the quantity of every line with the product id.
// Quantities below one are ignored.
func (s *Store) UpdateQuantity(ctx context.Context, id int64, quantity int) {
	if quantity < 1 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for i := range s.lines {
		if s.lines[i].ID == id {
			s.lines[i].Quantity = quantity
			changed = true
		}
	}
	if changed {
		s.persistLines(ctx)
	}
}

// Clear empties the cart and releases the profile's pending stock.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.lines = nil
	s.persistLines(ctx)
	s.mu.Unlock()

	s.stock.ClearItems(ctx, s.profileID)
}

// TakeOrder snapshots the lines and totals, then empties the cart and drops the
// newsletter flag in the same critical section. An empty cart is left untouched
// and yields nil lines.
func (s *Store) TakeOrder(ctx context.Context) ([]domain.CartLine, pricing.Totals) {
	s.mu.Lock()
	if len(s.lines) == 0 {
		s.mu.Unlock()
		return nil, pricing.Totals{}
	}
	lines := s.lines
	totals := pricing.CartTotals(lines, s.newsletter)
	s.lines = nil
	s.newsletter = false
	s.persistLines(ctx)
	s.persistFlag(ctx)
	s.mu.Unlock()

	s.stock.ClearItems(ctx, s.profileID)
	return lines, totals
}

// SetPersonalization stores free text for a product. It is merged into stored
// lines of that product that have no personalization field the next time the
// cart loads.
func (s *Store) SetPersonalization(ctx context.Context, productID int64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pricing.HasPersonalization(text) {
		s.personalizations[productID] = text
	} else {
		delete(s.personalizations, productID)
	}

	data, err := encodePersonalizations(s.personalizations)
	if err != nil {
		s.logger.Error("marshal personalizations failed", zap.Error(err))
		return
	}
	s.write(ctx, PersonalizationsKey(s.profileID), data)
}

// Subscribe records the email the newsletter discount is keyed on.
func (s *Store) Subscribe(ctx context.Context, email string) {
	email = NormalizeEmail(email)
	if email == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscribedEmail = email
	data, _ := json.Marshal(email)
	s.write(ctx, subscribedEmailKey(s.profileID), data)
}

// NewsletterEligible reports whether the subscribed email may still claim the discount.
func (s *Store) NewsletterEligible(ctx context.Context) bool {
	email := s.SubscribedEmail()
	return email != "" && !s.ledger.Used(ctx, email)
}

// ApplyNewsletterDiscount grants the discount once per subscribed email. An
// email that already used it clears the flag and the subscription.
func (s *Store) ApplyNewsletterDiscount(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.subscribedEmail == "":
		s.newsletter = false
	case s.ledger.Consume(ctx, s.subscribedEmail):
		s.newsletter = true
	default:
		s.logger.Info("newsletter discount already used", zap.String("email", s.subscribedEmail))
		s.newsletter = false
		s.subscribedEmail = ""
		s.remove(ctx, subscribedEmailKey(s.profileID))
	}
	s.persistFlag(ctx)
}

func (s *Store) RemoveNewsletterDiscount(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newsletter = false
	s.persistFlag(ctx)
}

func (s *Store) persistLines(ctx context.Context) {
	data, err := encodeLines(s.lines)
	if err != nil {
		s.logger.Error("marshal cart failed", zap.Error(err))
		return
	}
	s.write(ctx, LinesKey(s.profileID), data)
}

func (s *Store) persistFlag(ctx context.Context) {
	data, _ := json.Marshal(s.newsletter)
	s.write(ctx, newsletterFlagKey(s.profileID), data)
}

func (s *Store) write(ctx context.Context, key string, data []byte) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.kv.Set(ctx, key, data); err != nil {
		s.logger.Warn("storage write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Store) remove(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.kv.Delete(ctx, key); err != nil {
		s.logger.Warn("storage delete failed", zap.String("key", key), zap.Error(err))
	}
}
