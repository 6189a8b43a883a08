package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/fjod/go_giftpack/internal/storage"
	"go.uber.org/zap"
)

// Ledger records which emails already consumed the newsletter discount. One
// ledger is shared by every cart of the process.
type Ledger struct {
	mu     sync.Mutex
	kv     storage.KV
	logger *zap.Logger
}

func NewLedger(kv storage.KV, logger *zap.Logger) *Ledger {
	return &Ledger{kv: kv, logger: logger}
}

// NormalizeEmail lower-cases and trims an address before it is compared.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Used reports whether the email already consumed the discount.
func (l *Ledger) Used(ctx context.Context, email string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Contains(l.load(ctx), NormalizeEmail(email))
}

// Consume marks the email as used and reports whether it was still eligible.
// An email already in the ledger is never added twice.
func (l *Ledger) Consume(ctx context.Context, email string) bool {
	email = NormalizeEmail(email)
	if email == "" {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	used := l.load(ctx)
	if slices.Contains(used, email) {
		return false
	}
	used = append(used, email)

	data, err := json.Marshal(used)
	if err != nil {
		l.logger.Error("marshal used discount emails failed", zap.Error(err))
		return true
	}
	if err := l.kv.Set(ctx, UsedDiscountEmailsKey, data); err != nil {
		l.logger.Warn("persist used discount emails failed", zap.Error(err))
	}
	return true
}

func (l *Ledger) load(ctx context.Context) []string {
	data, err := l.kv.Get(ctx, UsedDiscountEmailsKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		l.logger.Warn("load used discount emails failed", zap.Error(err))
		return nil
	}
	var used []string
	if err := json.Unmarshal(data, &used); err != nil {
		l.logger.Warn("corrupt used discount emails", zap.Error(fmt.Errorf("unmarshal: %w", err)))
		return nil
	}
	return used
}
