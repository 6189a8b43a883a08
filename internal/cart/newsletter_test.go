package cart

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/fjod/go_giftpack/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewsletter_OneShotPerEmail(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	logger := zaptest.NewLogger(t)
	ledger := NewLedger(kv, logger)

	s := NewStore(ctx, "p1", Deps{KV: kv, Ledger: ledger, Logger: logger})

	s.ApplyNewsletterDiscount(ctx)
	assert.False(t, s.HasNewsletterDiscount(), "no subscription yet")

	s.Subscribe(ctx, " Client@Example.com ")
	assert.True(t, s.NewsletterEligible(ctx))

	s.ApplyNewsletterDiscount(ctx)
	assert.True(t, s.HasNewsletterDiscount())
	assert.False(t, s.NewsletterEligible(ctx))

	s.ApplyNewsletterDiscount(ctx)
	assert.False(t, s.HasNewsletterDiscount())
	assert.Empty(t, s.SubscribedEmail())

	var used []string
	data, err := kv.Get(ctx, UsedDiscountEmailsKey)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &used))
	assert.Equal(t, []string{"client@example.com"}, used)
}

func TestNewsletter_LedgerIsShared(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	logger := zaptest.NewLogger(t)
	ledger := NewLedger(kv, logger)

	first := NewStore(ctx, "p1", Deps{KV: kv, Ledger: ledger, Logger: logger})
	second := NewStore(ctx, "p2", Deps{KV: kv, Ledger: ledger, Logger: logger})

	first.Subscribe(ctx, "shared@example.com")
	first.ApplyNewsletterDiscount(ctx)
	require.True(t, first.HasNewsletterDiscount())

	second.Subscribe(ctx, "SHARED@example.com")
	second.ApplyNewsletterDiscount(ctx)
	assert.False(t, second.HasNewsletterDiscount())
}

func TestNewsletter_RemoveDiscount(t *testing.T) {
	ctx := context.Background()
	s := NewStore(ctx, "p1", Deps{KV: storage.NewMemoryKV(), Logger: zaptest.NewLogger(t)})

	s.Subscribe(ctx, "a@b.c")
	s.ApplyNewsletterDiscount(ctx)
	require.True(t, s.HasNewsletterDiscount())

	s.RemoveNewsletterDiscount(ctx)
	assert.False(t, s.HasNewsletterDiscount())
}

func TestLedger_CorruptListStartsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set(ctx, UsedDiscountEmailsKey, []byte(`nope`)))

	ledger := NewLedger(kv, zaptest.NewLogger(t))
	assert.False(t, ledger.Used(ctx, "a@b.c"))
	assert.True(t, ledger.Consume(ctx, "a@b.c"))
	assert.True(t, ledger.Used(ctx, "A@B.C"))
	assert.False(t, ledger.Consume(ctx, ""))
}
