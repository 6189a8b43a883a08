package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_giftpack/internal/cart"
	"github.com/fjod/go_giftpack/internal/domain"
	"github.com/fjod/go_giftpack/internal/events"
	"github.com/fjod/go_giftpack/internal/mailer"
	"github.com/fjod/go_giftpack/internal/stock"
	"github.com/fjod/go_giftpack/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockSender implements mailer.Sender for testing
type MockSender struct {
	Sent chan mailer.Confirmation
	Err  error
}

func (m *MockSender) Send(_ context.Context, c mailer.Confirmation) error {
	m.Sent <- c
	return m.Err
}

// MockPublisher implements events.OrderPublisher for testing
type MockPublisher struct {
	mu        sync.Mutex
	Published []events.OrderPlaced
	Err       error
}

func (m *MockPublisher) PublishOrderPlaced(_ context.Context, e events.OrderPlaced) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, e)
	return m.Err
}

// MockStock implements Stock for testing
type MockStock struct {
	Reserved   []stock.Item
	Confirmed  bool
	ConfirmErr error
}

func (m *MockStock) Reserve(profileID string, items []stock.Item) (*stock.Reservation, error) {
	if len(items) == 0 {
		return nil, stock.ErrNothingToReserve
	}
	m.Reserved = items
	return &stock.Reservation{ProfileID: profileID, Items: items}, nil
}

func (m *MockStock) Confirm(_ context.Context, _ string) error {
	m.Confirmed = true
	return m.ConfirmErr
}

type fixture struct {
	svc       *Service
	sender    *MockSender
	publisher *MockPublisher
	stock     *MockStock
	store     *cart.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		sender:    &MockSender{Sent: make(chan mailer.Confirmation, 1)},
		publisher: &MockPublisher{},
		stock:     &MockStock{},
	}
	f.svc = NewService(f.sender, f.publisher, f.stock, 7, zap.NewNop())
	f.store = cart.NewStore(context.Background(), "profile-1", cart.Deps{
		KV:     storage.NewMemoryKV(),
		Logger: zap.NewNop(),
	})
	return f
}

func (f *fixture) waitForMail(t *testing.T) mailer.Confirmation {
	t.Helper()
	select {
	case c := <-f.sender.Sent:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("confirmation email was not sent")
		return mailer.Confirmation{}
	}
}

var buyer = mailer.UserDetails{
	Email:     " client@example.com ",
	FirstName: "Amira",
	LastName:  "Ben Salah",
	Address:   "12 rue de Marseille",
	Country:   "Tunisie",
	ZipCode:   "1000",
	Phone:     "+21620000000",
}

func TestCheckout_PlacesOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.store.Add(ctx, domain.CartLine{ID: 4, Name: "Ceinture cuir", Price: 60, Quantity: 2, WithBox: true})
	f.store.Add(ctx, domain.CartLine{ID: 5, Name: "Chemise", Price: 90, Quantity: 1, Size: "m", Pack: domain.PackDuo, FromPack: true})
	f.store.Add(ctx, domain.CartLine{ID: -4, Name: "Pack Duo - Frais de packaging", Price: 15, Quantity: 1, Pack: domain.PackDuo, TypeProduct: domain.TypePack})

	order, err := f.svc.Checkout(ctx, "profile-1", f.store, buyer)
	require.NoError(t, err)
	require.NotNil(t, order)

	conf := order.Confirmation
	assert.NotEmpty(t, conf.OrderID)
	assert.Equal(t, "client@example.com", conf.UserDetails.Email)
	require.Len(t, conf.Items, 3)

	assert.Equal(t, mailer.Item{
		Name: "Ceinture cuir", Size: "-", Color: "-", Quantity: 2, TotalPrice: 180,
		Personalization: "-", Pack: "aucun", Box: "Avec box",
	}, conf.Items[0])
	assert.Equal(t, "m", conf.Items[1].Size)
	assert.Equal(t, domain.PackDuo, conf.Items[1].Pack)
	assert.Equal(t, "-", conf.Items[1].Box)

	assert.Equal(t, 285.0, conf.PriceDetails.Subtotal)
	assert.Equal(t, 7.0, conf.PriceDetails.ShippingCost)
	assert.Equal(t, 0.0, conf.PriceDetails.NewsletterDiscountAmount)
	assert.Equal(t, 292.0, conf.PriceDetails.FinalTotal)
	assert.Equal(t, PaymentCashOnDelivery, conf.Payment.Method)

	// fee lines are not stock-tracked
	assert.Equal(t, []stock.Item{
		{ProductID: 4, Quantity: 2},
		{ProductID: 5, Size: "m", Quantity: 1},
	}, f.stock.Reserved)
	assert.True(t, f.stock.Confirmed)

	mailed := f.waitForMail(t)
	assert.Equal(t, conf.OrderID, mailed.OrderID)

	require.Len(t, f.publisher.Published, 1)
	assert.Equal(t, "profile-1", f.publisher.Published[0].ProfileID)
	assert.Equal(t, 292.0, f.publisher.Published[0].FinalTotal)

	assert.Empty(t, f.store.Lines())
	assert.False(t, f.store.HasNewsletterDiscount())
}

func TestCheckout_NewsletterDiscount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.store.Add(ctx, domain.CartLine{ID: 1, Name: "Portefeuille", Price: 100, Quantity: 1})
	f.store.Subscribe(ctx, "client@example.com")
	f.store.ApplyNewsletterDiscount(ctx)
	require.True(t, f.store.HasNewsletterDiscount())

	order, err := f.svc.Checkout(ctx, "profile-1", f.store, buyer)
	require.NoError(t, err)
	f.waitForMail(t)

	assert.Equal(t, 5.0, order.Confirmation.PriceDetails.NewsletterDiscountAmount)
	assert.Equal(t, 102.0, order.Confirmation.PriceDetails.FinalTotal)
	assert.False(t, f.store.HasNewsletterDiscount())
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.Checkout(context.Background(), "profile-1", f.store, buyer)

	assert.Nil(t, order)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, f.publisher.Published)
}

func TestCheckout_InvalidEmail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.Add(ctx, domain.CartLine{ID: 1, Name: "Portefeuille", Price: 100, Quantity: 1})

	user := buyer
	user.Email = "not-an-email"
	_, err := f.svc.Checkout(ctx, "profile-1", f.store, user)

	assert.ErrorIs(t, err, ErrInvalidEmail)
	assert.Len(t, f.store.Lines(), 1)
}

func TestCheckout_SideEffectFailuresDoNotFailOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.sender.Err = errors.New("smtp down")
	f.publisher.Err = errors.New("broker down")
	f.stock.ConfirmErr = errors.New("insufficient stock")

	f.store.Add(ctx, domain.CartLine{ID: 1, Name: "Portefeuille", Price: 100, Quantity: 1})

	order, err := f.svc.Checkout(ctx, "profile-1", f.store, buyer)
	require.NoError(t, err)
	assert.NotNil(t, order)
	f.waitForMail(t)
	assert.Empty(t, f.store.Lines())
}
