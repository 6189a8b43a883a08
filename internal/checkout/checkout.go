// Package checkout turns a cart into an order: it snapshots the lines, takes
// the sold units out of stock, notifies the customer and empties the cart.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/fjod/go_giftpack/internal/cart"
	"github.com/fjod/go_giftpack/internal/domain"
	"github.com/fjod/go_giftpack/internal/events"
	"github.com/fjod/go_giftpack/internal/mailer"
	"github.com/fjod/go_giftpack/internal/pricing"
	"github.com/fjod/go_giftpack/internal/stock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	PaymentCashOnDelivery = "cash_on_delivery"
	boxLabel              = "Avec box"
	noBox                 = "-"
	sideEffectTimeout     = 10 * time.Second
)

var (
	ErrEmptyCart    = errors.New("cart is empty, nothing to checkout")
	ErrInvalidEmail = errors.New("invalid email address")
)

// Stock reserves the units of an order and takes them out of the catalog.
type Stock interface {
	Reserve(profileID string, items []stock.Item) (*stock.Reservation, error)
	Confirm(ctx context.Context, profileID string) error
}

// Cart hands over its lines and totals and empties itself in one step.
type Cart interface {
	TakeOrder(ctx context.Context) ([]domain.CartLine, pricing.Totals)
}

type Order struct {
	Confirmation mailer.Confirmation
	PlacedAt     time.Time
}

type Service struct {
	mailer    mailer.Sender
	publisher events.OrderPublisher
	stock     Stock
	shipping  float64
	logger    *zap.Logger
}

func NewService(sender mailer.Sender, publisher events.OrderPublisher, stock Stock, shipping float64, logger *zap.Logger) *Service {
	return &Service{
		mailer:    sender,
		publisher: publisher,
		stock:     stock,
		shipping:  shipping,
		logger:    logger,
	}
}

// Checkout places the order for the cart. Only validation errors are returned;
// once the order is accepted stock, email and event failures are logged.
func (s *Service) Checkout(ctx context.Context, profileID string, c Cart, user mailer.UserDetails) (*Order, error) {
	user.Email = strings.TrimSpace(user.Email)
	if _, err := mail.ParseAddress(user.Email); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEmail, user.Email)
	}

	lines, totals := c.TakeOrder(ctx)
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	order := &Order{
		Confirmation: s.snapshot(lines, totals, user),
		PlacedAt:     time.Now().UTC(),
	}
	log := s.logger.With(zap.String("profile_id", profileID), zap.String("order_id", order.Confirmation.OrderID))

	s.takeStock(ctx, profileID, lines, log)

	// the customer is not kept waiting on the emailer or the brokers
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	go func() {
		defer cancel()
		if err := s.mailer.Send(bg, order.Confirmation); err != nil {
			log.Warn("confirmation email failed", zap.Error(err))
		}
	}()

	if err := s.publisher.PublishOrderPlaced(ctx, events.OrderPlaced{
		OrderID:    order.Confirmation.OrderID,
		ProfileID:  profileID,
		Email:      user.Email,
		Items:      len(order.Confirmation.Items),
		FinalTotal: order.Confirmation.PriceDetails.FinalTotal,
		PlacedAt:   order.PlacedAt,
	}); err != nil {
		log.Warn("order event not published", zap.Error(err))
	}

	log.Info("order placed", zap.Float64("final_total", order.Confirmation.PriceDetails.FinalTotal))
	return order, nil
}

func (s *Service) snapshot(lines []domain.CartLine, totals pricing.Totals, user mailer.UserDetails) mailer.Confirmation {
	items := make([]mailer.Item, 0, len(lines))
	for _, l := range lines {
		box := noBox
		if l.WithBox {
			box = boxLabel
		}
		color := l.Color
		if color == "" {
			color = noBox
		}
		items = append(items, mailer.Item{
			Name:            l.Name,
			Size:            cart.DisplaySize(l),
			Color:           color,
			Quantity:        l.Quantity,
			TotalPrice:      pricing.LineTotal(l),
			Personalization: cart.DisplayPersonalization(l),
			Pack:            cart.DisplayPack(l),
			Box:             box,
		})
	}

	return mailer.Confirmation{
		OrderID:     uuid.New().String(),
		UserDetails: user,
		Items:       items,
		PriceDetails: mailer.PriceDetails{
			Subtotal:                 totals.Subtotal,
			ShippingCost:             s.shipping,
			NewsletterDiscountAmount: totals.Discount,
			FinalTotal:               totals.Total + s.shipping,
		},
		Payment: mailer.Payment{Method: PaymentCashOnDelivery},
	}
}

func (s *Service) takeStock(ctx context.Context, profileID string, lines []domain.CartLine, log *zap.Logger) {
	items := make([]stock.Item, 0, len(lines))
	for _, l := range lines {
		if l.IsPackagingFee() {
			continue
		}
		items = append(items, stock.Item{ProductID: l.ID, Size: l.Size, Quantity: l.Quantity})
	}

	if _, err := s.stock.Reserve(profileID, items); err != nil {
		if !errors.Is(err, stock.ErrNothingToReserve) {
			log.Warn("stock reservation failed", zap.Error(err))
		}
		return
	}
	if err := s.stock.Confirm(ctx, profileID); err != nil {
		log.Warn("stock not fully decremented", zap.Error(err))
	}
}
