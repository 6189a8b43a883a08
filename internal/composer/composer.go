// Package composer assembles a gift pack slot by slot and submits it to the cart.
package composer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fjod/go_giftpack/internal/domain"
	"github.com/fjod/go_giftpack/internal/packs"
)

var (
	ErrUnknownTemplate    = errors.New("unknown pack template")
	ErrSlotOutOfRange     = errors.New("slot index out of range")
	ErrSlotOccupied       = errors.New("slot already filled")
	ErrCategoryNotAllowed = errors.New("product category not offered for this slot")
	ErrPackIncomplete     = errors.New("pack has empty slots")
)

// Catalog lists the products a pack can be built from.
type Catalog interface {
	AllProducts(ctx context.Context) ([]domain.Product, error)
}

// Cart receives the lines of a submitted pack.
type Cart interface {
	Add(ctx context.Context, line domain.CartLine)
}

// SubmitOptions apply to every component of the pack.
type SubmitOptions struct {
	WithBox          bool
	Personalizations map[int64]string
}

// Slot is the public view of one pack slot.
type Slot struct {
	Index   int             `json:"index"`
	Product *domain.Product `json:"product,omitempty"`
}

type Composer struct {
	mu       sync.Mutex
	template packs.Template
	catalog  Catalog
	slots    []*domain.Product
}

func New(templateName string, catalog Catalog) (*Composer, error) {
	t, ok := packs.Lookup(templateName)
	if !ok {
		return nil, fmt.Errorf("%q: %w", templateName, ErrUnknownTemplate)
	}
	return &Composer{
		template: t,
		catalog:  catalog,
		slots:    make([]*domain.Product, t.Slots),
	}, nil
}

func (c *Composer) Template() packs.Template { return c.template }

// Slots returns the state of every slot.
func (c *Composer) Slots() []Slot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Slot, len(c.slots))
	for i, p := range c.slots {
		out[i] = Slot{Index: i}
		if p != nil {
			cp := *p
			out[i].Product = &cp
		}
	}
	return out
}

// Placed returns the filled slots in slot order.
func (c *Composer) Placed() []domain.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.placedLocked()
}

func (c *Composer) placedLocked() []domain.Product {
	var out []domain.Product
	for _, p := range c.slots {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

func (c *Composer) Complete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.slots {
		if p == nil {
			return false
		}
	}
	return true
}

// Offer returns the categories allowed in the slot and the catalog products
// matching them, optionally narrowed by a case-insensitive name search.
func (c *Composer) Offer(ctx context.Context, slot int, search string) ([]packs.CategoryFilter, []domain.Product, error) {
	c.mu.Lock()
	if slot < 0 || slot >= len(c.slots) {
		c.mu.Unlock()
		return nil, nil, ErrSlotOutOfRange
	}
	filters := packs.AvailableCategories(c.template.Name, slot, c.placedLocked())
	c.mu.Unlock()

	if len(filters) == 0 {
		return nil, nil, nil
	}

	all, err := c.catalog.AllProducts(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	search = strings.ToLower(strings.TrimSpace(search))
	var products []domain.Product
	for _, p := range all {
		if !packs.MatchesAny(filters, p) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		products = append(products, p)
	}
	return filters, products, nil
}

// Place puts a product into an empty slot if its category is currently offered.
func (c *Composer) Place(slot int, p domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if slot < 0 || slot >= len(c.slots) {
		return ErrSlotOutOfRange
	}
	if c.slots[slot] != nil {
		return ErrSlotOccupied
	}
	filters := packs.AvailableCategories(c.template.Name, slot, c.placedLocked())
	if !packs.MatchesAny(filters, p) {
		return fmt.Errorf("%s in %s: %w", p.ItemGroup, c.template.Name, ErrCategoryNotAllowed)
	}
	c.slots[slot] = &p
	return nil
}

// Clear empties a slot. Clearing an empty slot is a no-op.
func (c *Composer) Clear(slot int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slot < 0 || slot >= len(c.slots) {
		return ErrSlotOutOfRange
	}
	c.slots[slot] = nil
	return nil
}

// Submit adds every component and the packaging fee line to the cart, then
// resets the composer.
func (c *Composer) Submit(ctx context.Context, cart Cart, opts SubmitOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range c.slots {
		if p == nil {
			return ErrPackIncomplete
		}
	}

	for _, p := range c.slots {
		cart.Add(ctx, ComponentLine(c.template, *p, opts))
	}
	cart.Add(ctx, FeeLine(c.template))

	c.slots = make([]*domain.Product, c.template.Slots)
	return nil
}

// ComponentLine is the cart line of a product assembled into a pack.
func ComponentLine(t packs.Template, p domain.Product, opts SubmitOptions) domain.CartLine {
	return domain.CartLine{
		ID:              p.ID,
		Name:            p.Name,
		Price:           p.Price,
		Quantity:        1,
		Image:           p.Image,
		Color:           p.Color,
		Personalization: opts.Personalizations[p.ID],
		WithBox:         opts.WithBox,
		Pack:            t.Name,
		FromPack:        true,
		TypeProduct:     p.Type,
		ItemGroup:       p.ItemGroup,
		Discount:        p.Discount,
	}
}

// FeeLine is the packaging fee of a pack. It carries the pack name explicitly.
func FeeLine(t packs.Template) domain.CartLine {
	return domain.CartLine{
		ID:          t.FeeProductID,
		Name:        t.Name + " - Frais de packaging",
		Price:       t.PackagingFee,
		Quantity:    1,
		Pack:        t.Name,
		TypeProduct: domain.TypePack,
	}
}
