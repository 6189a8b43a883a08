// Package pricing derives line prices and cart totals. Every function is pure.
package pricing

import (
	"math"
	"strconv"
	"strings"

	"github.com/fjod/go_giftpack/internal/domain"
)

const (
	// BoxPrice is the gift-box surcharge per unit.
	BoxPrice = 30.0
	// PersonalizationPrice is charged once per unit for personalized shirts.
	PersonalizationPrice = 30.0
	// NewsletterRate is the one-shot subscriber discount applied to the subtotal.
	NewsletterRate = 0.05
)

// ParseDiscount returns the percentage held in a discount string and whether
// it is a usable discount. Values above 100 are clamped so prices never go negative.
func ParseDiscount(discount string) (float64, bool) {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(discount), "%"))
	if s == "" {
		return 0, false
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return 0, false
	}
	return math.Min(d, 100), true
}

// FinalPrice applies a percentage discount to a base price.
func FinalPrice(base float64, discount string) float64 {
	d, ok := ParseDiscount(discount)
	if !ok {
		return base
	}
	return base * (1 - d/100)
}

// HasPersonalization reports whether text is a real personalization and not the
// stored placeholder.
func HasPersonalization(text string) bool {
	t := strings.TrimSpace(text)
	return t != "" && t != "-"
}

// PersonalizationSurcharge returns the per-unit surcharge for a personalized line.
// Pack components are priced with the pack.
func PersonalizationSurcharge(itemGroup, text string, fromPack bool) float64 {
	if fromPack || itemGroup != domain.ItemGroupChemises || !HasPersonalization(text) {
		return 0
	}
	return PersonalizationPrice
}

// LineTotal is the resolved unit price times the quantity.
func LineTotal(line domain.CartLine) float64 {
	return line.Price * float64(line.Quantity)
}

// Totals is the derived price summary of a cart.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	// BoxTotal is informational. Box fees are already part of the line prices.
	BoxTotal float64 `json:"boxTotal"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
}

// CartTotals sums the cart and applies the newsletter discount when the flag is set.
func CartTotals(lines []domain.CartLine, newsletter bool) Totals {
	var t Totals
	for _, l := range lines {
		t.Subtotal += LineTotal(l)
		if l.WithBox {
			t.BoxTotal += BoxPrice * float64(l.Quantity)
		}
	}
	if newsletter {
		t.Discount = t.Subtotal * NewsletterRate
	}
	t.Total = t.Subtotal - t.Discount
	return t
}
