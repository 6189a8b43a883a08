package pricing

import (
	"testing"

	"github.com/fjod/go_giftpack/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestFinalPrice(t *testing.T) {
	tests := []struct {
		name     string
		base     float64
		discount string
		want     float64
	}{
		{"no discount", 100, "", 100},
		{"zero", 100, "0", 100},
		{"negative", 100, "-10", 100},
		{"nan", 100, "NaN", 100},
		{"garbage", 100, "abc", 100},
		{"twenty percent", 100, "20", 80},
		{"percent suffix", 200, "25%", 150},
		{"fractional", 80, "12.5", 70},
		{"clamped", 100, "150", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, FinalPrice(tt.base, tt.discount), 1e-9)
		})
	}
}

func TestFinalPrice_NeverAboveBase(t *testing.T) {
	for _, d := range []string{"0.1", "1", "33", "99.9", "100", "1e3"} {
		assert.LessOrEqual(t, FinalPrice(59.9, d), 59.9, "discount %q", d)
	}
}

func TestPersonalizationSurcharge(t *testing.T) {
	assert.Equal(t, 30.0, PersonalizationSurcharge("chemises", "A.B.", false))
	assert.Equal(t, 0.0, PersonalizationSurcharge("chemises", "A.B.", true), "pack pricing is fixed")
	assert.Equal(t, 0.0, PersonalizationSurcharge("chemises", "-", false))
	assert.Equal(t, 0.0, PersonalizationSurcharge("chemises", "  ", false))
	assert.Equal(t, 0.0, PersonalizationSurcharge("cravates", "A.B.", false))
}

func TestLineTotal(t *testing.T) {
	assert.Equal(t, 90.0, LineTotal(domain.CartLine{Price: 45, Quantity: 2}))
}

func TestCartTotals(t *testing.T) {
	lines := []domain.CartLine{
		{ID: 1, Price: 100, Quantity: 2},
		{ID: 2, Price: 50, Quantity: 1, WithBox: true},
	}

	got := CartTotals(lines, false)
	assert.Equal(t, Totals{Subtotal: 250, BoxTotal: 30, Discount: 0, Total: 250}, got)

	got = CartTotals(lines, true)
	assert.InDelta(t, 12.5, got.Discount, 1e-9)
	assert.InDelta(t, 237.5, got.Total, 1e-9)
	assert.Equal(t, 250.0, got.Subtotal)
}

func TestCartTotals_Empty(t *testing.T) {
	assert.Equal(t, Totals{}, CartTotals(nil, true))
}
