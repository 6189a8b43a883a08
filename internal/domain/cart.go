package domain

import "strings"

// TypePack marks a packaging-fee line in the cart.
const TypePack = "Pack"

// ItemGroupChemises is the only item group that carries a personalization surcharge.
const ItemGroupChemises = "chemises"

// CartLine is one line of the cart. Size, Personalization and Pack are empty
// when unset; the "-" and "aucun" placeholders only exist in stored payloads.
type CartLine struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	Price           float64  `json:"price"`
	OriginalPrice   *float64 `json:"originalPrice,omitempty"`
	Quantity        int      `json:"quantity"`
	Image           string   `json:"image"`
	Size            string   `json:"size,omitempty"`
	Color           string   `json:"color,omitempty"`
	Personalization string   `json:"personalization,omitempty"`
	WithBox         bool     `json:"withBox,omitempty"`
	Pack            string   `json:"pack,omitempty"`
	FromPack        bool     `json:"fromPack,omitempty"`
	TypeProduct     string   `json:"type_product,omitempty"`
	ItemGroup       string   `json:"itemgroup_product,omitempty"`
	Discount        string   `json:"discount_product,omitempty"`
}

// SameIdentity reports whether two lines merge into one when added.
func (l CartLine) SameIdentity(o CartLine) bool {
	return l.ID == o.ID &&
		l.Size == o.Size &&
		l.Color == o.Color &&
		l.Personalization == o.Personalization &&
		l.WithBox == o.WithBox &&
		l.Pack == o.Pack
}

// IsPackagingFee reports whether the line is the fee line of a pack.
func (l CartLine) IsPackagingFee() bool {
	return l.TypeProduct == TypePack
}

// PackName returns the pack the line belongs to. Fee lines written before the
// pack name was stored on them carry it as the prefix of their display name.
func (l CartLine) PackName() string {
	if l.Pack != "" {
		return l.Pack
	}
	if l.IsPackagingFee() {
		name, _, _ := strings.Cut(l.Name, " - ")
		return strings.TrimSpace(name)
	}
	return ""
}
