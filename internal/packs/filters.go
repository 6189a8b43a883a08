package packs

import "github.com/fjod/go_giftpack/internal/domain"

// Dimension is the product attribute a filter matches on.
type Dimension string

const (
	DimensionItemGroup Dimension = "itemgroup"
	DimensionType      Dimension = "type"
)

// AdditionalFilter narrows a category by one more product column.
type AdditionalFilter struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// CategoryFilter is one category offered for a pack slot.
type CategoryFilter struct {
	Label      string            `json:"label"`
	Dimension  Dimension         `json:"type"`
	Value      string            `json:"value"`
	Additional *AdditionalFilter `json:"additionalFilter,omitempty"`
}

// Matches reports whether a product belongs to the category.
func (f CategoryFilter) Matches(p domain.Product) bool {
	var v string
	switch f.Dimension {
	case DimensionItemGroup:
		v = p.ItemGroup
	case DimensionType:
		v = p.Type
	default:
		return false
	}
	if v != f.Value {
		return false
	}
	if f.Additional != nil && p.Field(f.Additional.Field) != f.Additional.Value {
		return false
	}
	return true
}

// MatchesAny reports whether a product belongs to at least one of the filters.
func MatchesAny(filters []CategoryFilter, p domain.Product) bool {
	for _, f := range filters {
		if f.Matches(p) {
			return true
		}
	}
	return false
}

var (
	cravates = CategoryFilter{Label: "Cravates", Dimension: DimensionItemGroup, Value: domain.ItemGroupCravates}

	portefeuilles = CategoryFilter{Label: "Portefeuilles", Dimension: DimensionItemGroup, Value: domain.ItemGroupPortefeuilles}

	ceintures = CategoryFilter{Label: "Ceintures", Dimension: DimensionItemGroup, Value: domain.ItemGroupCeintures}

	chemisesHomme = CategoryFilter{
		Label:      "Chemises Homme",
		Dimension:  DimensionItemGroup,
		Value:      domain.ItemGroupChemises,
		Additional: &AdditionalFilter{Field: "category_product", Value: "homme"},
	}

	porteCles = CategoryFilter{Label: "Porte-clés", Dimension: DimensionItemGroup, Value: domain.ItemGroupPorteCles}

	porteCartes = CategoryFilter{Label: "Porte-cartes", Dimension: DimensionItemGroup, Value: domain.ItemGroupPorteCartes}
)
