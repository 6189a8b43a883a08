// Package packs holds the gift pack templates and resolves which categories a
// pack slot may be filled with, given the items already placed.
package packs

import (
	"sort"

	"github.com/fjod/go_giftpack/internal/domain"
)

// Condition is a predicate over the items already placed in a pack.
type Condition func(placed []domain.Product) bool

// Rule offers its filters when its condition holds. Rules are evaluated in order
// and the first match wins.
type Rule struct {
	When  Condition
	Offer []CategoryFilter
}

// Template describes a gift pack.
type Template struct {
	Name  string
	Slots int
	// PackagingFee is the price of the fee line added with the pack.
	PackagingFee float64
	// FeeProductID identifies the fee line. Negative so it never collides with catalog ids.
	FeeProductID int64
	Rules        []Rule
}

// Placed matches when exactly n items have been placed.
func Placed(n int) Condition {
	return func(placed []domain.Product) bool {
		return len(placed) == n
	}
}

// Count matches when exactly n placed items belong to the item group.
func Count(itemGroup string, n int) Condition {
	return func(placed []domain.Product) bool {
		return countGroup(placed, itemGroup) == n
	}
}

// Has matches when at least one placed item belongs to the item group.
func Has(itemGroup string) Condition {
	return func(placed []domain.Product) bool {
		return countGroup(placed, itemGroup) > 0
	}
}

// All matches when every condition matches.
func All(conds ...Condition) Condition {
	return func(placed []domain.Product) bool {
		for _, c := range conds {
			if !c(placed) {
				return false
			}
		}
		return true
	}
}

func countGroup(placed []domain.Product, itemGroup string) int {
	n := 0
	for _, p := range placed {
		if p.ItemGroup == itemGroup {
			n++
		}
	}
	return n
}

var templates = map[string]Template{
	domain.PackPremium: {
		Name:         domain.PackPremium,
		Slots:        3,
		PackagingFee: 30,
		FeeProductID: -1,
		Rules: []Rule{
			{When: Placed(0), Offer: []CategoryFilter{cravates}},
			{When: Placed(1), Offer: []CategoryFilter{portefeuilles}},
			{When: Placed(2), Offer: []CategoryFilter{ceintures}},
		},
	},
	domain.PackPrestige: {
		Name:         domain.PackPrestige,
		Slots:        3,
		PackagingFee: 50,
		FeeProductID: -2,
		Rules: []Rule{
			{When: Count(domain.ItemGroupChemises, 0), Offer: []CategoryFilter{chemisesHomme}},
			{
				When:  All(Count(domain.ItemGroupChemises, 1), Count(domain.ItemGroupCeintures, 0)),
				Offer: []CategoryFilter{ceintures},
			},
			{
				When: All(
					Count(domain.ItemGroupChemises, 1),
					Count(domain.ItemGroupCeintures, 1),
					Count(domain.ItemGroupCravates, 0),
					Count(domain.ItemGroupPortefeuilles, 0),
				),
				Offer: []CategoryFilter{cravates, portefeuilles},
			},
		},
	},
	domain.PackTrio: {
		Name:         domain.PackTrio,
		Slots:        3,
		PackagingFee: 20,
		FeeProductID: -3,
		Rules: []Rule{
			{When: Placed(0), Offer: []CategoryFilter{ceintures}},
			{When: All(Placed(1), Count(domain.ItemGroupCeintures, 1)), Offer: []CategoryFilter{portefeuilles}},
			{
				When:  All(Placed(2), Has(domain.ItemGroupCeintures), Has(domain.ItemGroupPortefeuilles)),
				Offer: []CategoryFilter{porteCles},
			},
		},
	},
	domain.PackDuo: {
		Name:         domain.PackDuo,
		Slots:        2,
		PackagingFee: 15,
		FeeProductID: -4,
		Rules: []Rule{
			{When: Placed(0), Offer: []CategoryFilter{portefeuilles}},
			{When: Placed(1), Offer: []CategoryFilter{ceintures}},
		},
	},
	domain.PackMiniDuo: {
		Name:         domain.PackMiniDuo,
		Slots:        2,
		PackagingFee: 10,
		FeeProductID: -5,
		Rules: []Rule{
			{When: Placed(0), Offer: []CategoryFilter{porteCartes}},
			{When: Placed(1), Offer: []CategoryFilter{porteCles}},
		},
	},
}

// Lookup returns the template with the given name.
func Lookup(name string) (Template, bool) {
	t, ok := templates[name]
	return t, ok
}

// Templates returns every known template sorted by name.
func Templates() []Template {
	out := make([]Template, 0, len(templates))
	for _, t := range templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Resolve evaluates the template rules against the placed items. An empty
// result means the pack is complete or was filled out of order.
func (t Template) Resolve(placed []domain.Product) []CategoryFilter {
	for _, r := range t.Rules {
		if r.When(placed) {
			return cloneFilters(r.Offer)
		}
	}
	return nil
}

// AvailableCategories returns the categories that may fill the next slot of the
// named template. The slot index is accepted for callers that track it, but
// the offer depends only on what has been placed so far. Unknown templates
// yield nothing.
func AvailableCategories(template string, slotIndex int, placed []domain.Product) []CategoryFilter {
	t, ok := Lookup(template)
	if !ok {
		return nil
	}
	return t.Resolve(placed)
}

func cloneFilters(in []CategoryFilter) []CategoryFilter {
	out := make([]CategoryFilter, len(in))
	for i, f := range in {
		if f.Additional != nil {
			a := *f.Additional
			f.Additional = &a
		}
		out[i] = f
	}
	return out
}
