package catalog

import "github.com/fjod/go_giftpack/internal/domain"

var (
	suitSizes   = []string{"48", "50", "52", "54", "56", "58"}
	letterSizes = []string{"s", "m", "l", "xl", "xxl", "3xl"}
)

// ComputeQuantity returns the sellable quantity shown in listings. Suits sum
// their numeric sizes, small leather goods use their own count, and clothing
// sums letter sizes. Products without size rows fall back to their own count.
func ComputeQuantity(p domain.Product) int {
	switch p.ItemGroup {
	case "costumes", "vestes":
		return sumSizes(p.Sizes, suitSizes)
	case domain.ItemGroupCravates, domain.ItemGroupPortefeuilles, domain.ItemGroupPorteCles:
		return p.Quantity
	}
	if len(p.Sizes) == 0 {
		return p.Quantity
	}
	return sumSizes(p.Sizes, letterSizes)
}

func sumSizes(sizes map[string]int, keys []string) int {
	total := 0
	for _, k := range keys {
		total += sizes[k]
	}
	return total
}
