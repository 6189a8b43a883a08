package cart

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/fjod/go_giftpack/internal/domain"
	"github.com/fjod/go_giftpack/internal/pricing"
)

// Placeholders written into stored payloads for unset fields. Carts persisted by
// earlier storefront versions carry them, so they are read back as "unset".
const (
	placeholderNone   = "-"
	placeholderNoPack = "aucun"
)

type storedLine struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	Price           float64  `json:"price"`
	OriginalPrice   *float64 `json:"originalPrice,omitempty"`
	Quantity        int      `json:"quantity"`
	Image           string   `json:"image"`
	Size            string   `json:"size"`
	Color           string   `json:"color,omitempty"`
	Personalization string   `json:"personalization"`
	WithBox         bool     `json:"withBox"`
	Pack            string   `json:"pack"`
	FromPack        bool     `json:"fromPack,omitempty"`
	TypeProduct     string   `json:"type_product,omitempty"`
	ItemGroup       string   `json:"itemgroup_product,omitempty"`
	Discount        string   `json:"discount_product,omitempty"`
}

// Normalize turns placeholder values into empty fields and trims whitespace so
// identity comparison works on real values only.
func Normalize(l domain.CartLine) domain.CartLine {
	l.Size = unsetIf(l.Size, placeholderNone)
	l.Color = unsetIf(l.Color, placeholderNone)
	l.Personalization = unsetIf(l.Personalization, placeholderNone)
	l.Pack = unsetIf(l.Pack, placeholderNoPack)
	return l
}

func unsetIf(v, placeholder string) string {
	v = strings.TrimSpace(v)
	if v == placeholder {
		return ""
	}
	return v
}

func orPlaceholder(v, placeholder string) string {
	if v == "" {
		return placeholder
	}
	return v
}

// DisplaySize returns the size as shown to customers and the emailer.
func DisplaySize(l domain.CartLine) string { return orPlaceholder(l.Size, placeholderNone) }

// DisplayPersonalization returns the personalization as shown to customers and the emailer.
func DisplayPersonalization(l domain.CartLine) string {
	return orPlaceholder(l.Personalization, placeholderNone)
}

// DisplayPack returns the pack name as shown to customers and the emailer.
func DisplayPack(l domain.CartLine) string { return orPlaceholder(l.Pack, placeholderNoPack) }

func encodeLines(lines []domain.CartLine) ([]byte, error) {
	out := make([]storedLine, len(lines))
	for i, l := range lines {
		out[i] = storedLine{
			ID:              l.ID,
			Name:            l.Name,
			Price:           l.Price,
			OriginalPrice:   l.OriginalPrice,
			Quantity:        l.Quantity,
			Image:           l.Image,
			Size:            DisplaySize(l),
			Color:           l.Color,
			Personalization: DisplayPersonalization(l),
			WithBox:         l.WithBox,
			Pack:            DisplayPack(l),
			FromPack:        l.FromPack,
			TypeProduct:     l.TypeProduct,
			ItemGroup:       l.ItemGroup,
			Discount:        l.Discount,
		}
	}
	return json.Marshal(out)
}

// decodeLines drops lines that break the quantity invariant. Lines stored
// without any personalization field take the text saved for their product and
// are repriced with the surcharge; a stored "-" means none was chosen.
func decodeLines(data []byte, personalizations map[int64]string) ([]domain.CartLine, error) {
	var in []storedLine
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("unmarshal cart lines failed: %w", err)
	}
	lines := make([]domain.CartLine, 0, len(in))
	for _, s := range in {
		if s.Quantity < 1 {
			continue
		}
		if strings.TrimSpace(s.Personalization) == "" {
			if text := personalizations[s.ID]; pricing.HasPersonalization(text) {
				s.Personalization = text
				s.Price += pricing.PersonalizationSurcharge(s.ItemGroup, text, s.FromPack)
			}
		}
		lines = append(lines, Normalize(domain.CartLine{
			ID:              s.ID,
			Name:            s.Name,
			Price:           s.Price,
			OriginalPrice:   s.OriginalPrice,
			Quantity:        s.Quantity,
			Image:           s.Image,
			Size:            s.Size,
			Color:           s.Color,
			Personalization: s.Personalization,
			WithBox:         s.WithBox,
			Pack:            s.Pack,
			FromPack:        s.FromPack,
			TypeProduct:     s.TypeProduct,
			ItemGroup:       s.ItemGroup,
			Discount:        s.Discount,
		}))
	}
	return lines, nil
}

func encodePersonalizations(m map[int64]string) ([]byte, error) {
	out := make(map[string]string, len(m))
	for id, text := range m {
		out[strconv.FormatInt(id, 10)] = text
	}
	return json.Marshal(out)
}

// decodePersonalizations skips keys that are not product ids.
func decodePersonalizations(data []byte) (map[int64]string, error) {
	var in map[string]string
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("unmarshal personalizations failed: %w", err)
	}
	out := make(map[int64]string, len(in))
	for k, v := range in {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		out[id] = v
	}
	return out, nil
}
