package domain

import "time"

// Product is a catalog entry as served to the storefront.
type Product struct {
	ID             int64          `json:"id"`
	Reference      string         `json:"reference_product"`
	Name           string         `json:"name_product"`
	Description    string         `json:"description_product"`
	Image          string         `json:"img_product"`
	Type           string         `json:"type_product"`
	Category       string         `json:"category_product"`
	ItemGroup      string         `json:"itemgroup_product"`
	Price          float64        `json:"price_product"`
	Status         string         `json:"status_product"`
	Discount       string         `json:"discount_product"`
	Color          string         `json:"color_product"`
	Personalizable bool           `json:"personalization_product"`
	Sizes          map[string]int `json:"sizes,omitempty"`
	Quantity       int            `json:"qnty"`
	CreatedAt      time.Time      `json:"createdat_product"`
}

// Field returns the value of a filterable product attribute by its column name.
func (p Product) Field(name string) string {
	switch name {
	case "itemgroup_product":
		return p.ItemGroup
	case "type_product":
		return p.Type
	case "category_product":
		return p.Category
	case "color_product":
		return p.Color
	case "status_product":
		return p.Status
	}
	return ""
}
