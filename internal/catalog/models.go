package catalog

import "github.com/shopspring/decimal"

// Product is immutable once loaded. Price is in whole currency units.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
}

// seedProduct is the on-disk shape. Prices are strings so they parse
// exactly into a decimal.
type seedProduct struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       string `yaml:"price"`
	ImageURL    string `yaml:"image_url"`
	Category    string `yaml:"category"`
	Stock       int    `yaml:"stock"`
}

// Sort orders accepted by Query.Sort.
const (
	SortFeatured  = "featured"
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
	SortNameAsc   = "name-asc"
	SortNameDesc  = "name-desc"
)

// Query narrows ListProducts. Zero values mean "no filter".
type Query struct {
	Category string
	Search   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
}
