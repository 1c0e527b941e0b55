package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed products.yaml
var defaultSeed []byte

var (
	ErrNotFound    = errors.New("product not found")
	ErrInvalidSort = errors.New("invalid sort order")
)

// Source is what the cart and checkout need from a product catalog.
type Source interface {
	ListProducts(q Query) ([]Product, error)
	GetProduct(id string) (Product, error)
}

// Catalog is a read-only, in-memory product list. Safe for concurrent use
// because nothing mutates it after Load.
type Catalog struct {
	products []Product
	byID     map[string]int
}

// LoadDefault loads the embedded seed catalog.
func LoadDefault(ctx context.Context, delay time.Duration) (*Catalog, error) {
	return Load(ctx, bytes.NewReader(defaultSeed), delay)
}

// Load parses a YAML product list. delay simulates the latency of the
// remote catalog the storefront would normally call.
func Load(ctx context.Context, r io.Reader, delay time.Duration) (*Catalog, error) {
	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("loading catalog: %w", ctx.Err())
		case <-t.C:
		}
	}

	var seed []seedProduct
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	c := &Catalog{byID: make(map[string]int, len(seed))}
	for i, s := range seed {
		if s.ID == "" {
			return nil, fmt.Errorf("product %d: missing id", i)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("product %s: duplicate id", s.ID)
		}
		price, err := decimal.NewFromString(s.Price)
		if err != nil {
			return nil, fmt.Errorf("product %s: parsing price: %w", s.ID, err)
		}
		if price.IsNegative() || s.Stock < 0 {
			return nil, fmt.Errorf("product %s: negative price or stock", s.ID)
		}
		c.byID[s.ID] = len(c.products)
		c.products = append(c.products, Product{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Price:       price,
			ImageURL:    s.ImageURL,
			Category:    s.Category,
			Stock:       s.Stock,
		})
	}
	return c, nil
}

func (c *Catalog) GetProduct(id string) (Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return Product{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return c.products[i], nil
}

// ListProducts filters by category (exact, case-insensitive), free text over
// name and description, and an inclusive price range, then sorts. The
// featured order is the seed order.
func (c *Catalog) ListProducts(q Query) ([]Product, error) {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		if q.Category != "" && !strings.EqualFold(q.Category, "all") && !strings.EqualFold(p.Category, q.Category) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		if q.MinPrice != nil && p.Price.LessThan(*q.MinPrice) {
			continue
		}
		if q.MaxPrice != nil && p.Price.GreaterThan(*q.MaxPrice) {
			continue
		}
		out = append(out, p)
	}

	switch q.Sort {
	case "", SortFeatured:
	case SortPriceAsc:
		slices.SortStableFunc(out, func(a, b Product) int { return a.Price.Cmp(b.Price) })
	case SortPriceDesc:
		slices.SortStableFunc(out, func(a, b Product) int { return b.Price.Cmp(a.Price) })
	case SortNameAsc:
		slices.SortStableFunc(out, func(a, b Product) int { return strings.Compare(a.Name, b.Name) })
	case SortNameDesc:
		slices.SortStableFunc(out, func(a, b Product) int { return strings.Compare(b.Name, a.Name) })
	default:
		return nil, fmt.Errorf("%q: %w", q.Sort, ErrInvalidSort)
	}
	return out, nil
}

// Categories returns the distinct categories in seed order.
func (c *Catalog) Categories() []string {
	var out []string
	for _, p := range c.products {
		if !slices.Contains(out, p.Category) {
			out = append(out, p.Category)
		}
	}
	return out
}

func (c *Catalog) Len() int { return len(c.products) }
