package catalog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDefault(t *testing.T) *Catalog {
	t.Helper()
	c, err := LoadDefault(context.Background(), 0)
	require.NoError(t, err)
	return c
}

func TestLoadDefault(t *testing.T) {
	c := loadDefault(t)
	assert.Equal(t, 12, c.Len())
	assert.Equal(t, []string{"Electronics", "Clothing", "Books", "Home & Kitchen"}, c.Categories())

	p, err := c.GetProduct("1")
	require.NoError(t, err)
	assert.Equal(t, "Wireless Headphones", p.Name)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(7499)))
	assert.Equal(t, 15, p.Stock)
}

func TestGetProductNotFound(t *testing.T) {
	c := loadDefault(t)
	_, err := c.GetProduct("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := LoadDefault(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadRejectsBadSeed(t *testing.T) {
	tests := map[string]string{
		"missing id": "- name: x\n  price: \"1\"\n",
		"bad price":  "- id: a\n  price: \"one\"\n",
		"duplicate":  "- id: a\n  price: \"1\"\n- id: a\n  price: \"2\"\n",
		"negative":   "- id: a\n  price: \"-1\"\n",
		"not a list": "id: a\n",
	}
	for name, seed := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(context.Background(), strings.NewReader(seed), 0)
			assert.Error(t, err)
		})
	}
}

func TestListProducts(t *testing.T) {
	c := loadDefault(t)
	lo := decimal.NewFromInt(5000)
	hi := decimal.NewFromInt(50000)

	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{"all featured", Query{}, []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12"}},
		{"category", Query{Category: "books"}, []string{"3", "7", "11"}},
		{"category all", Query{Category: "All"}, []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12"}},
		{"search description", Query{Search: "SMOOTHIES"}, []string{"8"}},
		{"price range", Query{Category: "Electronics", MinPrice: &lo, MaxPrice: &hi}, []string{"1", "9"}},
		{"price asc", Query{Category: "Books", Sort: SortPriceAsc}, []string{"3", "7", "11"}},
		{"price desc", Query{Category: "Books", Sort: SortPriceDesc}, []string{"11", "7", "3"}},
		{"name asc", Query{Category: "Home & Kitchen", Sort: SortNameAsc}, []string{"8", "4", "12"}},
		{"name desc", Query{Category: "Home & Kitchen", Sort: SortNameDesc}, []string{"12", "4", "8"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ListProducts(tt.q)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, p := range got {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestListProductsInvalidSort(t *testing.T) {
	c := loadDefault(t)
	_, err := c.ListProducts(Query{Sort: "random"})
	assert.ErrorIs(t, err, ErrInvalidSort)
}
