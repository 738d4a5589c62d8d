package commerce

import (
	"path/filepath"
	"testing"

	"github.com/rkayurveda/storefront/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProducts(t *testing.T) {
	products := DefaultProducts()
	require.Len(t, products, 4)
	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, productIDs(products))

	for _, p := range products {
		assert.True(t, p.Category.Valid(), p.ID)
		assert.GreaterOrEqual(t, p.MRP, p.Price, p.ID)
		assert.True(t, p.Enabled, p.ID)
	}

	products[0].Benefits[0] = "changed"
	assert.Equal(t, "Reduces hair fall", DefaultProducts()[0].Benefits[0])
}

func TestLoadProducts(t *testing.T) {
	products, err := LoadProducts(filepath.Join("testdata", "catalog.yaml"))
	require.NoError(t, err)
	require.Len(t, products, 2)

	kumkum := products[0]
	assert.Equal(t, "Kumkumadi Tailam", kumkum.Name)
	assert.Equal(t, CategorySkinCare, kumkum.Category)
	assert.Equal(t, LowStock, kumkum.StockStatus)
	assert.Equal(t, []string{"Saffron", "Sandalwood"}, kumkum.Ingredients)
	assert.Equal(t, 549, kumkum.Price)
	assert.InDelta(t, 4.6, kumkum.Rating, 0.001)
	assert.Equal(t, 41, kumkum.ReviewsCount)

	assert.Equal(t, CategoryDhoop, products[1].Category)
	assert.False(t, products[1].Enabled)
}

func TestLoadProducts_EmptyPathUsesDefaults(t *testing.T) {
	products, err := LoadProducts("")
	require.NoError(t, err)
	assert.Equal(t, DefaultProducts(), products)
}

func TestLoadProducts_MissingFile(t *testing.T) {
	_, err := LoadProducts(filepath.Join("testdata", "nope.yaml"))
	assert.Error(t, err)
}

func TestParseProducts_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		contains string
	}{
		{"malformed", "products: [", "invalid catalog YAML"},
		{"missing id", "products:\n  - name: x\n    category: Soaps\n", "has no id"},
		{"duplicate id", "products:\n  - id: a\n    category: Soaps\n  - id: a\n    category: Soaps\n", "duplicate product id a"},
		{"unknown category", "products:\n  - id: a\n    category: Toys\n", "unknown category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProducts([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
			assert.True(t, core.IsConfigurationError(err))
		})
	}
}
