package commerce

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rkayurveda/storefront/core"
)

// DefaultProducts returns the built-in catalog
func DefaultProducts() []Product {
	return []Product{
		{
			ID:           "p1",
			Name:         "Herbal Hair Growth Oil",
			Category:     CategoryHairCare,
			Description:  "A traditional blend of Bhringraj and Amla for thick, shiny hair.",
			Benefits:     []string{"Reduces hair fall", "Promotes new growth", "Prevents premature graying"},
			Ingredients:  []string{"Bhringraj", "Amla", "Coconut Oil", "Brahmi"},
			Usage:        "Apply once a week and leave for 2 hours before washing.",
			Price:        299,
			MRP:          450,
			Discount:     34,
			Images:       []string{"https://picsum.photos/seed/hair/600/600", "https://picsum.photos/seed/hair2/600/600"},
			StockStatus:  InStock,
			Rating:       4.8,
			ReviewsCount: 124,
			Enabled:      true,
		},
		{
			ID:           "p2",
			Name:         "Pure Neem & Aloe Soap",
			Category:     CategorySoaps,
			Description:  "Handmade cold-pressed soap for clear, glowing skin.",
			Benefits:     []string{"Antibacterial properties", "Hydrates skin", "Treats acne"},
			Ingredients:  []string{"Neem oil", "Aloe vera gel", "Essential oils"},
			Usage:        "Use daily during bath.",
			Price:        85,
			MRP:          120,
			Discount:     29,
			Images:       []string{"https://picsum.photos/seed/soap/600/600"},
			StockStatus:  InStock,
			Rating:       4.5,
			ReviewsCount: 89,
			Enabled:      true,
		},
		{
			ID:           "p3",
			Name:         "Sandalwood Face Pack",
			Category:     CategorySkinCare,
			Description:  "Natural Chandan pack for tan removal and cooling effect.",
			Benefits:     []string{"Removes tan", "Brightens complexion", "Cooling effect"},
			Ingredients:  []string{"Sandalwood powder", "Turmeric", "Multani Mitti"},
			Usage:        "Mix with rose water, apply for 15 mins.",
			Price:        199,
			MRP:          250,
			Discount:     20,
			Images:       []string{"https://picsum.photos/seed/skin/600/600"},
			StockStatus:  LowStock,
			Rating:       4.9,
			ReviewsCount: 56,
			Enabled:      true,
		},
		{
			ID:           "p4",
			Name:         "Premium Guggul Dhoop",
			Category:     CategoryDhoop,
			Description:  "Purify your home with the divine fragrance of Guggul.",
			Benefits:     []string{"Purifies air", "Reduces stress", "Spiritual atmosphere"},
			Ingredients:  []string{"Natural resin", "Herbs", "Honey"},
			Usage:        "Light one stick daily for meditation.",
			Price:        150,
			MRP:          180,
			Discount:     16,
			Images:       []string{"https://picsum.photos/seed/dhoop/600/600"},
			StockStatus:  InStock,
			Rating:       4.7,
			ReviewsCount: 210,
			Enabled:      true,
		},
	}
}

type seedFile struct {
	Products []Product `yaml:"products"`
}

// ParseProducts decodes a YAML catalog of the form `products: [...]`.
// Every product needs an ID and a known category.
func ParseProducts(data []byte) ([]Product, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &core.StoreError{Op: "ParseProducts", Kind: "config", Message: fmt.Sprintf("invalid catalog YAML: %v", err), Err: core.ErrInvalidConfiguration}
	}
	seen := make(map[string]bool, len(f.Products))
	for i, p := range f.Products {
		if p.ID == "" {
			return nil, &core.StoreError{Op: "ParseProducts", Kind: "config", Message: fmt.Sprintf("product %d has no id", i), Err: core.ErrInvalidConfiguration}
		}
		if seen[p.ID] {
			return nil, &core.StoreError{Op: "ParseProducts", Kind: "config", ID: p.ID, Message: "duplicate product id " + p.ID, Err: core.ErrInvalidConfiguration}
		}
		if !p.Category.Valid() {
			return nil, &core.StoreError{Op: "ParseProducts", Kind: "config", ID: p.ID, Message: fmt.Sprintf("product %s has unknown category %q", p.ID, p.Category), Err: core.ErrInvalidConfiguration}
		}
		seen[p.ID] = true
	}
	return f.Products, nil
}

// LoadProducts reads a YAML catalog from path. An empty path returns DefaultProducts.
func LoadProducts(path string) ([]Product, error) {
	if path == "" {
		return DefaultProducts(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return ParseProducts(data)
}
