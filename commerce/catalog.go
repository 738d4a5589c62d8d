package commerce

import (
	"strconv"
	"strings"
	"time"
)

// Catalog is the mutable product list, newest first. It is not safe for
// concurrent use; Store serializes access.
type Catalog struct {
	products []Product
}

// NewCatalog copies products into a new catalog
func NewCatalog(products []Product) *Catalog {
	c := &Catalog{products: make([]Product, 0, len(products))}
	for _, p := range products {
		c.products = append(c.products, p.Clone())
	}
	return c
}

// SaveProduct replaces the product with the same ID in place, or prepends
// p when the ID is new. It reports whether an existing product was replaced.
func (c *Catalog) SaveProduct(p Product) bool {
	p = p.Clone()
	for i := range c.products {
		if c.products[i].ID == p.ID {
			next := append([]Product(nil), c.products...)
			next[i] = p
			c.products = next
			return true
		}
	}
	c.products = append([]Product{p}, c.products...)
	return false
}

// DeleteProduct removes the product with id and reports whether it existed
func (c *Catalog) DeleteProduct(id string) bool {
	next := make([]Product, 0, len(c.products))
	found := false
	for _, p := range c.products {
		if p.ID == id {
			found = true
			continue
		}
		next = append(next, p)
	}
	if found {
		c.products = next
	}
	return found
}

// Get returns a copy of the product with id
func (c *Catalog) Get(id string) (Product, bool) {
	for _, p := range c.products {
		if p.ID == id {
			return p.Clone(), true
		}
	}
	return Product{}, false
}

// Products returns a copy of every product
func (c *Catalog) Products() []Product {
	return c.filter(func(Product) bool { return true })
}

// Search matches query case-insensitively against name and category.
// An empty query matches everything.
func (c *Catalog) Search(query string) []Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return c.Products()
	}
	return c.filter(func(p Product) bool {
		return strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(string(p.Category)), q)
	})
}

// ByCategory returns the products in category
func (c *Catalog) ByCategory(category Category) []Product {
	return c.filter(func(p Product) bool { return p.Category == category })
}

// LowStock returns products flagged as low stock
func (c *Catalog) LowStock() []Product {
	return c.filter(func(p Product) bool { return p.StockStatus == LowStock })
}

// Len returns the number of products
func (c *Catalog) Len() int { return len(c.products) }

func (c *Catalog) filter(keep func(Product) bool) []Product {
	out := []Product{}
	for _, p := range c.products {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	return out
}

// NewProductID returns an ID for a product created without one
func NewProductID(now time.Time) string {
	return "p" + strconv.FormatInt(now.UnixMilli(), 10)
}
