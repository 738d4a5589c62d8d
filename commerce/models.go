// Package commerce holds the storefront's in-memory state: the product
// catalog, the shopping cart, order history and the logged-in identity.
package commerce

import "time"

// Category is one of the fixed product categories
type Category string

const (
	CategoryHairCare Category = "Hair Care"
	CategorySkinCare Category = "Skin Care"
	CategorySoaps    Category = "Soaps"
	CategoryDhoop    Category = "Dhoop & Agarbatti"
)

// Categories lists every category in display order
var Categories = []Category{CategoryHairCare, CategorySkinCare, CategorySoaps, CategoryDhoop}

// Valid reports whether c belongs to the closed category set
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// StockStatus describes product availability
type StockStatus string

const (
	InStock    StockStatus = "In Stock"
	LowStock   StockStatus = "Low Stock"
	OutOfStock StockStatus = "Out of Stock"
)

// Role decides what an identity may do
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// OrderStatus is the lifecycle state of an order. Only StatusPlaced is
// ever produced here.
type OrderStatus string

const (
	StatusPlaced    OrderStatus = "Placed"
	StatusShipped   OrderStatus = "Shipped"
	StatusDelivered OrderStatus = "Delivered"
	StatusCancelled OrderStatus = "Cancelled"
)

// PaymentMethod is how the customer pays
type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "COD"
	PaymentOnline PaymentMethod = "Online"
)

// Valid reports whether m is a known payment method
func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m == PaymentOnline
}

// Label is the human-readable form used in messages
func (m PaymentMethod) Label() string {
	if m == PaymentOnline {
		return "Online Payment"
	}
	return "Cash on Delivery"
}

// Product is a catalog entry. Prices are whole rupees. Discount is
// informational and never recomputed from Price and MRP.
type Product struct {
	ID           string      `json:"id" yaml:"id"`
	Name         string      `json:"name" yaml:"name"`
	Category     Category    `json:"category" yaml:"category"`
	Description  string      `json:"description" yaml:"description"`
	Benefits     []string    `json:"benefits" yaml:"benefits"`
	Ingredients  []string    `json:"ingredients" yaml:"ingredients"`
	Usage        string      `json:"usage" yaml:"usage"`
	Price        int         `json:"price" yaml:"price"`
	MRP          int         `json:"mrp" yaml:"mrp"`
	Discount     int         `json:"discount" yaml:"discount"`
	Images       []string    `json:"images" yaml:"images"`
	StockStatus  StockStatus `json:"stock_status" yaml:"stock_status"`
	Rating       float64     `json:"rating" yaml:"rating"`
	ReviewsCount int         `json:"reviews_count" yaml:"reviews_count"`
	Enabled      bool        `json:"enabled" yaml:"enabled"`
}

// Clone returns a copy that shares no slices with p
func (p Product) Clone() Product {
	p.Benefits = cloneStrings(p.Benefits)
	p.Ingredients = cloneStrings(p.Ingredients)
	p.Images = cloneStrings(p.Images)
	return p
}

// CartLine pairs a product with a positive quantity
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Address is a shipping destination
type Address struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	State       string `json:"state"`
	Pincode     string `json:"pincode"`
	Default     bool   `json:"is_default"`
}

// Identity is the logged-in user
type Identity struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	Role      Role      `json:"role"`
	Addresses []Address `json:"addresses"`
}

// IsAdmin reports whether the identity may manage the catalog
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// Clone returns a deep copy
func (i Identity) Clone() Identity {
	if i.Addresses != nil {
		i.Addresses = append([]Address(nil), i.Addresses...)
	}
	return i
}

// Order is created once at checkout and never changed afterwards.
type Order struct {
	ID              string        `json:"id"`
	UserID          string        `json:"user_id"`
	Items           []CartLine    `json:"items"`
	TotalAmount     int           `json:"total_amount"`
	Status          OrderStatus   `json:"status"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	ShippingAddress Address       `json:"shipping_address"`
	CreatedAt       time.Time     `json:"created_at"`
}

// Clone returns a deep copy
func (o Order) Clone() Order {
	o.Items = cloneLines(o.Items)
	return o
}

// Totals are derived from the current cart lines
type Totals struct {
	MRP     int `json:"mrp"`
	Price   int `json:"price"`
	Savings int `json:"savings"`
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func cloneLines(lines []CartLine) []CartLine {
	if lines == nil {
		return nil
	}
	out := make([]CartLine, len(lines))
	for i, l := range lines {
		out[i] = CartLine{Product: l.Product.Clone(), Quantity: l.Quantity}
	}
	return out
}
