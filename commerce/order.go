package commerce

import (
	"math/rand/v2"
	"time"
)

const (
	orderIDPrefix   = "ORD-"
	orderIDLength   = 7
	orderIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// OrderIDGenerator produces order identifiers
type OrderIDGenerator func() string

// RandomOrderID returns "ORD-" followed by seven random characters from
// [A-Z0-9]. It is not collision-checked.
func RandomOrderID() string {
	b := make([]byte, orderIDLength)
	for i := range b {
		b[i] = orderIDAlphabet[rand.IntN(len(orderIDAlphabet))]
	}
	return orderIDPrefix + string(b)
}

// PlaceholderAddress is used when the identity has no saved address
func PlaceholderAddress(identity Identity) Address {
	return Address{
		ID:          "temp",
		Name:        identity.Name,
		Phone:       identity.Phone,
		AddressLine: "Not Provided",
		City:        "Pending",
		State:       "Maharashtra",
		Pincode:     "000000",
		Default:     true,
	}
}

// shippingAddress picks the identity's first address, or the placeholder
func shippingAddress(identity Identity) Address {
	if len(identity.Addresses) > 0 {
		return identity.Addresses[0]
	}
	return PlaceholderAddress(identity)
}

// newOrder freezes lines into an order. lines must already be a private copy.
func newOrder(id string, identity Identity, lines []CartLine, method PaymentMethod, now time.Time) Order {
	total := 0
	for _, line := range lines {
		total += line.Product.Price * line.Quantity
	}
	return Order{
		ID:              id,
		UserID:          identity.ID,
		Items:           lines,
		TotalAmount:     total,
		Status:          StatusPlaced,
		PaymentMethod:   method,
		ShippingAddress: shippingAddress(identity),
		CreatedAt:       now,
	}
}

// Stats summarizes the store for the admin dashboard
type Stats struct {
	TotalOrders   int `json:"total_orders"`
	Revenue       int `json:"revenue"`
	ProductCount  int `json:"product_count"`
	LowStockCount int `json:"low_stock_count"`
}
