package commerce

import (
	"context"
	"sync"
	"time"

	"github.com/rkayurveda/storefront/core"
)

// Store is the single state container. One RWMutex guards catalog, cart,
// orders and session so every mutation is applied whole; readers receive
// deep copies.
type Store struct {
	mu      sync.RWMutex
	catalog *Catalog
	cart    Cart
	orders  []Order
	session Session

	newOrderID OrderIDGenerator
	now        func() time.Time
	logger     core.Logger
	telemetry  core.Telemetry
}

// Option configures a Store
type Option func(*Store)

// WithProducts seeds the catalog instead of DefaultProducts
func WithProducts(products []Product) Option {
	return func(s *Store) { s.catalog = NewCatalog(products) }
}

// WithOrderIDGenerator replaces RandomOrderID
func WithOrderIDGenerator(gen OrderIDGenerator) Option {
	return func(s *Store) {
		if gen != nil {
			s.newOrderID = gen
		}
	}
}

// WithClock sets the time source used for order timestamps and product IDs
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the store logger
func WithLogger(logger core.Logger) Option {
	return func(s *Store) { s.logger = core.ComponentLogger(logger, "commerce") }
}

// WithTelemetry sets the span and metric sink
func WithTelemetry(t core.Telemetry) Option {
	return func(s *Store) {
		if t != nil {
			s.telemetry = t
		}
	}
}

// NewStore creates a store seeded with DefaultProducts unless WithProducts is given
func NewStore(opts ...Option) *Store {
	s := &Store{
		newOrderID: RandomOrderID,
		now:        time.Now,
		logger:     &core.NoOpLogger{},
		telemetry:  &core.NoOpTelemetry{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.catalog == nil {
		s.catalog = NewCatalog(DefaultProducts())
	}
	return s
}

// Catalog

// Products returns every product, newest first
func (s *Store) Products() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Products()
}

// Product returns the product with id
func (s *Store) Product(id string) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Get(id)
}

// Search matches name or category case-insensitively
func (s *Store) Search(query string) []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Search(query)
}

// ByCategory returns products in category
func (s *Store) ByCategory(category Category) []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.ByCategory(category)
}

// LowStock returns products flagged low stock
func (s *Store) LowStock() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.LowStock()
}

// SaveProduct replaces or prepends p. A blank ID is filled with
// NewProductID. The saved product is returned.
func (s *Store) SaveProduct(p Product) Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = NewProductID(s.now())
	}
	replaced := s.catalog.SaveProduct(p)

	s.logger.Info("Product saved", map[string]interface{}{
		"operation":  "save_product",
		"product_id": p.ID,
		"replaced":   replaced,
	})
	return p.Clone()
}

// DeleteProduct removes the product with id. Unknown IDs are a no-op.
func (s *Store) DeleteProduct(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := s.catalog.DeleteProduct(id)
	s.logger.Info("Product delete requested", map[string]interface{}{
		"operation":  "delete_product",
		"product_id": id,
		"deleted":    deleted,
	})
	return deleted
}

// Cart

// CartView is a consistent snapshot of the cart
type CartView struct {
	Lines  []CartLine `json:"lines"`
	Totals Totals     `json:"totals"`
	Count  int        `json:"count"`
}

// Cart returns lines, totals and count read under one lock
func (s *Store) Cart() CartView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CartView{
		Lines:  s.cart.Lines(),
		Totals: s.cart.ComputeTotals(),
		Count:  s.cart.Count(),
	}
}

// AddItem adds one unit of p to the cart
func (s *Store) AddItem(p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart.AddItem(p)
	s.logger.Debug("Cart item added", map[string]interface{}{
		"operation":  "add_item",
		"product_id": p.ID,
		"cart_count": s.cart.Count(),
	})
}

// AddItemByID looks up the product and adds it in one step
func (s *Store) AddItemByID(productID string) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.catalog.Get(productID)
	if !ok {
		return Product{}, &core.StoreError{Op: "Store.AddItemByID", Kind: "not_found", ID: productID, Err: core.ErrProductNotFound}
	}
	s.cart.AddItem(p)
	s.logger.Debug("Cart item added", map[string]interface{}{
		"operation":  "add_item",
		"product_id": p.ID,
		"cart_count": s.cart.Count(),
	})
	return p, nil
}

// BuyNow adds the product only if the cart does not already hold it.
// It reports whether a line was added.
func (s *Store) BuyNow(productID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.catalog.Get(productID)
	if !ok {
		return false, &core.StoreError{Op: "Store.BuyNow", Kind: "not_found", ID: productID, Err: core.ErrProductNotFound}
	}
	return s.cart.BuyNow(p), nil
}

// UpdateQuantity shifts a line by delta; lines reaching zero are removed
func (s *Store) UpdateQuantity(productID string, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart.UpdateQuantity(productID, delta)
	s.logger.Debug("Cart quantity updated", map[string]interface{}{
		"operation":  "update_quantity",
		"product_id": productID,
		"delta":      delta,
	})
}

// ClearCart empties the cart
func (s *Store) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Clear()
}

// Orders

// PlaceOrder turns the cart into an order for the logged-in identity.
// An empty cart yields core.ErrEmptyCart and no identity yields
// core.ErrUnauthenticated; in both cases nothing changes. On success the
// order is prepended to history and the cart is cleared.
func (s *Store) PlaceOrder(ctx context.Context, method PaymentMethod) (*Order, error) {
	_, span := s.telemetry.StartSpan(ctx, "commerce.place_order")
	defer span.End()
	span.SetAttribute("order.payment_method", string(method))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cart.Len() == 0 {
		s.logger.Debug("Checkout ignored, cart is empty", map[string]interface{}{
			"operation": "place_order",
		})
		return nil, core.ErrEmptyCart
	}
	if !s.session.IsAuthenticated() {
		s.logger.Info("Checkout refused, no identity", map[string]interface{}{
			"operation": "place_order",
		})
		span.RecordError(core.ErrUnauthenticated)
		return nil, core.ErrUnauthenticated
	}
	if !method.Valid() {
		err := &core.StoreError{Op: "Store.PlaceOrder", Kind: "validation", ID: string(method), Err: core.ErrInvalidPaymentMethod}
		span.RecordError(err)
		return nil, err
	}

	identity := s.session.identity.Clone()
	order := newOrder(s.newOrderID(), identity, s.cart.Lines(), method, s.now().UTC())

	s.orders = append([]Order{order}, s.orders...)
	s.cart.Clear()

	span.SetAttribute("order.id", order.ID)
	span.SetAttribute("order.total", order.TotalAmount)
	s.telemetry.RecordMetric("orders.placed", 1, map[string]string{"payment_method": string(method)})
	s.telemetry.RecordMetric("orders.revenue", float64(order.TotalAmount), map[string]string{"payment_method": string(method)})
	s.logger.Info("Order placed", map[string]interface{}{
		"operation":    "place_order",
		"order_id":     order.ID,
		"user_id":      order.UserID,
		"total_amount": order.TotalAmount,
		"line_count":   len(order.Items),
	})

	placed := order.Clone()
	return &placed, nil
}

// Orders returns order history, most recent first
func (s *Store) Orders() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Order, len(s.orders))
	for i, o := range s.orders {
		out[i] = o.Clone()
	}
	return out
}

// Order returns the order with id
func (s *Store) Order(id string) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		if o.ID == id {
			return o.Clone(), nil
		}
	}
	return Order{}, &core.StoreError{Op: "Store.Order", Kind: "not_found", ID: id, Err: core.ErrOrderNotFound}
}

// Stats summarizes orders and catalog for the dashboard
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		TotalOrders:   len(s.orders),
		ProductCount:  s.catalog.Len(),
		LowStockCount: len(s.catalog.LowStock()),
	}
	for _, o := range s.orders {
		st.Revenue += o.TotalAmount
	}
	return st
}

// Session

// Login makes identity the active session
func (s *Store) Login(identity Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Login(identity)
	s.logger.Info("Identity logged in", map[string]interface{}{
		"operation": "login",
		"user_id":   identity.ID,
		"role":      string(identity.Role),
	})
}

// Logout clears the active session
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Logout()
	s.logger.Info("Identity logged out", map[string]interface{}{
		"operation": "logout",
	})
}

// CurrentIdentity returns a copy of the active identity, or nil
func (s *Store) CurrentIdentity() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.CurrentIdentity()
}

// IsAuthenticated reports whether anyone is logged in
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.IsAuthenticated()
}

// IsAdmin reports whether the active identity is an admin
func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.IsAdmin()
}
