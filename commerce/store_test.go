package commerce

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rkayurveda/storefront/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func newTestStore(opts ...Option) *Store {
	base := []Option{
		WithOrderIDGenerator(func() string { return "ORD-TEST001" }),
		WithClock(func() time.Time { return fixedTime }),
	}
	return NewStore(append(base, opts...)...)
}

func customer() Identity {
	return Identity{ID: "9876543210", Name: "New Customer", Phone: "9876543210", Role: RoleCustomer}
}

func admin() Identity {
	return Identity{
		ID: "9730593982", Name: "Radhe Krishna Admin", Phone: "9730593982", Role: RoleAdmin,
		Addresses: []Address{{ID: "addr1", Name: "Radhe Krishna Store", City: "Dhule", Default: true}},
	}
}

func TestStore_PlaceOrder_EmptyCart(t *testing.T) {
	s := newTestStore()
	s.Login(customer())

	order, err := s.PlaceOrder(context.Background(), PaymentCOD)
	assert.Nil(t, order)
	assert.ErrorIs(t, err, core.ErrEmptyCart)
	assert.True(t, core.IsNoOp(err))
	assert.Empty(t, s.Orders())
}

func TestStore_PlaceOrder_Unauthenticated(t *testing.T) {
	s := newTestStore()
	_, err := s.AddItemByID("p1")
	require.NoError(t, err)

	order, err := s.PlaceOrder(context.Background(), PaymentCOD)
	assert.Nil(t, order)
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
	assert.True(t, core.IsAuthError(err))

	assert.Equal(t, 1, s.Cart().Count, "cart untouched")
	assert.Empty(t, s.Orders())
}

func TestStore_PlaceOrder_InvalidPaymentMethod(t *testing.T) {
	s := newTestStore()
	s.Login(customer())
	_, _ = s.AddItemByID("p1")

	_, err := s.PlaceOrder(context.Background(), PaymentMethod("Barter"))
	assert.ErrorIs(t, err, core.ErrInvalidPaymentMethod)
	assert.Equal(t, 1, s.Cart().Count)
	assert.Empty(t, s.Orders())
}

func TestStore_PlaceOrder_Success(t *testing.T) {
	s := newTestStore()
	s.Login(customer())
	_, _ = s.AddItemByID("p1")
	_, _ = s.AddItemByID("p1")
	_, _ = s.AddItemByID("p2")

	order, err := s.PlaceOrder(context.Background(), PaymentCOD)
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, "ORD-TEST001", order.ID)
	assert.Equal(t, "9876543210", order.UserID)
	assert.Equal(t, 2*299+85, order.TotalAmount)
	assert.Equal(t, StatusPlaced, order.Status)
	assert.Equal(t, PaymentCOD, order.PaymentMethod)
	assert.Equal(t, fixedTime, order.CreatedAt)
	assert.Equal(t, []string{"p1", "p2"}, lineIDs(order.Items))

	assert.Equal(t, PlaceholderAddress(customer()), order.ShippingAddress)
	assert.Equal(t, "temp", order.ShippingAddress.ID)
	assert.Equal(t, "Not Provided", order.ShippingAddress.AddressLine)
	assert.Equal(t, "000000", order.ShippingAddress.Pincode)

	assert.Equal(t, 0, s.Cart().Count, "cart cleared")
	require.Len(t, s.Orders(), 1)
}

func TestStore_PlaceOrder_UsesFirstAddress(t *testing.T) {
	s := newTestStore()
	s.Login(admin())
	_, _ = s.AddItemByID("p4")

	order, err := s.PlaceOrder(context.Background(), PaymentOnline)
	require.NoError(t, err)
	assert.Equal(t, "addr1", order.ShippingAddress.ID)
	assert.Equal(t, PaymentOnline, order.PaymentMethod)
}

func TestStore_OrderTotalIsFrozen(t *testing.T) {
	s := newTestStore()
	s.Login(customer())
	_, _ = s.AddItemByID("p2")

	order, err := s.PlaceOrder(context.Background(), PaymentCOD)
	require.NoError(t, err)

	p, _ := s.Product("p2")
	p.Price = 1000
	s.SaveProduct(p)

	stored, err := s.Order(order.ID)
	require.NoError(t, err)
	assert.Equal(t, 85, stored.TotalAmount)
	assert.Equal(t, 85, stored.Items[0].Product.Price)
}

func TestStore_OrdersMostRecentFirst(t *testing.T) {
	ids := []string{"ORD-AAAAAAA", "ORD-BBBBBBB"}
	n := 0
	s := newTestStore(WithOrderIDGenerator(func() string {
		id := ids[n]
		n++
		return id
	}))
	s.Login(customer())

	for range ids {
		_, _ = s.AddItemByID("p1")
		_, err := s.PlaceOrder(context.Background(), PaymentCOD)
		require.NoError(t, err)
	}

	orders := s.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, "ORD-BBBBBBB", orders[0].ID)
	assert.Equal(t, "ORD-AAAAAAA", orders[1].ID)

	_, err := s.Order("ORD-NOPE")
	assert.ErrorIs(t, err, core.ErrOrderNotFound)
	assert.True(t, core.IsNotFound(err))
}

func TestStore_ReturnedOrderIsCopy(t *testing.T) {
	s := newTestStore()
	s.Login(customer())
	_, _ = s.AddItemByID("p1")

	order, err := s.PlaceOrder(context.Background(), PaymentCOD)
	require.NoError(t, err)
	order.Items[0].Quantity = 50

	stored, _ := s.Order(order.ID)
	assert.Equal(t, 1, stored.Items[0].Quantity)
}

func TestStore_AddItemByID_Unknown(t *testing.T) {
	s := newTestStore()
	_, err := s.AddItemByID("missing")
	assert.ErrorIs(t, err, core.ErrProductNotFound)
	assert.Equal(t, 0, s.Cart().Count)
}

func TestStore_BuyNow(t *testing.T) {
	s := newTestStore()

	added, err := s.BuyNow("p3")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.BuyNow("p3")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 1, s.Cart().Count)

	_, err = s.BuyNow("missing")
	assert.ErrorIs(t, err, core.ErrProductNotFound)
}

func TestStore_CartView(t *testing.T) {
	s := newTestStore()
	s.AddItem(testProduct("x", 10, 15))
	s.AddItem(testProduct("x", 10, 15))
	s.UpdateQuantity("x", 1)

	view := s.Cart()
	assert.Equal(t, 3, view.Count)
	assert.Equal(t, Totals{MRP: 45, Price: 30, Savings: 15}, view.Totals)

	s.ClearCart()
	assert.Equal(t, 0, s.Cart().Count)
}

func TestStore_SaveProductAssignsID(t *testing.T) {
	s := newTestStore()
	saved := s.SaveProduct(Product{Name: "Brahmi Oil", Category: CategoryHairCare})

	assert.Equal(t, NewProductID(fixedTime), saved.ID)
	assert.Equal(t, saved.ID, s.Products()[0].ID)

	assert.True(t, s.DeleteProduct(saved.ID))
	assert.False(t, s.DeleteProduct(saved.ID))
}

func TestStore_Session(t *testing.T) {
	s := newTestStore()
	assert.False(t, s.IsAuthenticated())
	assert.False(t, s.IsAdmin())
	assert.Nil(t, s.CurrentIdentity())

	s.Login(customer())
	assert.True(t, s.IsAuthenticated())
	assert.False(t, s.IsAdmin())

	s.Login(admin())
	assert.True(t, s.IsAdmin())
	id := s.CurrentIdentity()
	require.NotNil(t, id)
	id.Addresses[0].City = "Pune"
	assert.Equal(t, "Dhule", s.CurrentIdentity().Addresses[0].City)

	s.Logout()
	assert.False(t, s.IsAuthenticated())
}

func TestStore_Stats(t *testing.T) {
	s := newTestStore()
	s.Login(customer())
	_, _ = s.AddItemByID("p1")
	_, _ = s.AddItemByID("p2")
	_, err := s.PlaceOrder(context.Background(), PaymentCOD)
	require.NoError(t, err)

	st := s.Stats()
	assert.Equal(t, Stats{TotalOrders: 1, Revenue: 384, ProductCount: 4, LowStockCount: 1}, st)
}

func TestStore_WithProducts(t *testing.T) {
	s := NewStore(WithProducts([]Product{testProduct("only", 1, 2)}))
	assert.Equal(t, []string{"only"}, productIDs(s.Products()))
	assert.Equal(t, []string{"only"}, productIDs(s.ByCategory(CategorySoaps)))
	assert.Equal(t, []string{"only"}, productIDs(s.Search("product")))
	assert.Empty(t, s.LowStock())
}

func TestStore_ConcurrentCheckout(t *testing.T) {
	s := NewStore()
	s.Login(customer())

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.AddItemByID("p2")
			_ = s.Cart()
			_, _ = s.PlaceOrder(context.Background(), PaymentCOD)
		}()
	}
	wg.Wait()

	// Every unit added is accounted for exactly once: in an order or still in the cart.
	units := s.Cart().Count
	for _, o := range s.Orders() {
		for _, l := range o.Items {
			units += l.Quantity
		}
		assert.Equal(t, 85*o.Items[0].Quantity, o.TotalAmount)
	}
	assert.Equal(t, workers, units)
}

func TestRandomOrderID(t *testing.T) {
	for i := 0; i < 50; i++ {
		id := RandomOrderID()
		assert.Regexp(t, `^ORD-[A-Z0-9]{7}$`, id)
	}
}
