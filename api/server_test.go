package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rkayurveda/storefront/ai"
	"github.com/rkayurveda/storefront/ai/providers/mock"
	"github.com/rkayurveda/storefront/auth"
	"github.com/rkayurveda/storefront/commerce"
	"github.com/rkayurveda/storefront/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server  *Server
	handler http.Handler
	store   *commerce.Store
	ai      *mock.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := commerce.NewStore(
		commerce.WithOrderIDGenerator(func() string { return "ORD-HTTP001" }),
		commerce.WithClock(func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }),
	)
	authSvc := auth.NewService(core.NewMemoryStore(), core.StoreConfig{},
		auth.WithCodeGenerator(func() string { return "2468" }))
	client := mock.NewClient("Drink warm water with ginger.")
	server := NewServer(store, authSvc, ai.NewAdvisor(client),
		WithCORS(&core.CORSConfig{Enabled: true, AllowedOrigins: []string{"https://shop.example"}, AllowedMethods: []string{"GET", "POST"}}),
	)
	return &testEnv{server: server, handler: server.Handler(), store: store, ai: client}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, phone string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/verify", map[string]string{"phone": phone, "code": "1234"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get(core.HeaderCorrelationID))
}

func TestProducts(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		path string
		ids  []string
	}{
		{"/api/products", []string{"p1", "p2", "p3", "p4"}},
		{"/api/products?q=neem", []string{"p2"}},
		{"/api/products?category=Skin+Care", []string{"p3"}},
		{"/api/products?q=care&category=Hair+Care", []string{"p1"}},
		{"/api/products?q=xyz", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.path, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			products := decode[[]commerce.Product](t, rec)
			ids := []string{}
			for _, p := range products {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}

	rec := env.do(t, http.MethodGet, "/api/products/p3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Sandalwood Face Pack", decode[commerce.Product](t, rec).Name)

	rec = env.do(t, http.MethodGet, "/api/products/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/products/p2/whatsapp", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	link := decode[linkResponse](t, rec)
	assert.Equal(t, `Namaste! I want to order "Pure Neem & Aloe Soap" for ₹85. Please share details.`, link.Message)
	assert.True(t, strings.HasPrefix(link.Link, "https://wa.me/919730593982?text=Namaste%21"))

	rec = env.do(t, http.MethodGet, "/api/categories", nil)
	assert.Len(t, decode[[]string](t, rec), 4)
}

func TestCartFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/cart/items", map[string]string{"product_id": "p1"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/cart/items", map[string]string{"product_id": "p1"})
	view := decode[commerce.CartView](t, rec)
	assert.Equal(t, 2, view.Count)
	assert.Equal(t, commerce.Totals{MRP: 900, Price: 598, Savings: 302}, view.Totals)

	rec = env.do(t, http.MethodPost, "/api/cart/items", map[string]string{"product_id": "ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/cart/buy-now", map[string]string{"product_id": "p1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]interface{}](t, rec)["added"])

	rec = env.do(t, http.MethodPatch, "/api/cart/items/p1", map[string]int{"delta": -2})
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[commerce.CartView](t, rec)
	assert.Equal(t, 0, view.Count)
	assert.Empty(t, view.Lines)

	req := httptest.NewRequest(http.MethodPost, "/api/cart/items", strings.NewReader("{"))
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckout(t *testing.T) {
	env := newTestEnv(t)

	t.Run("empty cart is a no-op", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/checkout", map[string]string{"payment_method": "COD"})
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("anonymous is redirected to login", func(t *testing.T) {
		env.do(t, http.MethodPost, "/api/cart/items", map[string]string{"product_id": "p2"})
		rec := env.do(t, http.MethodPost, "/api/checkout", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "/login", decode[map[string]string](t, rec)["redirect"])
		assert.Equal(t, 1, env.store.Cart().Count)
	})

	t.Run("invalid payment method", func(t *testing.T) {
		env.login(t, "9876543210")
		rec := env.do(t, http.MethodPost, "/api/checkout", map[string]string{"payment_method": "UPI"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("places order", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/checkout", nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		resp := decode[checkoutResponse](t, rec)
		assert.Equal(t, "ORD-HTTP001", resp.Order.ID)
		assert.Equal(t, 85, resp.Order.TotalAmount)
		assert.Equal(t, commerce.PaymentCOD, resp.Order.PaymentMethod)
		assert.Contains(t, resp.Message, "Payment: Cash on Delivery. Please confirm.")
		assert.Contains(t, resp.WhatsAppLink, "ORD-HTTP001")
		assert.Equal(t, 0, env.store.Cart().Count)
	})

	t.Run("order history and link", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/orders", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		orders := decode[[]commerce.Order](t, rec)
		require.Len(t, orders, 1)
		assert.Equal(t, "temp", orders[0].ShippingAddress.ID)

		rec = env.do(t, http.MethodGet, "/api/orders/ORD-HTTP001/whatsapp", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, decode[linkResponse](t, rec).Message, "Items: Pure Neem & Aloe Soap x 1")

		rec = env.do(t, http.MethodGet, "/api/orders/ORD-NONE/whatsapp", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCheckoutEmptyBody(t *testing.T) {
	tests := []struct {
		name string
		body func() io.Reader
	}{
		{"no body", func() io.Reader { return nil }},
		{"chunked empty body", func() io.Reader { return io.NopCloser(strings.NewReader("")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.login(t, "9876543210")
			env.do(t, http.MethodPost, "/api/cart/items", map[string]string{"product_id": "p2"})

			req := httptest.NewRequest(http.MethodPost, "/api/checkout", tt.body())
			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, req)

			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			assert.Equal(t, commerce.PaymentCOD, decode[checkoutResponse](t, rec).Order.PaymentMethod)
		})
	}

	t.Run("chunked malformed body is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t, "9876543210")
		env.do(t, http.MethodPost, "/api/cart/items", map[string]string{"product_id": "p2"})

		req := httptest.NewRequest(http.MethodPost, "/api/checkout", io.NopCloser(strings.NewReader("{oops")))
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, 1, env.store.Cart().Count)
	})
}

func TestOrdersRequireLogin(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/otp", map[string]string{"phone": "123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/otp", map[string]string{"phone": "9876543210"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2468", decode[map[string]string](t, rec)["code"])

	rec = env.do(t, http.MethodPost, "/api/auth/verify", map[string]string{"phone": "9876543210", "code": "1111"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/verify", map[string]string{"phone": "9876543210", "code": "2468"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, commerce.RoleCustomer, decode[commerce.Identity](t, rec).Role)

	rec = env.do(t, http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "New Customer", decode[commerce.Identity](t, rec).Name)

	rec = env.do(t, http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, env.store.IsAuthenticated())
}

func TestAdvice(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/advice", map[string]string{"query": "indigestion"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Drink warm water with ginger.", decode[map[string]string](t, rec)["advice"])
	assert.Contains(t, env.ai.LastPrompt(), `"indigestion"`)

	rec = env.do(t, http.MethodPost, "/api/advice", map[string]string{"query": "  "})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", decode[map[string]string](t, rec)["advice"])
	assert.Equal(t, 1, env.ai.CallCount())

	env.ai.SetError(core.ErrAIUnavailable)
	rec = env.do(t, http.MethodPost, "/api/advice", map[string]string{"query": "sleep"})
	assert.Equal(t, ai.FallbackAdvice, decode[map[string]string](t, rec)["advice"])
}

func TestAdminRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/admin/stats", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	env.login(t, "9876543210")
	rec = env.do(t, http.MethodGet, "/api/admin/stats", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.do(t, http.MethodDelete, "/api/admin/products/p1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	_, ok := env.store.Product("p1")
	assert.True(t, ok, "denied request must not reach the store")

	env.login(t, "9730593982")

	rec = env.do(t, http.MethodGet, "/api/admin/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, commerce.Stats{ProductCount: 4, LowStockCount: 1}, decode[commerce.Stats](t, rec))

	rec = env.do(t, http.MethodPut, "/api/admin/products", commerce.Product{
		ID: "p2", Name: "Neem Soap v2", Category: commerce.CategorySoaps, Price: 90, MRP: 120,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	p, _ := env.store.Product("p2")
	assert.Equal(t, "Neem Soap v2", p.Name)

	rec = env.do(t, http.MethodPut, "/api/admin/products", commerce.Product{Name: "Brahmi Oil", Category: commerce.CategoryHairCare})
	require.Equal(t, http.StatusOK, rec.Code)
	created := decode[commerce.Product](t, rec)
	assert.Equal(t, "p1714554000000", created.ID)
	assert.Equal(t, created.ID, env.store.Products()[0].ID)

	rec = env.do(t, http.MethodDelete, "/api/admin/products/p4", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodDelete, "/api/admin/products/p4", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code, "deleting twice is a no-op")

	rec = env.do(t, http.MethodPost, "/api/admin/products/describe", map[string]string{"name": "Brahmi Oil", "category": "Hair Care"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Drink warm water with ginger.", decode[map[string]string](t, rec)["description"])

	env.ai.SetError(core.ErrAIUnavailable)
	rec = env.do(t, http.MethodPost, "/api/admin/products/describe", map[string]string{"name": "Brahmi Oil", "category": "Hair Care"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/cart", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://shop.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
