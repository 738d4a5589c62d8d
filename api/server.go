// Package api serves the storefront as JSON over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rkayurveda/storefront/ai"
	"github.com/rkayurveda/storefront/auth"
	"github.com/rkayurveda/storefront/commerce"
	"github.com/rkayurveda/storefront/core"
	"github.com/rkayurveda/storefront/telemetry"
)

const maxBodyBytes = 1 << 20

// Server routes HTTP requests to the store, login and advice services
type Server struct {
	store        *commerce.Store
	auth         *auth.Service
	advisor      *ai.Advisor
	contactPhone string
	serviceName  string
	cors         *core.CORSConfig
	devMode      bool
	logger       core.Logger
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithLogger sets the request and handler logger
func WithLogger(logger core.Logger) ServerOption {
	return func(s *Server) { s.logger = core.ComponentLogger(logger, "api") }
}

// WithContactPhone sets the WhatsApp number used in handoff links
func WithContactPhone(phone string) ServerOption {
	return func(s *Server) {
		if phone != "" {
			s.contactPhone = phone
		}
	}
}

// WithCORS enables CORS handling
func WithCORS(cfg *core.CORSConfig) ServerOption {
	return func(s *Server) { s.cors = cfg }
}

// WithDevMode logs every request instead of only failures and slow ones
func WithDevMode(enabled bool) ServerOption {
	return func(s *Server) { s.devMode = enabled }
}

// WithServiceName sets the name reported by the health check and HTTP spans
func WithServiceName(name string) ServerOption {
	return func(s *Server) {
		if name != "" {
			s.serviceName = name
		}
	}
}

// NewServer creates a server. advisor may wrap a nil client, in which case
// advice requests get the fallback text.
func NewServer(store *commerce.Store, authService *auth.Service, advisor *ai.Advisor, opts ...ServerOption) *Server {
	s := &Server{
		store:        store,
		auth:         authService,
		advisor:      advisor,
		contactPhone: commerce.DefaultContactPhone,
		serviceName:  "rk-storefront",
		logger:       &core.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.advisor == nil {
		s.advisor = ai.NewAdvisor(nil)
	}
	return s
}

// Routes registers every endpoint on a new ServeMux
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api/products", s.handleListProducts)
	mux.HandleFunc("GET /api/products/{id}", s.handleGetProduct)
	mux.HandleFunc("GET /api/products/{id}/whatsapp", s.handleProductWhatsApp)
	mux.HandleFunc("GET /api/categories", s.handleCategories)

	mux.HandleFunc("GET /api/cart", s.handleGetCart)
	mux.HandleFunc("POST /api/cart/items", s.handleAddCartItem)
	mux.HandleFunc("POST /api/cart/buy-now", s.handleBuyNow)
	mux.HandleFunc("PATCH /api/cart/items/{id}", s.handleUpdateCartItem)

	mux.HandleFunc("POST /api/checkout", s.handleCheckout)
	mux.Handle("GET /api/orders", s.requireAuth(http.HandlerFunc(s.handleListOrders)))
	mux.Handle("GET /api/orders/{id}/whatsapp", s.requireAuth(http.HandlerFunc(s.handleOrderWhatsApp)))

	mux.HandleFunc("POST /api/auth/otp", s.handleRequestCode)
	mux.HandleFunc("POST /api/auth/verify", s.handleVerifyCode)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /api/me", s.handleMe)

	mux.HandleFunc("POST /api/advice", s.handleAdvice)

	mux.Handle("GET /api/admin/stats", s.requireAdmin(http.HandlerFunc(s.handleStats)))
	mux.Handle("PUT /api/admin/products", s.requireAdmin(http.HandlerFunc(s.handleSaveProduct)))
	mux.Handle("DELETE /api/admin/products/{id}", s.requireAdmin(http.HandlerFunc(s.handleDeleteProduct)))
	mux.Handle("POST /api/admin/products/describe", s.requireAdmin(http.HandlerFunc(s.handleDescribeProduct)))

	return mux
}

// Handler returns the routes wrapped in correlation, logging, CORS and
// OpenTelemetry middleware
func (s *Server) Handler() http.Handler {
	return core.Chain(
		otelhttp.NewHandler(s.Routes(), s.serviceName),
		core.CorrelationMiddleware,
		core.LoggingMiddleware(s.logger, s.devMode),
		core.CORSMiddleware(s.cors),
	)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": s.serviceName,
	})
}

// requireAuth rejects anonymous requests with 401 and a login redirect hint
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.store.IsAuthenticated() {
			writeLoginRequired(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin allows only the admin identity; anonymous callers get 401
// and everyone else 403
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.store.IsAuthenticated() {
			writeLoginRequired(w)
			return
		}
		if !s.store.IsAdmin() {
			s.logger.Warn("Admin route denied", telemetry.LogFields(r.Context(), map[string]interface{}{
				"operation": "require_admin",
				"path":      r.URL.Path,
			}))
			writeError(w, http.StatusForbidden, core.ErrUnauthorized.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeLoginRequired(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"error":    core.ErrUnauthenticated.Error(),
		"redirect": "/login",
	})
}

// writeStoreError maps domain errors onto status codes
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case core.IsNoOp(err):
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, core.ErrUnauthenticated):
		writeLoginRequired(w)
	case errors.Is(err, core.ErrInvalidCode):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, core.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case core.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrInvalidPaymentMethod), errors.Is(err, core.ErrInvalidPhone):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads a bounded JSON body into dst and writes a 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// decodeOptionalJSON is decodeJSON for requests whose body may be empty,
// including chunked requests that carry no content length
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
