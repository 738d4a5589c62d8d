package api

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/rkayurveda/storefront/commerce"
	"github.com/rkayurveda/storefront/telemetry"
)

type productRequest struct {
	ProductID string `json:"product_id"`
}

type quantityRequest struct {
	Delta int `json:"delta"`
}

type checkoutRequest struct {
	PaymentMethod commerce.PaymentMethod `json:"payment_method"`
}

type checkoutResponse struct {
	Order        commerce.Order `json:"order"`
	Message      string         `json:"message"`
	WhatsAppLink string         `json:"whatsapp_link"`
}

type linkResponse struct {
	Message string `json:"message"`
	Link    string `json:"link"`
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	category := commerce.Category(r.URL.Query().Get("category"))

	products := s.store.Search(query)
	if category != "" {
		filtered := []commerce.Product{}
		for _, p := range products {
			if p.Category == category {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := s.store.Product(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleProductWhatsApp(w http.ResponseWriter, r *http.Request) {
	p, ok := s.store.Product(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	msg := commerce.ProductEnquiryMessage(p)
	writeJSON(w, http.StatusOK, linkResponse{Message: msg, Link: commerce.WhatsAppLink(s.contactPhone, msg)})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, commerce.Categories)
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Cart())
}

func (s *Server) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := s.store.AddItemByID(req.ProductID); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store.Cart())
}

func (s *Server) handleBuyNow(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	added, err := s.store.BuyNow(req.ProductID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"added": added,
		"cart":  s.store.Cart(),
	})
}

func (s *Server) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.store.UpdateQuantity(r.PathValue("id"), req.Delta)
	writeJSON(w, http.StatusOK, s.store.Cart())
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = commerce.PaymentCOD
	}

	ctx := r.Context()
	order, err := s.store.PlaceOrder(ctx, req.PaymentMethod)
	if err != nil {
		s.logger.Info("Checkout not completed", telemetry.LogFields(ctx, map[string]interface{}{
			"operation": "checkout",
			"reason":    err.Error(),
		}))
		writeStoreError(w, err)
		return
	}

	telemetry.AddSpanEvent(ctx, "order_placed",
		attribute.String("order.id", order.ID),
		attribute.Int("order.total", order.TotalAmount),
	)

	msg := commerce.ConfirmationMessage(*order)
	writeJSON(w, http.StatusCreated, checkoutResponse{
		Order:        *order,
		Message:      msg,
		WhatsAppLink: commerce.WhatsAppLink(s.contactPhone, msg),
	})
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Orders())
}

func (s *Server) handleOrderWhatsApp(w http.ResponseWriter, r *http.Request) {
	order, err := s.store.Order(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	msg := commerce.ConfirmationMessage(order)
	writeJSON(w, http.StatusOK, linkResponse{Message: msg, Link: commerce.WhatsAppLink(s.contactPhone, msg)})
}

type adviceRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	var req adviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"advice": s.advisor.Ask(r.Context(), req.Query)})
}
