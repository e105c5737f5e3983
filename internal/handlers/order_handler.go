package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Lixing-Zhang/furniture-store/backend/internal/middleware"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/models"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/service"
)

// OrderHandler handles checkout and order-related HTTP requests
type OrderHandler struct {
	orderService *service.OrderService
	log          *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *service.OrderService, log *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		log:          log,
	}
}

// Quote handles POST /api/checkout/quote
func (h *OrderHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req models.OrderRequest
	if !decodeAndValidate(w, r, &req, h.log) {
		return
	}

	quote, err := h.orderService.Quote(r.Context(), req)
	if err != nil {
		h.log.Info("quote rejected", "error", err)
		writeServiceError(w, err, h.log)
		return
	}

	WriteJSON(w, http.StatusOK, quote, h.log)
}

// CreateOrder handles POST /api/order
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Unauthorized", h.log)
		return
	}

	var req models.OrderRequest
	if !decodeAndValidate(w, r, &req, h.log) {
		return
	}

	orders, err := h.orderService.PlaceOrder(r.Context(), actor, req)
	if err != nil {
		h.log.Info("order rejected", "actor_id", actor.ID, "error", err)
		writeServiceError(w, err, h.log)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"checkoutId": orders[0].CheckoutID,
		"orders":     orders,
	}, h.log)
}

// ListOrders handles GET /api/order. Admins filter with ?customerId= or ?vendorId=.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Unauthorized", h.log)
		return
	}

	q := r.URL.Query()
	orders, err := h.orderService.ListOrders(r.Context(), actor, q.Get("customerId"), q.Get("vendorId"))
	if err != nil {
		writeServiceError(w, err, h.log)
		return
	}

	WriteJSON(w, http.StatusOK, orders, h.log)
}

// GetOrder handles GET /api/order/{orderId}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Unauthorized", h.log)
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), actor, chi.URLParam(r, "orderId"))
	if err != nil {
		writeServiceError(w, err, h.log)
		return
	}

	WriteJSON(w, http.StatusOK, order, h.log)
}

// TransitionOrder handles POST /api/order/{orderId}/transition
func (h *OrderHandler) TransitionOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Unauthorized", h.log)
		return
	}

	var req models.TransitionRequest
	if !decodeAndValidate(w, r, &req, h.log) {
		return
	}

	order, err := h.orderService.Transition(r.Context(), actor, chi.URLParam(r, "orderId"), req.Action)
	if err != nil {
		writeServiceError(w, err, h.log)
		return
	}

	WriteJSON(w, http.StatusOK, order, h.log)
}
