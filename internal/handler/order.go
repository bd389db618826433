package handler

import (
	"net/http"

	"fulfillment-api/internal/service"
	"fulfillment-api/pkg/apierror"
	"fulfillment-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// OrderHandler handles purchase HTTP requests.
type OrderHandler struct {
	orders *service.OrderService
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// CreateOrder handles POST /api/v1/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req service.PurchaseRequest
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}

	var details []apierror.FieldError
	if req.UserID == "" {
		details = append(details, apierror.FieldError{Field: "user_id", Message: "is required"})
	}
	if req.Product == "" {
		details = append(details, apierror.FieldError{Field: "product", Message: "is required"})
	}
	if len(details) > 0 {
		response.Error(w, apierror.ValidationError("invalid order", details...))
		return
	}

	order, err := h.orders.Purchase(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Accepted(w, order)
}

// GetOrder handles GET /api/v1/orders/{order_id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(r.Context(), chi.URLParam(r, "order_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.OK(w, order)
}

// ListUserOrders handles GET /api/v1/users/{user_id}/orders
func (h *OrderHandler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	orders, err := h.orders.ListByUser(r.Context(), chi.URLParam(r, "user_id"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.List(w, orders, limit, len(orders))
}
