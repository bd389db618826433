package handler

import (
	"net/http"
	"net/url"

	"fulfillment-api/internal/antipublic"
	"fulfillment-api/internal/model"
	"fulfillment-api/pkg/apierror"
	"fulfillment-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// AntipublicHandler exposes the delivered-identity ledger to admins.
type AntipublicHandler struct {
	ledger *antipublic.Ledger
}

// NewAntipublicHandler creates a new antipublic handler.
func NewAntipublicHandler(ledger *antipublic.Ledger) *AntipublicHandler {
	return &AntipublicHandler{ledger: ledger}
}

// Stats handles GET /api/v1/admin/antipublic/stats
func (h *AntipublicHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ledger.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.OK(w, stats)
}

// Lookup handles GET /api/v1/admin/antipublic/{identity}
func (h *AntipublicHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	identity, err := url.PathUnescape(chi.URLParam(r, "identity"))
	if err != nil {
		response.Error(w, apierror.BadRequest("malformed identity"))
		return
	}
	rec, err := h.ledger.Lookup(r.Context(), identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if rec == nil {
		response.Error(w, apierror.NotFound("identity has not been delivered"))
		return
	}
	response.OK(w, rec)
}

// ByUser handles GET /api/v1/admin/antipublic/users/{user_id}
func (h *AntipublicHandler) ByUser(w http.ResponseWriter, r *http.Request) {
	recs, err := h.ledger.ByUser(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if recs == nil {
		recs = []model.DeliveredIdentity{}
	}
	response.OK(w, recs)
}

// AddRequest is a manual ledger entry.
type AddRequest struct {
	Identity string `json:"identity"`
	UserID   string `json:"user_id"`
	OrderID  string `json:"order_id,omitempty"`
	Product  string `json:"product,omitempty"`
	Content  string `json:"content,omitempty"`
}

// Add handles POST /api/v1/admin/antipublic
func (h *AntipublicHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddRequest
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}
	if req.UserID == "" {
		response.Error(w, apierror.ValidationError("invalid entry",
			apierror.FieldError{Field: "user_id", Message: "is required"}))
		return
	}

	ctx := r.Context()
	if err := h.ledger.AddManual(ctx, req.Identity, req.UserID, req.OrderID, req.Product, req.Content); err != nil {
		writeServiceError(w, err)
		return
	}

	rec, err := h.ledger.Lookup(ctx, req.Identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.Created(w, rec)
}
