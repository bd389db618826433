package handler

import (
	"io"
	"net/http"
	"strings"

	"fulfillment-api/internal/model"
	"fulfillment-api/internal/service"
	"fulfillment-api/internal/stock"
	"fulfillment-api/pkg/apierror"
	"fulfillment-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// ProductHandler handles product and stock HTTP requests.
type ProductHandler struct {
	products *service.ProductService
}

// NewProductHandler creates a new product handler.
func NewProductHandler(products *service.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

// ListProducts handles GET /api/v1/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	response.OK(w, products)
}

// GetProduct handles GET /api/v1/products/{name}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.OK(w, p)
}

// UpsertProduct handles POST /api/v1/admin/products
func (h *ProductHandler) UpsertProduct(w http.ResponseWriter, r *http.Request) {
	var p model.Product
	if !decodeJSON(w, r, maxBodyBytes, &p) {
		return
	}

	saved, err := h.products.Upsert(r.Context(), &p)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.OK(w, saved)
}

// DeleteProduct handles DELETE /api/v1/admin/products/{name}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeServiceError(w, err)
		return
	}
	response.NoContent(w)
}

// RestockFile is one file-mode unit of a restock request.
type RestockFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// RestockRequest carries new stock. Content and Lines feed line-mode
// products; Files feed file-mode products.
type RestockRequest struct {
	Content string        `json:"content,omitempty"`
	Lines   []string      `json:"lines,omitempty"`
	Files   []RestockFile `json:"files,omitempty"`
}

// Units flattens the request into stock units.
func (req RestockRequest) Units() []stock.Unit {
	var units []stock.Unit
	if req.Content != "" {
		units = append(units, stock.Unit{Content: req.Content})
	}
	for _, l := range req.Lines {
		units = append(units, stock.Unit{Content: l})
	}
	for _, f := range req.Files {
		units = append(units, stock.Unit{Name: f.Name, Content: f.Content})
	}
	return units
}

// Restock handles POST /api/v1/admin/products/{name}/restock
// A text/plain body is taken as newline separated units.
func (h *ProductHandler) Restock(w http.ResponseWriter, r *http.Request) {
	var req RestockRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/plain") {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, restockBodyBytes))
		if err != nil {
			response.Error(w, apierror.BadRequest("failed to read request body"))
			return
		}
		req.Content = string(body)
	} else if !decodeJSON(w, r, restockBodyBytes, &req) {
		return
	}

	units := req.Units()
	if len(units) == 0 {
		response.Error(w, apierror.BadRequest("no stock units in request"))
		return
	}

	res, err := h.products.Restock(r.Context(), chi.URLParam(r, "name"), units)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.OK(w, res)
}

// SyncStock handles POST /api/v1/admin/stock/sync
func (h *ProductHandler) SyncStock(w http.ResponseWriter, r *http.Request) {
	results, err := h.products.SyncAll(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.OK(w, map[string]interface{}{
		"synced":  len(results),
		"results": results,
	})
}
