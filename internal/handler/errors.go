package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"fulfillment-api/internal/antipublic"
	"fulfillment-api/internal/repository"
	"fulfillment-api/internal/service"
	"fulfillment-api/pkg/apierror"
	"fulfillment-api/pkg/response"
)

// maxBodyBytes bounds JSON request bodies. Restock uploads get restockBodyBytes.
const (
	maxBodyBytes     = 1 << 20
	restockBodyBytes = 64 << 20
)

// writeServiceError maps service and repository errors onto API errors.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		cooldown *service.CooldownError
		short    *service.StockError
	)
	switch {
	case errors.As(err, &cooldown):
		response.Error(w, apierror.Cooldown(cooldown.Error(), cooldown.Remaining))
	case errors.As(err, &short):
		response.Error(w, apierror.InsufficientStock(short.Error()))
	case errors.Is(err, repository.ErrNotFound):
		response.Error(w, apierror.NotFound(err.Error()))
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidProduct),
		errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, antipublic.ErrNoIdentity):
		response.Error(w, apierror.BadRequest(err.Error()))
	case errors.Is(err, antipublic.ErrAlreadyRecorded):
		response.Error(w, apierror.Conflict(err.Error()))
	case errors.Is(err, service.ErrShuttingDown):
		response.Error(w, apierror.ServiceUnavailable(err.Error()))
	default:
		log.Printf("[Handler] Unexpected error: %v", err)
		response.Error(w, err)
	}
}

// decodeJSON reads a JSON body of at most limit bytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON body"))
		return false
	}
	return true
}

// queryInt returns a positive integer query parameter or def.
func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
