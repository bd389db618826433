package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"fulfillment-api/pkg/apierror"
)

// NewAPIKeyMiddleware guards admin routes. The key is read from X-API-Key or
// an "Authorization: Bearer" header. With no keys configured every request
// is refused.
func NewAPIKeyMiddleware(keys []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(keys) == 0 {
				apierror.Forbidden("admin API is disabled: no API keys configured").Write(w)
				return
			}

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				auth := r.Header.Get("Authorization")
				if strings.HasPrefix(auth, "Bearer ") {
					apiKey = strings.TrimPrefix(auth, "Bearer ")
				}
			}

			if apiKey == "" {
				apierror.Unauthorized("Authentication required. Use the X-API-Key header.").Write(w)
				return
			}

			if !isValidKey(apiKey, keys) {
				apierror.Unauthorized("Invalid API key").Write(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isValidKey checks if the provided key is in the valid keys list.
func isValidKey(key string, validKeys []string) bool {
	for _, valid := range validKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(valid)) == 1 {
			return true
		}
	}
	return false
}
