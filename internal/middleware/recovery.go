package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"fulfillment-api/pkg/apierror"
)

// Recovery turns a handler panic into a 500 envelope and logs the stack
// with the request id.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.Printf("[Recovery] %s %s (request %s) panicked: %v\n%s",
				r.Method, r.URL.Path, GetRequestID(r.Context()), rec, debug.Stack())
			apierror.InternalError("internal server error").Write(w)
		}()

		next.ServeHTTP(w, r)
	})
}
