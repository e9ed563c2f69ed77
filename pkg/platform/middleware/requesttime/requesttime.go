// Package requesttime stamps each HTTP request with a single "now" and a
// correlation id so that every audit event and log line written while serving
// it agrees on both.
package requesttime

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"warden/pkg/requestcontext"
)

// HeaderRequestID is read from inbound requests and echoed on responses.
const HeaderRequestID = "X-Request-ID"

// Middleware captures the request time and request id into the context. An
// inbound X-Request-ID is kept; otherwise a new one is generated.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := requestcontext.WithTime(r.Context(), time.Now())
		ctx = requestcontext.WithRequestID(ctx, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
