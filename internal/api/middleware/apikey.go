package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/api/response"
)

// APIKeyHeader carries the key for protected endpoints.
const APIKeyHeader = "X-API-Key"

// HasAPIKey reports whether r carries key in the X-API-Key header.
// It is always true when key is empty.
func HasAPIKey(r *http.Request, key string) bool {
	if key == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(r.Header.Get(APIKeyHeader)), []byte(key)) == 1
}

// NewAPIKey returns a middleware requiring the X-API-Key header to equal key.
// An empty key disables the check, which is meant for local development.
func NewAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(APIKeyHeader)
			if provided == "" {
				response.RespondError(w, http.StatusUnauthorized, "unauthorized", "Missing API key")
				return
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				response.RespondError(w, http.StatusUnauthorized, "unauthorized", "Invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
