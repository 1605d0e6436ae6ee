package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"org-directory/pkg/shared"

	"github.com/gorilla/mux"
)

// APIKeyHeader carries the shared secret on every protected request.
const APIKeyHeader = "X-API-Key"

// APIKeyAuth rejects requests whose X-API-Key header does not match
// apiKey.
func APIKeyAuth(apiKey string) mux.MiddlewareFunc {
	expected := []byte(apiKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(APIKeyHeader)
			if provided == "" {
				sendUnauthorized(w, "Missing API key")
				return
			}
			if len(expected) == 0 || subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
				sendUnauthorized(w, "Invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sendUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)

	response := shared.Response{
		Success: false,
		Error: &shared.Error{
			Code:    string(shared.CodeUnauthorized),
			Message: message,
		},
	}

	json.NewEncoder(w).Encode(response)
}
