package middleware

import (
	"net/http"

	"imgproxy/internal/apperr"
)

// APIKey rejects requests whose X-API-Key header doesn't match configured.
// An empty configured key accepts only an absent (empty) header value, per
// spec.md §6 ("API_KEY empty = accept empty key") — it does not accept an
// arbitrary key when none is configured.
func APIKey(configured string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-Key") != configured {
				apperr.WriteUnauthorized(w, "Mismatched api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
