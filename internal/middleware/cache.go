package middleware

import (
	"net/http"
)

// NoStore disables caching on every response. Readers revisit share links
// between cycles and must see the freshly published edition, never a cached
// copy of the previous one.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}
