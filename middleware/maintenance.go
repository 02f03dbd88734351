package middleware

import (
	"net/http"
)

// Maintenance short-circuits gated endpoints with a static 503 while the
// maintenance flag is set. Only the decision endpoints (approve-leave,
// verify-qr) sit behind it; read paths stay up.
func Maintenance(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if enabled {
				writeError(w, "Service is under maintenance. Please try again later.", http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
