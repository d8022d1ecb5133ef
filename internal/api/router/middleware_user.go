package router

import (
	"net/http"
	"strings"

	"github.com/wolfman30/carehub/internal/identity"
)

const userHeader = "X-User-Id"

// requireUserID takes the patient's id from the session header set by the
// auth proxy and puts it in the request context.
func requireUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(userHeader))
		if userID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"missing X-User-Id"}`))
			return
		}
		ctx := identity.WithUserID(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
