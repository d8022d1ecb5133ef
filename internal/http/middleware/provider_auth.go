package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wolfman30/carehub/internal/identity"
)

type contextKey string

const providerClaimsKey contextKey = "providerClaims"

// ProviderClaims are carried by tokens issued to care providers. The
// subject is the provider id.
type ProviderClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// ProviderJWT enforces an HMAC-signed JWT for the provider dashboard and
// puts the provider id in the request context.
func ProviderJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeAuthError(w, "provider auth disabled")
				return
			}
			tokenString, ok := bearerToken(r)
			if !ok {
				writeAuthError(w, "missing authorization header")
				return
			}
			claims := &ProviderClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			}, jwt.WithExpirationRequired())
			if err != nil || !token.Valid || strings.TrimSpace(claims.Subject) == "" {
				writeAuthError(w, "invalid token")
				return
			}
			ctx := identity.WithProviderID(r.Context(), claims.Subject)
			ctx = context.WithValue(ctx, providerClaimsKey, *claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProviderClaimsFromContext returns provider JWT claims if present.
func ProviderClaimsFromContext(ctx context.Context) (ProviderClaims, bool) {
	claims, ok := ctx.Value(providerClaimsKey).(ProviderClaims)
	return claims, ok
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

func writeAuthError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
