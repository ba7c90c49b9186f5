package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/orderdesk/internal/tenancy"
)

// TenantClaims are the claims carried by chatbot access tokens.
type TenantClaims struct {
	TenantID string `json:"tenant_id"`
	AgencyID string `json:"agency_id,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TenantJWT enforces an HMAC-signed JWT and stores the caller's tenant scope
// in the request context. Tokens without a tenant_id claim are rejected.
func TenantJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				unauthorized(w, "auth disabled")
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				unauthorized(w, "missing authorization header")
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := TenantClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				unauthorized(w, "invalid token")
				return
			}
			tenantID := strings.TrimSpace(claims.TenantID)
			if tenantID == "" {
				unauthorized(w, "token missing tenant")
				return
			}
			role := strings.ToLower(strings.TrimSpace(claims.Role))
			if role == "" {
				role = tenancy.RoleCustomer
			}

			ctx := tenancy.WithScope(r.Context(), tenancy.Scope{
				TenantID: tenantID,
				AgencyID: strings.TrimSpace(claims.AgencyID),
				Role:     role,
				Subject:  claims.Subject,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"success":false,"error":"` + message + `"}`))
}
