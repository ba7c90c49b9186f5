package router

import (
	"net/http"
	"strings"

	"github.com/wolfman30/orderdesk/internal/tenancy"
)

const agencyHeader = "X-Agency-Id"

// requireScope rejects requests that reached a tenant route without an
// authenticated scope. Admins may narrow their scope to one agency with the
// X-Agency-Id header; other roles keep the agency from their token.
func requireScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope, ok := tenancy.ScopeFromContext(r.Context())
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"error":"authentication required"}`))
			return
		}
		if agencyID := strings.TrimSpace(r.Header.Get(agencyHeader)); agencyID != "" && scope.Role == tenancy.RoleAdmin {
			scope.AgencyID = agencyID
			r = r.WithContext(tenancy.WithScope(r.Context(), scope))
		}
		next.ServeHTTP(w, r)
	})
}
