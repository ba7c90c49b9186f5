package tenancy

import "context"

type ctxKey string

const scopeKey ctxKey = "orderdesk.scope"

// Role values carried by authenticated callers.
const (
	RoleAdmin    = "admin"
	RoleStaff    = "staff"
	RoleCustomer = "customer"
)

// Scope is the authenticated tenant context of a request.
type Scope struct {
	TenantID string
	AgencyID string
	Role     string
	Subject  string
}

// WithScope stores the request scope in context.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey, scope)
}

// ScopeFromContext extracts the scope if present. A scope without a tenant is
// treated as missing.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	val := ctx.Value(scopeKey)
	if val == nil {
		return Scope{}, false
	}
	scope, ok := val.(Scope)
	return scope, ok && scope.TenantID != ""
}

// TenantIDFromContext is a shortcut for handlers that only need the tenant.
func TenantIDFromContext(ctx context.Context) (string, bool) {
	scope, ok := ScopeFromContext(ctx)
	if !ok {
		return "", false
	}
	return scope.TenantID, true
}
