package tenancy

import (
	"context"
	"testing"
)

func TestWithScopeAndScopeFromContext(t *testing.T) {
	ctx := WithScope(context.Background(), Scope{TenantID: "tenant-123", AgencyID: "agency-9", Role: RoleStaff})

	got, ok := ScopeFromContext(ctx)
	if !ok {
		t.Fatalf("expected scope to be present")
	}
	if got.TenantID != "tenant-123" || got.AgencyID != "agency-9" || got.Role != RoleStaff {
		t.Fatalf("unexpected scope %+v", got)
	}

	tenantID, ok := TenantIDFromContext(ctx)
	if !ok || tenantID != "tenant-123" {
		t.Fatalf("expected tenant-123, got %q", tenantID)
	}
}

func TestScopeFromContext_EmptyOrMissing(t *testing.T) {
	ctx := context.Background()
	if _, ok := ScopeFromContext(ctx); ok {
		t.Fatalf("expected missing scope to return false")
	}

	ctx = context.WithValue(ctx, scopeKey, "tenant-123")
	if _, ok := ScopeFromContext(ctx); ok {
		t.Fatalf("expected non-scope value to return false")
	}

	ctx = WithScope(context.Background(), Scope{AgencyID: "agency-1"})
	if _, ok := ScopeFromContext(ctx); ok {
		t.Fatalf("expected scope without tenant to return false")
	}
	if _, ok := TenantIDFromContext(ctx); ok {
		t.Fatalf("expected tenant lookup to fail")
	}
}
