package chatbot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/orderdesk/internal/orders"
)

type stubCustomerLookup struct {
	customer *orders.Customer
	err      error
	calls    int
	lastArgs [2]string
}

func (s *stubCustomerLookup) FindCustomerByPhone(_ context.Context, phone, tenantID string) (*orders.Customer, error) {
	s.calls++
	s.lastArgs = [2]string{phone, tenantID}
	return s.customer, s.err
}

func TestResolver_PrecedenceChain(t *testing.T) {
	lookup := &stubCustomerLookup{customer: &orders.Customer{ID: "cust-phone"}}
	resolver := NewResolver(lookup)
	ctx := context.Background()

	tests := []struct {
		name   string
		intent Intent
		rc     ResolutionContext
		want   orders.Filter
		calls  int
	}{
		{
			name:   "extracted order number beats everything",
			intent: Intent{Kind: IntentOrderStatus, OrderNumber: "123"},
			rc:     ResolutionContext{TenantID: "t1", CustomerID: "c1", CustomerPhone: "+225", OrderNumber: "999"},
			want:   orders.Filter{TenantID: "t1", OrderNumber: "123"},
		},
		{
			name:   "explicit order number beats phone",
			intent: Intent{Kind: IntentPaymentInfo},
			rc:     ResolutionContext{TenantID: "t1", CustomerPhone: "+225", OrderNumber: "999"},
			want:   orders.Filter{TenantID: "t1", OrderNumber: "999"},
		},
		{
			name:   "customer id beats phone",
			intent: Intent{Kind: IntentHistory},
			rc:     ResolutionContext{TenantID: "t1", CustomerID: "c1", CustomerPhone: "+225"},
			want:   orders.Filter{TenantID: "t1", CustomerID: "c1"},
		},
		{
			name:   "phone resolves to customer",
			intent: Intent{Kind: IntentDeliveryInfo},
			rc:     ResolutionContext{TenantID: "t1", CustomerPhone: " +2250700000001 "},
			want:   orders.Filter{TenantID: "t1", CustomerID: "cust-phone"},
			calls:  1,
		},
		{
			name:   "tenant wide fallback",
			intent: Intent{Kind: IntentHistory},
			rc:     ResolutionContext{TenantID: "t1"},
			want:   orders.Filter{TenantID: "t1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup.calls = 0
			got, err := resolver.Resolve(ctx, tt.intent, tt.rc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.calls, lookup.calls)
		})
	}
	assert.Equal(t, [2]string{"+2250700000001", "t1"}, lookup.lastArgs)
}

func TestResolver_UnknownPhoneMatchesNothing(t *testing.T) {
	resolver := NewResolver(&stubCustomerLookup{})
	got, err := resolver.Resolve(context.Background(), Intent{Kind: IntentHistory}, ResolutionContext{TenantID: "t1", CustomerPhone: "+000"})
	require.NoError(t, err)
	assert.True(t, got.MatchNone)
	assert.Equal(t, "t1", got.TenantID)
	assert.Empty(t, got.CustomerID)
}

func TestResolver_PhoneLookupErrorPropagates(t *testing.T) {
	boom := errors.New("db down")
	resolver := NewResolver(&stubCustomerLookup{err: boom})
	_, err := resolver.Resolve(context.Background(), Intent{Kind: IntentHistory}, ResolutionContext{TenantID: "t1", CustomerPhone: "+000"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestResolver_AlwaysCarriesTenant(t *testing.T) {
	resolver := NewResolver(&stubCustomerLookup{customer: &orders.Customer{ID: "c"}})
	contexts := []ResolutionContext{
		{TenantID: "tenant-x", OrderNumber: "1"},
		{TenantID: "tenant-x", CustomerID: "c"},
		{TenantID: "tenant-x", CustomerPhone: "+1"},
		{TenantID: "tenant-x"},
	}
	for _, rc := range contexts {
		got, err := resolver.Resolve(context.Background(), Intent{Kind: IntentOrderStatus}, rc)
		require.NoError(t, err)
		assert.Equal(t, "tenant-x", got.TenantID)
	}
}
