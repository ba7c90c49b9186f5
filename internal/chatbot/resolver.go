package chatbot

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/orderdesk/internal/orders"
)

// ResolutionContext carries the caller's tenant scope and the optional explicit
// references sent alongside the message. It is built per request.
type ResolutionContext struct {
	TenantID      string
	AgencyID      string
	Role          string
	CustomerID    string
	CustomerPhone string
	OrderNumber   string
}

// customerLookup is the slice of orders.Store the resolver needs.
type customerLookup interface {
	FindCustomerByPhone(ctx context.Context, phone, tenantID string) (*orders.Customer, error)
}

// Resolver turns an intent and the caller's references into an order filter.
type Resolver struct {
	customers customerLookup
}

// NewResolver creates a resolver that resolves phone numbers through customers.
func NewResolver(customers customerLookup) *Resolver {
	return &Resolver{customers: customers}
}

// Resolve applies the precedence chain: order number (extracted, then
// explicit), customer id, customer phone, then tenant-wide.
func (r *Resolver) Resolve(ctx context.Context, intent Intent, rc ResolutionContext) (orders.Filter, error) {
	filter := orders.Filter{TenantID: rc.TenantID}

	if number := firstNonEmpty(intent.OrderNumber, rc.OrderNumber); number != "" {
		filter.OrderNumber = number
		return filter, nil
	}
	if id := strings.TrimSpace(rc.CustomerID); id != "" {
		filter.CustomerID = id
		return filter, nil
	}
	if phone := strings.TrimSpace(rc.CustomerPhone); phone != "" {
		customer, err := r.customers.FindCustomerByPhone(ctx, phone, rc.TenantID)
		if err != nil {
			return orders.Filter{}, fmt.Errorf("chatbot: resolve customer phone: %w", err)
		}
		if customer == nil {
			filter.MatchNone = true
			return filter, nil
		}
		filter.CustomerID = customer.ID
		return filter, nil
	}
	return filter, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
