package orders

import "context"

// Filter selects orders within one tenant. The zero value of every optional
// field means "no restriction".
type Filter struct {
	TenantID        string
	OrderNumber     string
	CustomerID      string
	PaymentStatuses []PaymentStatus

	// MatchNone makes the filter select nothing, e.g. after an unknown phone
	// number was resolved.
	MatchNone bool
}

// Validate checks the invariants every store relies on.
func (f Filter) Validate() error {
	if f.TenantID == "" {
		return ErrTenantRequired
	}
	return nil
}

// Store is the read-only, tenant-scoped data access used by the chatbot.
// Results are always newest first.
type Store interface {
	// FindOrder returns the most recent matching order, or nil when none match.
	FindOrder(ctx context.Context, filter Filter) (*OrderView, error)
	// FindOrders returns up to limit matching orders.
	FindOrders(ctx context.Context, filter Filter, limit int) ([]OrderView, error)
	// FindCustomerByPhone performs an exact phone lookup, returning nil when unknown.
	FindCustomerByPhone(ctx context.Context, phone, tenantID string) (*Customer, error)
	// SumOutstanding totals every matching order, with no row limit.
	SumOutstanding(ctx context.Context, filter Filter) (Outstanding, error)
}

// Outstanding is the unpaid balance of a set of orders. Remaining is the sum
// of total amounts minus PAID payments and is not clamped.
type Outstanding struct {
	Orders    int   `json:"orders"`
	Remaining int64 `json:"remaining"`
}

func (f Filter) matchesPaymentStatus(status PaymentStatus) bool {
	if len(f.PaymentStatuses) == 0 {
		return true
	}
	for _, s := range f.PaymentStatuses {
		if s == status {
			return true
		}
	}
	return false
}
