package orders

import (
	"context"
	"sort"
	"sync"
)

type memoryOrder struct {
	tenantID string
	view     OrderView
}

type memoryCustomer struct {
	tenantID string
	customer Customer
}

// MemoryStore is an in-memory Store used by tests and local demos.
type MemoryStore struct {
	mu        sync.RWMutex
	orders    []memoryOrder
	customers []memoryCustomer
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// AddCustomer registers a customer for a tenant.
func (s *MemoryStore) AddCustomer(tenantID string, customer Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers = append(s.customers, memoryCustomer{tenantID: tenantID, customer: customer})
}

// AddOrder registers an order for a tenant.
func (s *MemoryStore) AddOrder(tenantID string, order OrderView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, memoryOrder{tenantID: tenantID, view: order})
}

// FindOrder returns the newest matching order.
func (s *MemoryStore) FindOrder(ctx context.Context, filter Filter) (*OrderView, error) {
	matches, err := s.FindOrders(ctx, filter, 1)
	if err != nil || len(matches) == 0 {
		return nil, err
	}
	return &matches[0], nil
}

// FindOrders returns up to limit matching orders, newest first.
func (s *MemoryStore) FindOrders(ctx context.Context, filter Filter, limit int) ([]OrderView, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if filter.MatchNone {
		return []OrderView{}, nil
	}

	out := s.matching(filter)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []OrderView{}
	}
	return out, nil
}

// SumOutstanding totals the remaining balance of every matching order.
func (s *MemoryStore) SumOutstanding(ctx context.Context, filter Filter) (Outstanding, error) {
	if err := filter.Validate(); err != nil {
		return Outstanding{}, err
	}
	if err := ctx.Err(); err != nil {
		return Outstanding{}, err
	}
	var total Outstanding
	if filter.MatchNone {
		return total, nil
	}
	for _, v := range s.matching(filter) {
		remaining := v.TotalAmount
		for _, p := range v.Payments {
			if p.Status == PaymentPaid {
				remaining -= p.Amount
			}
		}
		total.Orders++
		total.Remaining += remaining
	}
	return total, nil
}

func (s *MemoryStore) matching(filter Filter) []OrderView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []OrderView
	for _, o := range s.orders {
		if o.tenantID != filter.TenantID {
			continue
		}
		if filter.OrderNumber != "" && o.view.OrderNumber != filter.OrderNumber {
			continue
		}
		if filter.CustomerID != "" && o.view.Customer.ID != filter.CustomerID {
			continue
		}
		if !filter.matchesPaymentStatus(o.view.PaymentStatus) {
			continue
		}
		out = append(out, o.view)
	}
	return out
}

// FindCustomerByPhone does an exact phone match within the tenant.
func (s *MemoryStore) FindCustomerByPhone(ctx context.Context, phone, tenantID string) (*Customer, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.customers {
		if c.tenantID == tenantID && c.customer.Phone == phone {
			found := c.customer
			return &found, nil
		}
	}
	return nil, nil
}
