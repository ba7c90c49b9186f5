package orders

import "errors"

var (
	// ErrTenantRequired is returned when a query is issued without a tenant.
	ErrTenantRequired = errors.New("orders: tenant id is required")

	// ErrInvalidLimit is returned when a list query asks for zero or fewer rows.
	ErrInvalidLimit = errors.New("orders: limit must be positive")
)
