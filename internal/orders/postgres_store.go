package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// queryer is the subset of pgxpool.Pool used by PostgresStore.
type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const orderColumns = `
		SELECT o.id::text, o.order_number, o.status, o.payment_status, o.total_amount,
		       c.id::text, c.name, COALESCE(c.phone, ''), a.name, o.created_at
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		JOIN agencies a ON a.id = o.agency_id`

const itemsQuery = `
		SELECT oi.order_id::text, s.name, oi.quantity
		FROM order_items oi
		JOIN services s ON s.id = oi.service_id
		WHERE oi.order_id = ANY($1::uuid[])
		ORDER BY oi.created_at, s.name`

const paymentsQuery = `
		SELECT p.order_id::text, p.amount, p.status, COALESCE(p.method, '')
		FROM payments p
		WHERE p.order_id = ANY($1::uuid[])
		ORDER BY p.created_at`

const outstandingQuery = `
		SELECT COUNT(*), COALESCE(SUM(o.total_amount - COALESCE(p.paid, 0)), 0)::bigint
		FROM orders o
		LEFT JOIN (
			SELECT order_id, SUM(amount) AS paid
			FROM payments
			WHERE status = 'PAID'
			GROUP BY order_id
		) p ON p.order_id = o.id`

const customerByPhoneQuery = `
		SELECT id::text, name, COALESCE(phone, '')
		FROM customers
		WHERE tenant_id = $1 AND phone = $2
		ORDER BY created_at DESC
		LIMIT 1`

// PostgresStore reads order views from Postgres. Every query is tenant scoped.
type PostgresStore struct {
	db      queryer
	timeout time.Duration
	tracer  trace.Tracer
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool, timeout time.Duration) *PostgresStore {
	if pool == nil {
		panic("orders: pgx pool required")
	}
	return NewPostgresStoreWithDB(pool, timeout)
}

// NewPostgresStoreWithDB allows injecting a mock pool for tests.
func NewPostgresStoreWithDB(db queryer, timeout time.Duration) *PostgresStore {
	return &PostgresStore{
		db:      db,
		timeout: timeout,
		tracer:  otel.Tracer("orderdesk.internal.orders.postgres"),
	}
}

// FindOrder returns the newest matching order or nil.
func (s *PostgresStore) FindOrder(ctx context.Context, filter Filter) (*OrderView, error) {
	views, err := s.FindOrders(ctx, filter, 1)
	if err != nil || len(views) == 0 {
		return nil, err
	}
	return &views[0], nil
}

// FindOrders returns up to limit matching orders with items and payments loaded.
func (s *PostgresStore) FindOrders(ctx context.Context, filter Filter, limit int) ([]OrderView, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if filter.MatchNone {
		return []OrderView{}, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "orders.find_orders", trace.WithAttributes(
		attribute.String("tenant_id", filter.TenantID),
		attribute.Int("limit", limit),
	))
	defer span.End()

	where, args := buildOrderWhere(filter)
	args = append(args, limit)
	query := fmt.Sprintf("%s\n\t\tWHERE %s\n\t\tORDER BY o.created_at DESC\n\t\tLIMIT $%d", orderColumns, where, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("orders: select orders: %w", err)
	}
	views := []OrderView{}
	for rows.Next() {
		var (
			v             OrderView
			status        string
			paymentStatus string
		)
		if err := rows.Scan(
			&v.ID,
			&v.OrderNumber,
			&status,
			&paymentStatus,
			&v.TotalAmount,
			&v.Customer.ID,
			&v.Customer.Name,
			&v.Customer.Phone,
			&v.AgencyName,
			&v.CreatedAt,
		); err != nil {
			rows.Close()
			span.RecordError(err)
			return nil, fmt.Errorf("orders: scan order: %w", err)
		}
		v.Status = OrderStatus(status)
		v.PaymentStatus = PaymentStatus(paymentStatus)
		views = append(views, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("orders: iterate orders: %w", err)
	}
	if len(views) == 0 {
		return views, nil
	}

	if err := s.loadDetails(ctx, views); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("orders.count", len(views)))
	return views, nil
}

// SumOutstanding aggregates the remaining balance of every matching order in
// one query.
func (s *PostgresStore) SumOutstanding(ctx context.Context, filter Filter) (Outstanding, error) {
	if err := filter.Validate(); err != nil {
		return Outstanding{}, err
	}
	if filter.MatchNone {
		return Outstanding{}, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "orders.sum_outstanding", trace.WithAttributes(
		attribute.String("tenant_id", filter.TenantID),
	))
	defer span.End()

	where, args := buildOrderWhere(filter)
	query := fmt.Sprintf("%s\n\t\tWHERE %s", outstandingQuery, where)

	var (
		count int64
		total Outstanding
	)
	if err := s.db.QueryRow(ctx, query, args...).Scan(&count, &total.Remaining); err != nil {
		span.RecordError(err)
		return Outstanding{}, fmt.Errorf("orders: sum outstanding: %w", err)
	}
	total.Orders = int(count)
	span.SetAttributes(attribute.Int("orders.count", total.Orders))
	return total, nil
}

// FindCustomerByPhone performs an exact match on the stored phone value.
func (s *PostgresStore) FindCustomerByPhone(ctx context.Context, phone, tenantID string) (*Customer, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "orders.find_customer_by_phone", trace.WithAttributes(
		attribute.String("tenant_id", tenantID),
	))
	defer span.End()

	var c Customer
	err := s.db.QueryRow(ctx, customerByPhoneQuery, tenantID, phone).Scan(&c.ID, &c.Name, &c.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("orders: select customer by phone: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) loadDetails(ctx context.Context, views []OrderView) error {
	ids := make([]string, len(views))
	index := make(map[string]int, len(views))
	for i, v := range views {
		ids[i] = v.ID
		index[v.ID] = i
		views[i].Items = []ItemView{}
		views[i].Payments = []PaymentView{}
	}

	rows, err := s.db.Query(ctx, itemsQuery, ids)
	if err != nil {
		return fmt.Errorf("orders: select items: %w", err)
	}
	for rows.Next() {
		var (
			orderID string
			item    ItemView
		)
		if err := rows.Scan(&orderID, &item.ServiceName, &item.Quantity); err != nil {
			rows.Close()
			return fmt.Errorf("orders: scan item: %w", err)
		}
		if i, ok := index[orderID]; ok {
			views[i].Items = append(views[i].Items, item)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("orders: iterate items: %w", err)
	}

	rows, err = s.db.Query(ctx, paymentsQuery, ids)
	if err != nil {
		return fmt.Errorf("orders: select payments: %w", err)
	}
	for rows.Next() {
		var (
			orderID string
			status  string
			payment PaymentView
		)
		if err := rows.Scan(&orderID, &payment.Amount, &status, &payment.Method); err != nil {
			rows.Close()
			return fmt.Errorf("orders: scan payment: %w", err)
		}
		payment.Status = PaymentStatus(status)
		if i, ok := index[orderID]; ok {
			views[i].Payments = append(views[i].Payments, payment)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("orders: iterate payments: %w", err)
	}
	return nil
}

func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// buildOrderWhere renders the WHERE clause for filter. The tenant predicate is
// always first so it is bound to $1.
func buildOrderWhere(filter Filter) (string, []any) {
	clauses := []string{"o.tenant_id = $1"}
	args := []any{filter.TenantID}

	if filter.OrderNumber != "" {
		args = append(args, filter.OrderNumber)
		clauses = append(clauses, fmt.Sprintf("o.order_number = $%d", len(args)))
	}
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("o.customer_id = $%d", len(args)))
	}
	if len(filter.PaymentStatuses) > 0 {
		statuses := make([]string, len(filter.PaymentStatuses))
		for i, st := range filter.PaymentStatuses {
			statuses[i] = string(st)
		}
		args = append(args, statuses)
		clauses = append(clauses, fmt.Sprintf("o.payment_status = ANY($%d)", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}
