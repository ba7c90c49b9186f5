package chatbot

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/orderdesk/internal/observability/metrics"
	"github.com/wolfman30/orderdesk/internal/orders"
	"github.com/wolfman30/orderdesk/pkg/logging"
)

// HistoryLimit caps the number of orders listed by a history reply.
const HistoryLimit = 5

const defaultPaymentScanLimit = 50

// Result is the answer returned for every handled message.
type Result struct {
	ResponseText string     `json:"responseText"`
	IntentType   ResultType `json:"intentType"`
	Suggestions  []string   `json:"suggestions"`
	Payload      any        `json:"payload,omitempty"`

	// Intent is the classifier output, kept for audit and metrics.
	Intent IntentKind `json:"-"`
}

// EngineConfig wires the engine's collaborators.
type EngineConfig struct {
	Store    orders.Store
	Composer *Composer
	Logger   *logging.Logger
	Metrics  *metrics.ChatbotMetrics
	// PaymentScanLimit bounds how many unpaid orders a payment reply lists. The
	// total due always covers every unpaid order.
	PaymentScanLimit int
}

// Engine answers free-text order questions. It holds no per-request state and
// is safe for concurrent use.
type Engine struct {
	store            orders.Store
	resolver         *Resolver
	composer         *Composer
	logger           *logging.Logger
	metrics          *metrics.ChatbotMetrics
	tracer           trace.Tracer
	paymentScanLimit int
}

// NewEngine creates an engine.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Store == nil {
		panic("chatbot: order store required")
	}
	if cfg.Composer == nil {
		cfg.Composer = NewComposer(nil, nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.PaymentScanLimit <= 0 {
		cfg.PaymentScanLimit = defaultPaymentScanLimit
	}
	return &Engine{
		store:            cfg.Store,
		resolver:         NewResolver(cfg.Store),
		composer:         cfg.Composer,
		logger:           cfg.Logger,
		metrics:          cfg.Metrics,
		tracer:           otel.Tracer("orderdesk.internal.chatbot"),
		paymentScanLimit: cfg.PaymentScanLimit,
	}
}

// Handle classifies message, resolves the referenced records and composes the
// answer. Not-found and unrecognized messages produce a Result of type
// "error"; only a blank message or a failed read returns an error.
func (e *Engine) Handle(ctx context.Context, message string, rc ResolutionContext) (*Result, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	start := time.Now()
	intent := Classify(message)

	ctx, span := e.tracer.Start(ctx, "chatbot.handle", trace.WithAttributes(
		attribute.String("tenant_id", rc.TenantID),
		attribute.String("intent", string(intent.Kind)),
	))
	defer span.End()

	reply, err := e.dispatch(ctx, intent, rc)
	if err != nil {
		span.RecordError(err)
		e.metrics.ObserveRequest(string(intent.Kind), metrics.OutcomeFailed, time.Since(start).Seconds())
		return nil, err
	}

	result := newResult(intent.Kind, reply)
	e.metrics.ObserveRequest(string(intent.Kind), outcomeOf(intent.Kind, result.IntentType), time.Since(start).Seconds())
	e.logger.Debug("chatbot message handled",
		"tenant_id", rc.TenantID,
		"agency_id", rc.AgencyID,
		"intent", intent.Kind,
		"result_type", result.IntentType,
	)
	return result, nil
}

func (e *Engine) dispatch(ctx context.Context, intent Intent, rc ResolutionContext) (Reply, error) {
	switch intent.Kind {
	case IntentOrderStatus:
		return e.handleOrderStatus(ctx, intent, rc)
	case IntentPaymentInfo:
		return e.handlePaymentInfo(ctx, intent, rc)
	case IntentDeliveryInfo:
		return e.handleDeliveryInfo(ctx, intent, rc)
	case IntentHistory:
		return e.handleHistory(ctx, intent, rc)
	case IntentGreeting:
		return e.composer.Greeting(), nil
	case IntentUnknown:
		return e.composer.Unknown(), nil
	default:
		return Reply{}, fmt.Errorf("chatbot: unhandled intent %q", intent.Kind)
	}
}

func (e *Engine) handleOrderStatus(ctx context.Context, intent Intent, rc ResolutionContext) (Reply, error) {
	order, filter, err := e.findOne(ctx, intent, rc)
	if err != nil {
		return Reply{}, err
	}
	if order == nil {
		return e.composer.OrderNotFound(filter.OrderNumber), nil
	}
	return e.composer.OrderStatus(*order), nil
}

func (e *Engine) handleDeliveryInfo(ctx context.Context, intent Intent, rc ResolutionContext) (Reply, error) {
	order, filter, err := e.findOne(ctx, intent, rc)
	if err != nil {
		return Reply{}, err
	}
	if order == nil {
		return e.composer.DeliveryNotFound(filter.OrderNumber), nil
	}
	return e.composer.Delivery(*order), nil
}

func (e *Engine) handlePaymentInfo(ctx context.Context, intent Intent, rc ResolutionContext) (Reply, error) {
	filter, err := e.resolve(ctx, intent, rc)
	if err != nil {
		return Reply{}, err
	}
	filter.PaymentStatuses = slices.Clone(outstandingStatuses)

	list, err := e.store.FindOrders(ctx, filter, e.paymentScanLimit)
	if err != nil {
		e.metrics.ObserveStoreError("find_orders")
		return Reply{}, fmt.Errorf("chatbot: find unpaid orders: %w", err)
	}
	summary := AggregateMany(list)
	if len(list) >= e.paymentScanLimit {
		total, err := e.store.SumOutstanding(ctx, filter)
		if err != nil {
			e.metrics.ObserveStoreError("sum_outstanding")
			return Reply{}, fmt.Errorf("chatbot: sum unpaid orders: %w", err)
		}
		summary.TotalDue = total.Remaining
		summary.OrderCount = total.Orders
	}
	return e.composer.PaymentDue(summary, filter.OrderNumber), nil
}

func (e *Engine) handleHistory(ctx context.Context, intent Intent, rc ResolutionContext) (Reply, error) {
	filter, err := e.resolve(ctx, intent, rc)
	if err != nil {
		return Reply{}, err
	}
	list, err := e.store.FindOrders(ctx, filter, HistoryLimit)
	if err != nil {
		e.metrics.ObserveStoreError("find_orders")
		return Reply{}, fmt.Errorf("chatbot: find order history: %w", err)
	}
	return e.composer.History(newestFirst(list, HistoryLimit)), nil
}

func (e *Engine) findOne(ctx context.Context, intent Intent, rc ResolutionContext) (*orders.OrderView, orders.Filter, error) {
	filter, err := e.resolve(ctx, intent, rc)
	if err != nil {
		return nil, filter, err
	}
	order, err := e.store.FindOrder(ctx, filter)
	if err != nil {
		e.metrics.ObserveStoreError("find_order")
		return nil, filter, fmt.Errorf("chatbot: find order: %w", err)
	}
	return order, filter, nil
}

func (e *Engine) resolve(ctx context.Context, intent Intent, rc ResolutionContext) (orders.Filter, error) {
	filter, err := e.resolver.Resolve(ctx, intent, rc)
	if err != nil {
		e.metrics.ObserveStoreError("find_customer_by_phone")
		return filter, err
	}
	return filter, nil
}

// newestFirst returns at most limit orders sorted by creation date, newest
// first, without mutating list.
func newestFirst(list []orders.OrderView, limit int) []orders.OrderView {
	out := slices.Clone(list)
	slices.SortStableFunc(out, func(a, b orders.OrderView) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func newResult(kind IntentKind, reply Reply) *Result {
	suggestions := reply.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return &Result{
		ResponseText: reply.Text,
		IntentType:   reply.Type,
		Suggestions:  suggestions,
		Payload:      reply.Payload,
		Intent:       kind,
	}
}

func outcomeOf(kind IntentKind, resultType ResultType) string {
	switch {
	case kind == IntentUnknown:
		return metrics.OutcomeUnrecognized
	case resultType == TypeError:
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeAnswered
	}
}
