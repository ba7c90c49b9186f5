package chatbot

import (
	"time"

	"github.com/wolfman30/orderdesk/internal/orders"
)

// FinancialSummary holds the paid and remaining amounts of one order.
// RemainingAmount is not clamped; an overpaid order yields a negative value.
type FinancialSummary struct {
	PaidAmount      int64 `json:"paidAmount"`
	RemainingAmount int64 `json:"remainingAmount"`
}

// OrderBalance is one entry of a DueSummary breakdown.
type OrderBalance struct {
	OrderNumber     string    `json:"orderNumber"`
	CreatedAt       time.Time `json:"createdAt"`
	TotalAmount     int64     `json:"totalAmount"`
	PaidAmount      int64     `json:"paidAmount"`
	RemainingAmount int64     `json:"remainingAmount"`
}

// DueSummary aggregates the outstanding balance across several orders.
// Breakdown may list fewer entries than OrderCount when it was capped.
type DueSummary struct {
	TotalDue   int64          `json:"totalDue"`
	OrderCount int            `json:"orderCount"`
	Breakdown  []OrderBalance `json:"breakdown"`
}

// AggregateSingle sums the payments marked PAID. Partial and pending payments
// never count.
func AggregateSingle(order orders.OrderView) FinancialSummary {
	var paid int64
	for _, p := range order.Payments {
		if p.Status == orders.PaymentPaid {
			paid += p.Amount
		}
	}
	return FinancialSummary{
		PaidAmount:      paid,
		RemainingAmount: order.TotalAmount - paid,
	}
}

// AggregateMany keeps orders whose payment status is PENDING or PARTIAL and
// totals their remaining amounts, preserving input order.
func AggregateMany(list []orders.OrderView) DueSummary {
	summary := DueSummary{Breakdown: []OrderBalance{}}
	for _, order := range list {
		if !isOutstanding(order.PaymentStatus) {
			continue
		}
		fin := AggregateSingle(order)
		summary.TotalDue += fin.RemainingAmount
		summary.Breakdown = append(summary.Breakdown, OrderBalance{
			OrderNumber:     order.OrderNumber,
			CreatedAt:       order.CreatedAt,
			TotalAmount:     order.TotalAmount,
			PaidAmount:      fin.PaidAmount,
			RemainingAmount: fin.RemainingAmount,
		})
	}
	summary.OrderCount = len(summary.Breakdown)
	return summary
}

var outstandingStatuses = []orders.PaymentStatus{orders.PaymentPending, orders.PaymentPartial}

func isOutstanding(status orders.PaymentStatus) bool {
	for _, s := range outstandingStatuses {
		if s == status {
			return true
		}
	}
	return false
}
