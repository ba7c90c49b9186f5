package chatbot

import (
	"strconv"
	"strings"
	"time"
)

// MoneyFormatter renders an amount in whole currency units.
type MoneyFormatter func(amount int64) string

// DateFormatter renders an order date.
type DateFormatter func(t time.Time) string

// NewCurrencyFormatter renders "<amount> <currency>" without digit grouping so
// the raw figure stays searchable in replies.
func NewCurrencyFormatter(currency string) MoneyFormatter {
	currency = strings.TrimSpace(currency)
	return func(amount int64) string {
		if currency == "" {
			return strconv.FormatInt(amount, 10)
		}
		return strconv.FormatInt(amount, 10) + " " + currency
	}
}

// NewDateFormatter renders dates with layout in loc.
func NewDateFormatter(layout string, loc *time.Location) DateFormatter {
	if layout == "" {
		layout = "02/01/2006"
	}
	if loc == nil {
		loc = time.UTC
	}
	return func(t time.Time) string {
		return t.In(loc).Format(layout)
	}
}
