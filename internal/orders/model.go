package orders

import "time"

// OrderStatus is the processing state of an order. Values outside the known
// constants are kept verbatim.
type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusInProgress OrderStatus = "IN_PROGRESS"
	StatusReady      OrderStatus = "READY"
	StatusDelivered  OrderStatus = "DELIVERED"
)

// PaymentStatus applies both to a single payment and to an order as a whole.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "PAID"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentPending PaymentStatus = "PENDING"
)

// Customer is the read-only projection of a customer record.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// ItemView is one service line of an order.
type ItemView struct {
	ServiceName string `json:"serviceName"`
	Quantity    int    `json:"quantity"`
}

// PaymentView is one payment recorded against an order.
type PaymentView struct {
	Amount int64         `json:"amount"`
	Status PaymentStatus `json:"status"`
	Method string        `json:"method"`
}

// OrderView is an order with its customer, agency, items and payments.
// Amounts are whole currency units.
type OrderView struct {
	ID            string        `json:"id"`
	OrderNumber   string        `json:"orderNumber"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	TotalAmount   int64         `json:"totalAmount"`
	Customer      Customer      `json:"customer"`
	AgencyName    string        `json:"agencyName"`
	CreatedAt     time.Time     `json:"createdAt"`
	Items         []ItemView    `json:"items"`
	Payments      []PaymentView `json:"payments"`
}
