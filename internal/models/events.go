package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StateChangeEvent is published for every committed transition.
type StateChangeEvent struct {
	EventID       string       `json:"event_id"`
	OrderID       string       `json:"order_id"`
	State         PaymentState `json:"state"`
	PreviousState PaymentState `json:"previous_state"`
	Operator      string       `json:"operator,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
}

// LineItem is one product line of an order, as reported by the order system.
type LineItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// StockDecrementRequest is sent to the inventory service. OrderID doubles as
// the idempotency key.
type StockDecrementRequest struct {
	IdempotencyKey string     `json:"idempotency_key"`
	OrderID        string     `json:"order_id"`
	Items          []LineItem `json:"items"`
}

// CollaboratorReply is the request/reply envelope used by the inventory and
// order services.
type CollaboratorReply struct {
	OK    bool       `json:"ok"`
	Error string     `json:"error,omitempty"`
	Items []LineItem `json:"items,omitempty"`
}

// PaymentConfirmedNotification asks the notification service to email the
// customer.
type PaymentConfirmedNotification struct {
	NotificationID string          `json:"notification_id"`
	OrderID        string          `json:"order_id"`
	Amount         decimal.Decimal `json:"amount"`
	Reference      string          `json:"transaction_reference"`
	ConfirmedAt    time.Time       `json:"confirmed_at"`
	Attempt        int             `json:"attempt"`
}
