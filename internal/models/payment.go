package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentWindow is the fixed lifetime of a PIX payment request.
const PaymentWindow = 30 * time.Minute

type PaymentState string

const (
	StatePending   PaymentState = "PENDING"
	StateConfirmed PaymentState = "CONFIRMED"
	StateExpired   PaymentState = "EXPIRED"
	StateCancelled PaymentState = "CANCELLED"
)

// transitions lists every allowed move. Terminal states have no entry.
var transitions = map[PaymentState][]PaymentState{
	StatePending: {StateConfirmed, StateExpired, StateCancelled},
}

func (s PaymentState) Valid() bool {
	switch s {
	case StatePending, StateConfirmed, StateExpired, StateCancelled:
		return true
	}
	return false
}

func (s PaymentState) IsTerminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

func (s PaymentState) CanTransitionTo(to PaymentState) bool {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// PaymentRequest is the pending-payment record kept for an order paying by PIX.
// Records are never deleted.
type PaymentRequest struct {
	OrderID              string          `json:"order_id"`
	Amount               decimal.Decimal `json:"amount"`
	TransactionReference string          `json:"transaction_reference"`
	State                PaymentState    `json:"state"`
	CreatedAt            time.Time       `json:"created_at"`
	ExpiresAt            time.Time       `json:"expires_at"`
	ConfirmedAt          *time.Time      `json:"confirmed_at,omitempty"`
	ConfirmedBy          string          `json:"confirmed_by,omitempty"`
	CancelledAt          *time.Time      `json:"cancelled_at,omitempty"`
}

// NewPaymentRequest builds a Pending request. createdAt is normalised to UTC
// microseconds so it survives a round trip through PostgreSQL unchanged.
func NewPaymentRequest(orderID string, amount decimal.Decimal, reference string, createdAt time.Time) *PaymentRequest {
	createdAt = createdAt.UTC().Truncate(time.Microsecond)
	return &PaymentRequest{
		OrderID:              orderID,
		Amount:               amount,
		TransactionReference: reference,
		State:                StatePending,
		CreatedAt:            createdAt,
		ExpiresAt:            createdAt.Add(PaymentWindow),
	}
}

// CountdownExpired reports whether the customer-facing countdown has run out.
func (p *PaymentRequest) CountdownExpired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// ExpiryDue reports whether a Pending request should be formally expired,
// given the configured confirmation grace.
func (p *PaymentRequest) ExpiryDue(now time.Time, grace time.Duration) bool {
	return p.State == StatePending && !now.Before(p.ExpiresAt.Add(grace))
}

// FinalizedAt returns the moment a terminal request reached its state.
func (p *PaymentRequest) FinalizedAt() *time.Time {
	switch p.State {
	case StateConfirmed:
		return p.ConfirmedAt
	case StateCancelled:
		return p.CancelledAt
	case StateExpired:
		at := p.ExpiresAt
		return &at
	}
	return nil
}

// Clone returns a deep copy.
func (p *PaymentRequest) Clone() *PaymentRequest {
	c := *p
	if p.ConfirmedAt != nil {
		t := *p.ConfirmedAt
		c.ConfirmedAt = &t
	}
	if p.CancelledAt != nil {
		t := *p.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}
