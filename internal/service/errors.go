package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/akylbek/payment-system/pix-payments/internal/models"
)

var (
	ErrNotFound         = errors.New("payment link expired or invalid")
	ErrInvalidOrderID   = errors.New("order id is required")
	ErrInvalidAmount    = errors.New("amount must be positive with at most two decimal places")
	ErrAlreadyExists    = errors.New("a payment request already exists for this order")
	ErrAlreadyConfirmed = errors.New("payment already confirmed")
	ErrExpired          = errors.New("payment request expired")
	ErrCancelled        = errors.New("payment request cancelled")
	ErrStockDecrement   = errors.New("stock decrement failed")
	ErrOrderUpdate      = errors.New("order payment status update failed")
	ErrConcurrentUpdate = errors.New("payment request changed concurrently")
	ErrOperatorRequired = errors.New("authenticated operator is required")
)

// StateConflictError reports an operation attempted on a finalized request.
// errors.Is matches it against ErrAlreadyConfirmed, ErrExpired or
// ErrCancelled according to State.
type StateConflictError struct {
	OrderID string
	State   models.PaymentState
	At      *time.Time
}

func (e *StateConflictError) Error() string {
	if e.At != nil {
		return fmt.Sprintf("payment request %s is %s since %s", e.OrderID, e.State, e.At.Format(time.RFC3339))
	}
	return fmt.Sprintf("payment request %s is %s", e.OrderID, e.State)
}

func (e *StateConflictError) Is(target error) bool {
	return target == sentinelFor(e.State)
}

func sentinelFor(state models.PaymentState) error {
	switch state {
	case models.StateConfirmed:
		return ErrAlreadyConfirmed
	case models.StateExpired:
		return ErrExpired
	case models.StateCancelled:
		return ErrCancelled
	}
	return ErrConcurrentUpdate
}

func conflict(req *models.PaymentRequest) error {
	return &StateConflictError{OrderID: req.OrderID, State: req.State, At: req.FinalizedAt()}
}
