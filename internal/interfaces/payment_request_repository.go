package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/akylbek/payment-system/pix-payments/internal/models"
)

// ErrNotFound is returned by repositories when no record exists for an order.
var ErrNotFound = errors.New("payment request not found")

// EffectFunc applies the side effects bound to a confirmation. It runs while
// the Pending->Confirmed transition is held open; returning an error discards
// the transition.
type EffectFunc func(ctx context.Context) error

// PaymentRequestRepository defines the contract for payment request data access.
// All transitions are compare-and-set on the current state and report the
// number of records they changed.
type PaymentRequestRepository interface {
	// Insert stores a new record. It reports false, without error, when a
	// record for the order already exists.
	Insert(ctx context.Context, req *models.PaymentRequest) (bool, error)
	GetByOrderID(ctx context.Context, orderID string) (*models.PaymentRequest, error)
	// TransitionState moves a record from one state to another. Moving to
	// CONFIRMED is not allowed here; use ConfirmPending.
	TransitionState(ctx context.Context, orderID string, from, to models.PaymentState, at time.Time) (int64, error)
	// ConfirmPending moves a PENDING record whose expires_at is after
	// notBefore to CONFIRMED and runs effects atomically with it.
	ConfirmPending(ctx context.Context, orderID, operator string, at, notBefore time.Time, effects EffectFunc) (int64, error)
	// ListExpirable returns order ids of PENDING records whose expires_at is
	// at or before cutoff, oldest first. A limit of zero or less means no limit.
	ListExpirable(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}
