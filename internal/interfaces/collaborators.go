package interfaces

import (
	"context"
	"time"

	"github.com/akylbek/payment-system/pix-payments/internal/models"
)

// Inventory is the stock collaborator. Every call is keyed by order id and
// must be safe to repeat.
type Inventory interface {
	DecrementStock(ctx context.Context, orderID string, items []models.LineItem) error
	ReleaseStock(ctx context.Context, orderID string) error
}

// Orders is the order-management collaborator.
type Orders interface {
	LineItems(ctx context.Context, orderID string) ([]models.LineItem, error)
	MarkPaid(ctx context.Context, orderID string) error
}

// Notifier dispatches the customer confirmation message.
type Notifier interface {
	NotifyPaymentConfirmed(ctx context.Context, n models.PaymentConfirmedNotification) error
}

// NotificationQueue holds notifications whose dispatch failed.
type NotificationQueue interface {
	Enqueue(ctx context.Context, n models.PaymentConfirmedNotification) error
	// Dequeue blocks up to timeout. It returns nil, nil when nothing arrived.
	Dequeue(ctx context.Context, timeout time.Duration) (*models.PaymentConfirmedNotification, error)
}

// StatePublisher announces committed transitions.
type StatePublisher interface {
	PublishStateChange(ctx context.Context, event models.StateChangeEvent) error
}

// Locker is a distributed mutual-exclusion lock.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// OperatorAuthenticator resolves a credential to an operator identity.
type OperatorAuthenticator interface {
	Authenticate(ctx context.Context, token string) (string, bool)
}
