package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/pix-payments/internal/interfaces"
	"github.com/akylbek/payment-system/pix-payments/internal/models"
	"github.com/akylbek/payment-system/pix-payments/internal/telemetry"
)

const (
	notifyTimeout     = 5 * time.Second
	compensateTimeout = 5 * time.Second
)

// Confirmer is the only path from Pending to Confirmed. The transition, the
// stock decrement and the order payment update commit together; the
// customer notification follows and never undoes a confirmation.
type Confirmer struct {
	lifecycle *Lifecycle
	orders    interfaces.Orders
	inventory interfaces.Inventory
	notifier  interfaces.Notifier
	retry     interfaces.NotificationQueue
}

func NewConfirmer(
	lifecycle *Lifecycle,
	orders interfaces.Orders,
	inventory interfaces.Inventory,
	notifier interfaces.Notifier,
	retry interfaces.NotificationQueue,
) *Confirmer {
	return &Confirmer{
		lifecycle: lifecycle,
		orders:    orders,
		inventory: inventory,
		notifier:  notifier,
		retry:     retry,
	}
}

// Confirm records the operator's confirmation of an order's PIX payment.
// A request that is not Pending yields a *StateConflictError.
func (c *Confirmer) Confirm(ctx context.Context, orderID, operator string) (*models.PaymentRequest, error) {
	orderID = strings.TrimSpace(orderID)
	ctx, span := telemetry.Tracer.Start(ctx, "pix.Confirm")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", orderID), attribute.String("operator", operator))

	if operator == "" {
		return nil, ErrOperatorRequired
	}

	l := c.lifecycle
	now := l.now()
	req, err := l.observe(ctx, orderID, now)
	if err != nil {
		c.rejected(orderID, err)
		return nil, err
	}
	if req.State.IsTerminal() {
		err := conflict(req)
		c.rejected(orderID, err)
		return nil, err
	}

	var p effectProgress
	rows, err := l.repo.ConfirmPending(ctx, orderID, operator, now, now.Add(-l.grace), c.effects(orderID, &p))
	if err != nil {
		c.compensate(ctx, orderID, &p, err)
		c.rejected(orderID, err)
		if errors.Is(err, ErrStockDecrement) || errors.Is(err, ErrOrderUpdate) {
			return nil, err
		}
		return nil, fmt.Errorf("confirm payment request: %w", err)
	}
	if rows == 0 {
		err := l.lostRace(ctx, orderID)
		c.rejected(orderID, err)
		return nil, err
	}

	req.State = models.StateConfirmed
	req.ConfirmedAt = &now
	req.ConfirmedBy = operator
	l.committed(ctx, orderID, models.StatePending, models.StateConfirmed, operator, now)

	c.notify(ctx, req)
	return req, nil
}

// effectProgress records which collaborator calls were issued, whatever
// their reply. A timed out call may still have been applied.
type effectProgress struct {
	stockRequested bool
	paidRequested  bool
}

// effects runs inside the confirmation transaction. Both collaborator calls
// are keyed by order id, so repeating them converges.
func (c *Confirmer) effects(orderID string, p *effectProgress) interfaces.EffectFunc {
	return func(ctx context.Context) error {
		items, err := c.orders.LineItems(ctx, orderID)
		if err != nil {
			return fmt.Errorf("%w: load line items: %w", ErrStockDecrement, err)
		}
		p.stockRequested = true
		if err := c.inventory.DecrementStock(ctx, orderID, items); err != nil {
			return fmt.Errorf("%w: %w", ErrStockDecrement, err)
		}
		p.paidRequested = true
		if err := c.orders.MarkPaid(ctx, orderID); err != nil {
			return fmt.Errorf("%w: %w", ErrOrderUpdate, err)
		}
		return nil
	}
}

// compensate undoes collaborator effects after the confirmation rolled back,
// whether an effect or the commit failed. Stock is released by order id; a
// paid flag cannot be revoked here and is logged for reconciliation.
func (c *Confirmer) compensate(ctx context.Context, orderID string, p *effectProgress, cause error) {
	if !p.stockRequested {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
	defer cancel()

	if err := c.inventory.ReleaseStock(ctx, orderID); err != nil {
		telemetry.Compensations.WithLabelValues("release_failed").Inc()
		telemetry.Logger.Error("Failed to release stock after rolled back confirmation",
			zap.String("order_id", orderID),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
	} else {
		telemetry.Compensations.WithLabelValues("stock_released").Inc()
	}

	if p.paidRequested {
		telemetry.Compensations.WithLabelValues("reconcile_paid").Inc()
		telemetry.Logger.Error("Order may be marked paid without a confirmed payment request",
			zap.String("order_id", orderID),
			zap.Error(cause),
		)
	}
}

func (c *Confirmer) notify(ctx context.Context, req *models.PaymentRequest) {
	if c.notifier == nil {
		return
	}
	n := models.PaymentConfirmedNotification{
		NotificationID: uuid.NewString(),
		OrderID:        req.OrderID,
		Amount:         req.Amount,
		Reference:      req.TransactionReference,
		ConfirmedAt:    *req.ConfirmedAt,
		Attempt:        1,
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	err := c.notifier.NotifyPaymentConfirmed(ctx, n)
	if err == nil {
		return
	}
	telemetry.NotificationFailures.Inc()
	telemetry.Logger.Warn("Payment confirmation notification failed",
		zap.String("order_id", req.OrderID),
		zap.Error(err),
	)
	if c.retry == nil {
		return
	}
	if err := c.retry.Enqueue(ctx, n); err != nil {
		telemetry.Logger.Error("Failed to queue notification retry",
			zap.String("order_id", req.OrderID),
			zap.Error(err),
		)
	}
}

func (c *Confirmer) rejected(orderID string, err error) {
	reason := "error"
	switch {
	case errors.Is(err, ErrNotFound):
		reason = "not_found"
	case errors.Is(err, ErrAlreadyConfirmed):
		reason = "already_confirmed"
	case errors.Is(err, ErrExpired):
		reason = "expired"
	case errors.Is(err, ErrCancelled):
		reason = "cancelled"
	case errors.Is(err, ErrStockDecrement):
		reason = "stock"
	case errors.Is(err, ErrOrderUpdate):
		reason = "order_update"
	}
	telemetry.ConfirmationsRejected.WithLabelValues(reason).Inc()
	telemetry.Logger.Info("Payment confirmation rejected",
		zap.String("order_id", orderID),
		zap.String("reason", reason),
		zap.Error(err),
	)
}
