package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/pix-payments/internal/interfaces"
	"github.com/akylbek/payment-system/pix-payments/internal/telemetry"
)

const DefaultMaxAttempts = 8

// RetryWorker re-sends queued notifications until they succeed or run out of
// attempts.
type RetryWorker struct {
	queue       interfaces.NotificationQueue
	notifier    interfaces.Notifier
	pollTimeout time.Duration
	maxAttempts int
}

func NewRetryWorker(queue interfaces.NotificationQueue, notifier interfaces.Notifier, pollTimeout time.Duration) *RetryWorker {
	return &RetryWorker{
		queue:       queue,
		notifier:    notifier,
		pollTimeout: pollTimeout,
		maxAttempts: DefaultMaxAttempts,
	}
}

func (w *RetryWorker) Run(ctx context.Context) {
	telemetry.Logger.Info("Notification retry worker started")
	for ctx.Err() == nil {
		if _, err := w.ProcessOne(ctx); err != nil && ctx.Err() == nil {
			telemetry.Logger.Error("Notification retry failed", zap.Error(err))
			// back off so a broken queue does not spin
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

// ProcessOne handles at most one queued notification and reports whether one
// was taken off the queue.
func (w *RetryWorker) ProcessOne(ctx context.Context) (bool, error) {
	n, err := w.queue.Dequeue(ctx, w.pollTimeout)
	if err != nil || n == nil {
		return false, err
	}

	n.Attempt++
	if err := w.notifier.NotifyPaymentConfirmed(ctx, *n); err != nil {
		telemetry.NotificationFailures.Inc()
		if n.Attempt >= w.maxAttempts {
			telemetry.Logger.Error("Dropping notification after max attempts",
				zap.String("order_id", n.OrderID),
				zap.Int("attempt", n.Attempt),
				zap.Error(err),
			)
			return true, nil
		}
		telemetry.Logger.Warn("Notification retry failed, requeueing",
			zap.String("order_id", n.OrderID),
			zap.Int("attempt", n.Attempt),
			zap.Error(err),
		)
		return true, w.queue.Enqueue(ctx, *n)
	}

	telemetry.Logger.Info("Notification delivered on retry",
		zap.String("order_id", n.OrderID),
		zap.Int("attempt", n.Attempt),
	)
	return true, nil
}
