// Package notify dispatches payment confirmation notifications and retries
// the ones that fail.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/akylbek/payment-system/pix-payments/internal/models"
)

const SubjectPaymentConfirmed = "notifications.pix.payment_confirmed"

// Publisher is the subset of *nats.Conn used for fire-and-forget publishing.
type Publisher interface {
	Publish(subj string, data []byte) error
}

type NATSNotifier struct {
	nc Publisher
}

func NewNATSNotifier(nc Publisher) *NATSNotifier {
	return &NATSNotifier{nc: nc}
}

func (n *NATSNotifier) NotifyPaymentConfirmed(ctx context.Context, msg models.PaymentConfirmedNotification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := n.nc.Publish(SubjectPaymentConfirmed, data); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
