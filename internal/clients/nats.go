// Package clients talks to the order and inventory services over NATS
// request/reply.
package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/akylbek/payment-system/pix-payments/internal/models"
)

const (
	SubjectStockDecrement = "inventory.stock.decrement"
	SubjectStockRelease   = "inventory.stock.release"
	SubjectOrderLineItems = "orders.line_items.get"
	SubjectOrderMarkPaid  = "orders.payment.mark_paid"

	defaultRequestTimeout = 5 * time.Second
)

// Requester is the subset of *nats.Conn used here.
type Requester interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

type bus struct {
	nc      Requester
	timeout time.Duration
}

func (b bus) call(ctx context.Context, subject string, payload any) (*models.CollaboratorReply, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	msg, err := b.nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", subject, err)
	}

	var reply models.CollaboratorReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return nil, fmt.Errorf("%s reply: %w", subject, err)
	}
	if !reply.OK {
		if reply.Error == "" {
			reply.Error = "rejected"
		}
		return nil, fmt.Errorf("%s: %w", subject, errors.New(reply.Error))
	}
	return &reply, nil
}

type orderRequest struct {
	OrderID string `json:"order_id"`
}

type InventoryClient struct {
	bus bus
}

func NewInventoryClient(nc Requester) *InventoryClient {
	return &InventoryClient{bus: bus{nc: nc, timeout: defaultRequestTimeout}}
}

// DecrementStock sends the order id as idempotency key; the inventory service
// applies each key once.
func (c *InventoryClient) DecrementStock(ctx context.Context, orderID string, items []models.LineItem) error {
	_, err := c.bus.call(ctx, SubjectStockDecrement, models.StockDecrementRequest{
		IdempotencyKey: orderID,
		OrderID:        orderID,
		Items:          items,
	})
	return err
}

func (c *InventoryClient) ReleaseStock(ctx context.Context, orderID string) error {
	_, err := c.bus.call(ctx, SubjectStockRelease, models.StockDecrementRequest{
		IdempotencyKey: orderID,
		OrderID:        orderID,
	})
	return err
}

type OrdersClient struct {
	bus bus
}

func NewOrdersClient(nc Requester) *OrdersClient {
	return &OrdersClient{bus: bus{nc: nc, timeout: defaultRequestTimeout}}
}

func (c *OrdersClient) LineItems(ctx context.Context, orderID string) ([]models.LineItem, error) {
	reply, err := c.bus.call(ctx, SubjectOrderLineItems, orderRequest{OrderID: orderID})
	if err != nil {
		return nil, err
	}
	return reply.Items, nil
}

func (c *OrdersClient) MarkPaid(ctx context.Context, orderID string) error {
	_, err := c.bus.call(ctx, SubjectOrderMarkPaid, orderRequest{OrderID: orderID})
	return err
}
