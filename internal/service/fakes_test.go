package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/akylbek/payment-system/pix-payments/internal/interfaces"
	"github.com/akylbek/payment-system/pix-payments/internal/models"
	"github.com/akylbek/payment-system/pix-payments/internal/repository"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type fakeOrders struct {
	mu          sync.Mutex
	items       []models.LineItem
	paid        map[string]int
	lineItemErr error
	markPaidErr error
}

func (o *fakeOrders) LineItems(_ context.Context, _ string) ([]models.LineItem, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.items, o.lineItemErr
}

func (o *fakeOrders) MarkPaid(_ context.Context, orderID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.markPaidErr != nil {
		return o.markPaidErr
	}
	if o.paid == nil {
		o.paid = make(map[string]int)
	}
	o.paid[orderID]++
	return nil
}

// fakeInventory keys decrements by order id like the real collaborator.
type fakeInventory struct {
	mu       sync.Mutex
	calls    int
	applied  map[string][]models.LineItem
	stock    map[string]int
	releases int
	err      error
}

func newFakeInventory(stock map[string]int) *fakeInventory {
	return &fakeInventory{applied: make(map[string][]models.LineItem), stock: stock}
}

func (i *fakeInventory) DecrementStock(_ context.Context, orderID string, items []models.LineItem) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls++
	if i.err != nil {
		return i.err
	}
	if _, ok := i.applied[orderID]; ok {
		return nil
	}
	for _, it := range items {
		i.stock[it.ProductID] -= it.Quantity
	}
	i.applied[orderID] = items
	return nil
}

func (i *fakeInventory) ReleaseStock(_ context.Context, orderID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.releases++
	for _, it := range i.applied[orderID] {
		i.stock[it.ProductID] += it.Quantity
	}
	delete(i.applied, orderID)
	return nil
}

func (i *fakeInventory) Stock(productID string) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.stock[productID]
}

func (o *fakeOrders) PaidCount(orderID string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.paid[orderID]
}

// commitFailingRepo applies the effects and then fails as a lost commit
// would, leaving the stored request untouched.
type commitFailingRepo struct {
	*repository.MemoryRepository
}

func (r commitFailingRepo) ConfirmPending(ctx context.Context, _, _ string, _, _ time.Time, effects interfaces.EffectFunc) (int64, error) {
	if err := effects(ctx); err != nil {
		return 0, err
	}
	return 0, errors.New("commit confirmation: connection reset")
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []models.PaymentConfirmedNotification
	err  error
}

func (n *fakeNotifier) NotifyPaymentConfirmed(_ context.Context, msg models.PaymentConfirmedNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *fakeNotifier) Sent() []models.PaymentConfirmedNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.PaymentConfirmedNotification(nil), n.sent...)
}

type fakeQueue struct {
	mu     sync.Mutex
	queued []models.PaymentConfirmedNotification
}

func (q *fakeQueue) Enqueue(_ context.Context, n models.PaymentConfirmedNotification) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queued = append(q.queued, n)
	return nil
}

func (q *fakeQueue) Dequeue(_ context.Context, _ time.Duration) (*models.PaymentConfirmedNotification, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.queued) == 0 {
		return nil, nil
	}
	n := q.queued[0]
	q.queued = q.queued[1:]
	return &n, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.StateChangeEvent
}

func (p *fakePublisher) PublishStateChange(_ context.Context, e models.StateChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) States() []models.PaymentState {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.PaymentState, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.State)
	}
	return out
}

type fakeLocker struct {
	mu     sync.Mutex
	held   bool
	unlock int
}

func (l *fakeLocker) TryLock(_ context.Context, _ string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *fakeLocker) Unlock(_ context.Context, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.unlock++
	return nil
}
