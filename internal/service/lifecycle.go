package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/pix-payments/internal/brcode"
	"github.com/akylbek/payment-system/pix-payments/internal/interfaces"
	"github.com/akylbek/payment-system/pix-payments/internal/models"
	"github.com/akylbek/payment-system/pix-payments/internal/telemetry"
)

const maxOrderIDLen = 255

type Options struct {
	ReferencePrefix string
	// ConfirmGrace extends how long past expires_at a Pending request stays
	// confirmable. Expiry is formalised at expires_at + ConfirmGrace.
	ConfirmGrace time.Duration
	Clock        func() time.Time
}

// Lifecycle governs creation, observation, expiry and cancellation of
// payment requests. Expiry is evaluated lazily whenever a request is read.
type Lifecycle struct {
	repo      interfaces.PaymentRequestRepository
	encoder   *brcode.Encoder
	publisher interfaces.StatePublisher
	prefix    string
	grace     time.Duration
	clock     func() time.Time
}

func NewLifecycle(repo interfaces.PaymentRequestRepository, encoder *brcode.Encoder, publisher interfaces.StatePublisher, opts Options) *Lifecycle {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Lifecycle{
		repo:      repo,
		encoder:   encoder,
		publisher: publisher,
		prefix:    opts.ReferencePrefix,
		grace:     opts.ConfirmGrace,
		clock:     clock,
	}
}

// PaymentView is what the checkout flow and payment page display.
type PaymentView struct {
	Request          *models.PaymentRequest
	Payload          string
	CountdownExpired bool
	Remaining        time.Duration
}

func (l *Lifecycle) now() time.Time {
	return l.clock().UTC().Truncate(time.Microsecond)
}

// Create opens a Pending request for an order. Repeating the call with the
// same amount while the request is still Pending returns the same request.
func (l *Lifecycle) Create(ctx context.Context, orderID string, amount decimal.Decimal) (*PaymentView, error) {
	orderID = strings.TrimSpace(orderID)
	ctx, span := telemetry.Tracer.Start(ctx, "pix.Create")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", orderID))

	if orderID == "" || len(orderID) > maxOrderIDLen {
		return nil, ErrInvalidOrderID
	}
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return nil, ErrInvalidAmount
	}

	now := l.now()
	req := models.NewPaymentRequest(orderID, amount, TransactionReference(l.prefix, orderID), now)
	payload, err := l.encoder.Encode(req.Amount, req.TransactionReference)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}

	inserted, err := l.repo.Insert(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("insert payment request: %w", err)
	}
	if !inserted {
		existing, err := l.observe(ctx, orderID, now)
		if err != nil {
			return nil, err
		}
		if existing.State != models.StatePending || !existing.Amount.Equal(amount) {
			return nil, ErrAlreadyExists
		}
		telemetry.Logger.Info("Reusing pending payment request", zap.String("order_id", orderID))
		return l.view(existing, now)
	}

	telemetry.PaymentRequestsCreated.Inc()
	telemetry.Logger.Info("Payment request created",
		zap.String("order_id", orderID),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("transaction_reference", req.TransactionReference),
		zap.Time("expires_at", req.ExpiresAt),
	)
	l.publish(ctx, orderID, "", models.StatePending, "", now)

	return &PaymentView{
		Request:   req,
		Payload:   payload,
		Remaining: req.ExpiresAt.Sub(now),
	}, nil
}

// Get returns the current view of a request, expiring it first if due.
func (l *Lifecycle) Get(ctx context.Context, orderID string) (*PaymentView, error) {
	orderID = strings.TrimSpace(orderID)
	ctx, span := telemetry.Tracer.Start(ctx, "pix.Get")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", orderID))

	now := l.now()
	req, err := l.observe(ctx, orderID, now)
	if err != nil {
		return nil, err
	}
	return l.view(req, now)
}

// Cancel moves a Pending request to Cancelled. The record is kept.
func (l *Lifecycle) Cancel(ctx context.Context, orderID string) (*models.PaymentRequest, error) {
	orderID = strings.TrimSpace(orderID)
	ctx, span := telemetry.Tracer.Start(ctx, "pix.Cancel")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", orderID))

	now := l.now()
	req, err := l.observe(ctx, orderID, now)
	if err != nil {
		return nil, err
	}
	if req.State.IsTerminal() {
		return nil, conflict(req)
	}

	rows, err := l.repo.TransitionState(ctx, orderID, models.StatePending, models.StateCancelled, now)
	if err != nil {
		return nil, fmt.Errorf("cancel payment request: %w", err)
	}
	if rows == 0 {
		return nil, l.lostRace(ctx, orderID)
	}

	req.State = models.StateCancelled
	req.CancelledAt = &now
	l.committed(ctx, orderID, models.StatePending, models.StateCancelled, "", now)
	return req, nil
}

// ExpireDue expires up to limit Pending requests whose grace has elapsed and
// reports how many it transitioned.
func (l *Lifecycle) ExpireDue(ctx context.Context, limit int) (int, error) {
	now := l.now()
	ids, err := l.repo.ListExpirable(ctx, now.Add(-l.grace), limit)
	if err != nil {
		return 0, fmt.Errorf("list expirable: %w", err)
	}

	expired := 0
	for _, id := range ids {
		rows, err := l.repo.TransitionState(ctx, id, models.StatePending, models.StateExpired, now)
		if err != nil {
			return expired, fmt.Errorf("expire %s: %w", id, err)
		}
		if rows == 1 {
			expired++
			l.committed(ctx, id, models.StatePending, models.StateExpired, "", now)
		}
	}
	return expired, nil
}

// observe loads a request and applies lazy expiry.
func (l *Lifecycle) observe(ctx context.Context, orderID string, now time.Time) (*models.PaymentRequest, error) {
	req, err := l.repo.GetByOrderID(ctx, orderID)
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load payment request: %w", err)
	}
	if !req.ExpiryDue(now, l.grace) {
		return req, nil
	}

	rows, err := l.repo.TransitionState(ctx, orderID, models.StatePending, models.StateExpired, now)
	if err != nil {
		return nil, fmt.Errorf("expire payment request: %w", err)
	}
	if rows == 0 {
		// Someone else finalized it first; their outcome stands.
		return l.reload(ctx, orderID)
	}
	req.State = models.StateExpired
	l.committed(ctx, orderID, models.StatePending, models.StateExpired, "", now)
	return req, nil
}

func (l *Lifecycle) reload(ctx context.Context, orderID string) (*models.PaymentRequest, error) {
	req, err := l.repo.GetByOrderID(ctx, orderID)
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reload payment request: %w", err)
	}
	return req, nil
}

// lostRace explains a compare-and-set that matched nothing.
func (l *Lifecycle) lostRace(ctx context.Context, orderID string) error {
	req, err := l.observe(ctx, orderID, l.now())
	if err != nil {
		return err
	}
	if req.State.IsTerminal() {
		return conflict(req)
	}
	return ErrConcurrentUpdate
}

func (l *Lifecycle) view(req *models.PaymentRequest, now time.Time) (*PaymentView, error) {
	payload, err := l.encoder.Encode(req.Amount, req.TransactionReference)
	if err != nil {
		return nil, fmt.Errorf("encode payload for %s: %w", req.OrderID, err)
	}
	v := &PaymentView{
		Request:          req,
		Payload:          payload,
		CountdownExpired: req.CountdownExpired(now),
	}
	if req.State == models.StatePending && !v.CountdownExpired {
		v.Remaining = req.ExpiresAt.Sub(now)
	}
	return v, nil
}

func (l *Lifecycle) committed(ctx context.Context, orderID string, from, to models.PaymentState, operator string, at time.Time) {
	telemetry.PaymentTransitions.WithLabelValues(string(to)).Inc()
	telemetry.Logger.Info("Payment state transition",
		zap.String("order_id", orderID),
		zap.String("from_state", string(from)),
		zap.String("to_state", string(to)),
	)
	l.publish(ctx, orderID, from, to, operator, at)
}

func (l *Lifecycle) publish(ctx context.Context, orderID string, from, to models.PaymentState, operator string, at time.Time) {
	if l.publisher == nil {
		return
	}
	event := models.StateChangeEvent{
		EventID:       uuid.NewString(),
		OrderID:       orderID,
		State:         to,
		PreviousState: from,
		Operator:      operator,
		Timestamp:     at,
	}
	if err := l.publisher.PublishStateChange(ctx, event); err != nil {
		telemetry.Logger.Warn("Failed to publish state change",
			zap.String("order_id", orderID),
			zap.String("state", string(to)),
			zap.Error(err),
		)
	}
}
