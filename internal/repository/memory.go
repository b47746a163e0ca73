package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/akylbek/payment-system/pix-payments/internal/interfaces"
	"github.com/akylbek/payment-system/pix-payments/internal/models"
)

// MemoryRepository keeps payment requests in process for STORAGE=memory and
// tests. A single mutex plays the part of the row lock, so ConfirmPending
// effects must not call back into the repository. Effects run with that
// mutex held: a slow collaborator call blocks every other read and write
// until it returns.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]*models.PaymentRequest
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]*models.PaymentRequest)}
}

func (r *MemoryRepository) Insert(_ context.Context, req *models.PaymentRequest) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[req.OrderID]; ok {
		return false, nil
	}
	r.records[req.OrderID] = req.Clone()
	return true, nil
}

func (r *MemoryRepository) GetByOrderID(_ context.Context, orderID string) (*models.PaymentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[orderID]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return rec.Clone(), nil
}

func (r *MemoryRepository) TransitionState(_ context.Context, orderID string, from, to models.PaymentState, at time.Time) (int64, error) {
	if err := checkTransition(from, to); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[orderID]
	if !ok || rec.State != from {
		return 0, nil
	}
	rec.State = to
	if to == models.StateCancelled {
		t := at.UTC()
		rec.CancelledAt = &t
	}
	return 1, nil
}

func (r *MemoryRepository) ConfirmPending(ctx context.Context, orderID, operator string, at, notBefore time.Time, effects interfaces.EffectFunc) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[orderID]
	if !ok || rec.State != models.StatePending || !rec.ExpiresAt.After(notBefore) {
		return 0, nil
	}

	if effects != nil {
		if err := effects(ctx); err != nil {
			return 0, err
		}
	}

	t := at.UTC()
	rec.State = models.StateConfirmed
	rec.ConfirmedAt = &t
	rec.ConfirmedBy = operator
	return 1, nil
}

func (r *MemoryRepository) ListExpirable(_ context.Context, cutoff time.Time, limit int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []*models.PaymentRequest
	for _, rec := range r.records {
		if rec.State == models.StatePending && !rec.ExpiresAt.After(cutoff) {
			due = append(due, rec)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ExpiresAt.Before(due[j].ExpiresAt) })

	ids := make([]string, 0, len(due))
	for _, rec := range due {
		if limit > 0 && len(ids) == limit {
			break
		}
		ids = append(ids, rec.OrderID)
	}
	return ids, nil
}
