package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akylbek/payment-system/pix-payments/internal/interfaces"
	"github.com/akylbek/payment-system/pix-payments/internal/models"
)

type PaymentRequestRepository struct {
	db *sql.DB
}

func NewPaymentRequestRepository(db *sql.DB) *PaymentRequestRepository {
	return &PaymentRequestRepository{db: db}
}

func (r *PaymentRequestRepository) InitDB() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS pix_payment_requests (
			order_id VARCHAR(255) PRIMARY KEY,
			amount NUMERIC(13,2) NOT NULL CHECK (amount > 0),
			transaction_reference VARCHAR(25) NOT NULL,
			state VARCHAR(20) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			confirmed_at TIMESTAMPTZ,
			confirmed_by VARCHAR(255),
			cancelled_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (expires_at = created_at + INTERVAL '30 minutes')
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pix_payment_requests_pending_expiry
			ON pix_payment_requests(expires_at) WHERE state = 'PENDING'`,
		`CREATE INDEX IF NOT EXISTS idx_pix_payment_requests_reference
			ON pix_payment_requests(transaction_reference)`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

func (r *PaymentRequestRepository) Insert(ctx context.Context, req *models.PaymentRequest) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO pix_payment_requests (order_id, amount, transaction_reference, state, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (order_id) DO NOTHING
	`, req.OrderID, req.Amount, req.TransactionReference, req.State, req.CreatedAt, req.ExpiresAt)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *PaymentRequestRepository) GetByOrderID(ctx context.Context, orderID string) (*models.PaymentRequest, error) {
	var (
		req         models.PaymentRequest
		confirmedAt sql.NullTime
		confirmedBy sql.NullString
		cancelledAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT order_id, amount, transaction_reference, state, created_at, expires_at,
			confirmed_at, confirmed_by, cancelled_at
		FROM pix_payment_requests WHERE order_id = $1
	`, orderID).Scan(&req.OrderID, &req.Amount, &req.TransactionReference, &req.State,
		&req.CreatedAt, &req.ExpiresAt, &confirmedAt, &confirmedBy, &cancelledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !req.State.Valid() {
		return nil, fmt.Errorf("payment request %s has unknown state %q", orderID, req.State)
	}

	req.CreatedAt = req.CreatedAt.UTC()
	req.ExpiresAt = req.ExpiresAt.UTC()
	if confirmedAt.Valid {
		t := confirmedAt.Time.UTC()
		req.ConfirmedAt = &t
	}
	req.ConfirmedBy = confirmedBy.String
	if cancelledAt.Valid {
		t := cancelledAt.Time.UTC()
		req.CancelledAt = &t
	}
	return &req, nil
}

func (r *PaymentRequestRepository) TransitionState(ctx context.Context, orderID string, from, to models.PaymentState, at time.Time) (int64, error) {
	if err := checkTransition(from, to); err != nil {
		return 0, err
	}

	var cancelledAt *time.Time
	if to == models.StateCancelled {
		cancelledAt = &at
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE pix_payment_requests
		SET state = $1, cancelled_at = COALESCE($2, cancelled_at), updated_at = $3
		WHERE order_id = $4 AND state = $5
	`, to, cancelledAt, at, orderID, from)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ConfirmPending runs the conditional update and effects in one transaction.
// A concurrent confirmation blocks on the row lock and then matches nothing.
func (r *PaymentRequestRepository) ConfirmPending(ctx context.Context, orderID, operator string, at, notBefore time.Time, effects interfaces.EffectFunc) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE pix_payment_requests
		SET state = $1, confirmed_at = $2, confirmed_by = $3, updated_at = $2
		WHERE order_id = $4 AND state = $5 AND expires_at > $6
	`, models.StateConfirmed, at, operator, orderID, models.StatePending, notBefore)
	if err != nil {
		return 0, err
	}
	rows, err := result.RowsAffected()
	if err != nil || rows == 0 {
		return 0, err
	}

	if effects != nil {
		if err := effects(ctx); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit confirmation: %w", err)
	}
	return rows, nil
}

func (r *PaymentRequestRepository) ListExpirable(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	var rowLimit sql.NullInt64
	if limit > 0 {
		rowLimit = sql.NullInt64{Int64: int64(limit), Valid: true}
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id FROM pix_payment_requests
		WHERE state = $1 AND expires_at <= $2
		ORDER BY expires_at ASC
		LIMIT $3
	`, models.StatePending, cutoff, rowLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func checkTransition(from, to models.PaymentState) error {
	if to == models.StateConfirmed {
		return errors.New("confirmation must go through ConfirmPending")
	}
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("invalid state transition from %s to %s", from, to)
	}
	return nil
}
