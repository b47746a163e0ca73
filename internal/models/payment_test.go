package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestStateMachine(t *testing.T) {
	for _, to := range []PaymentState{StateConfirmed, StateExpired, StateCancelled} {
		assert.True(t, StatePending.CanTransitionTo(to), to)
		assert.True(t, to.IsTerminal(), to)
		for _, next := range []PaymentState{StatePending, StateConfirmed, StateExpired, StateCancelled} {
			assert.False(t, to.CanTransitionTo(next), "%s -> %s", to, next)
		}
	}
	assert.False(t, StatePending.IsTerminal())
	assert.False(t, StatePending.CanTransitionTo(StatePending))
	assert.False(t, PaymentState("PAID").Valid())
	assert.False(t, PaymentState("PAID").IsTerminal())
}

func TestNewPaymentRequestWindow(t *testing.T) {
	created := time.Date(2026, 3, 10, 11, 0, 0, 123456789, time.FixedZone("BRT", -3*3600))
	req := NewPaymentRequest("o1", decimal.NewFromInt(5), "ESO1", created)

	assert.Equal(t, StatePending, req.State)
	assert.Equal(t, time.UTC, req.CreatedAt.Location())
	assert.Equal(t, 123456000, req.CreatedAt.Nanosecond())
	assert.Equal(t, req.CreatedAt.Add(30*time.Minute), req.ExpiresAt)
	assert.Nil(t, req.ConfirmedAt)
}

func TestExpiryChecks(t *testing.T) {
	created := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	req := NewPaymentRequest("o1", decimal.NewFromInt(5), "ESO1", created)

	assert.False(t, req.CountdownExpired(created.Add(29*time.Minute)))
	assert.True(t, req.CountdownExpired(created.Add(30*time.Minute)))

	assert.False(t, req.ExpiryDue(created.Add(35*time.Minute), 10*time.Minute))
	assert.True(t, req.ExpiryDue(created.Add(40*time.Minute), 10*time.Minute))

	req.State = StateConfirmed
	assert.False(t, req.ExpiryDue(created.Add(time.Hour), 0))
}

func TestFinalizedAt(t *testing.T) {
	created := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	req := NewPaymentRequest("o1", decimal.NewFromInt(5), "ESO1", created)
	assert.Nil(t, req.FinalizedAt())

	req.State = StateExpired
	assert.Equal(t, req.ExpiresAt, *req.FinalizedAt())

	at := created.Add(time.Minute)
	req.State = StateCancelled
	req.CancelledAt = &at
	assert.Equal(t, at, *req.FinalizedAt())

	clone := req.Clone()
	*clone.CancelledAt = created
	assert.Equal(t, at, *req.CancelledAt)
}
