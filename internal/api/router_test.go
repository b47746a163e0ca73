package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/pix-payments/internal/brcode"
	"github.com/akylbek/payment-system/pix-payments/internal/models"
	"github.com/akylbek/payment-system/pix-payments/internal/repository"
	"github.com/akylbek/payment-system/pix-payments/internal/service"
)

var t0 = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

type stubOrders struct{}

func (stubOrders) LineItems(context.Context, string) ([]models.LineItem, error) {
	return []models.LineItem{{ProductID: "p1", Quantity: 1}}, nil
}

func (stubOrders) MarkPaid(context.Context, string) error { return nil }

type countingInventory struct {
	mu    sync.Mutex
	calls int
}

func (i *countingInventory) DecrementStock(context.Context, string, []models.LineItem) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls++
	return nil
}

func (i *countingInventory) ReleaseStock(context.Context, string) error { return nil }

type testServer struct {
	now       time.Time
	inventory *countingInventory
	handler   http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	enc, err := brcode.NewEncoder(brcode.Merchant{Key: "pix@example.com", Name: "Loja", City: "Recife"})
	require.NoError(t, err)

	ts := &testServer{now: t0, inventory: &countingInventory{}}
	lifecycle := service.NewLifecycle(repository.NewMemoryRepository(), enc, nil, service.Options{
		ReferencePrefix: "ES",
		Clock:           func() time.Time { return ts.now },
	})
	confirmer := service.NewConfirmer(lifecycle, stubOrders{}, ts.inventory, nil, nil)
	auth := NewStaticTokenAuthenticator(map[string]string{"secret-token": "alice"})
	ts.handler = NewRouter(lifecycle, confirmer, auth)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	code, body := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestPaymentFlow(t *testing.T) {
	ts := newTestServer(t)

	code, body := ts.do(t, http.MethodPost, "/pix/payments", "", map[string]any{"order_id": "1a2b3c4d", "amount": "199.90"})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "ES1A2B3C", body["transaction_reference"])
	assert.Equal(t, "199.90", body["amount"])
	assert.Equal(t, "2026-03-10T14:30:00Z", body["expires_at"])
	assert.True(t, brcode.Verify(body["brcode"].(string)))

	ts.now = t0.Add(5 * time.Minute)
	code, body = ts.do(t, http.MethodGet, "/pix/payments/1a2b3c4d", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "PENDING", body["state"])
	assert.Equal(t, float64(25*60), body["remaining_seconds"])
	assert.Equal(t, false, body["countdown_expired"])

	code, body = ts.do(t, http.MethodPost, "/admin/pix/payments/1a2b3c4d/confirm", "secret-token", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "CONFIRMED", body["state"])
	assert.Equal(t, "alice", body["confirmed_by"])
	assert.Equal(t, "2026-03-10T14:05:00Z", body["confirmed_at"])

	ts.now = t0.Add(6 * time.Minute)
	code, body = ts.do(t, http.MethodPost, "/admin/pix/payments/1a2b3c4d/confirm", "secret-token", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CONFIRMED", body["state"])
	assert.Equal(t, "2026-03-10T14:05:00Z", body["at"])
	assert.Equal(t, 1, ts.inventory.calls)
}

func TestConfirmRequiresOperatorToken(t *testing.T) {
	ts := newTestServer(t)
	code, _ := ts.do(t, http.MethodPost, "/pix/payments", "", map[string]any{"order_id": "o1", "amount": "10"})
	require.Equal(t, http.StatusCreated, code)

	code, _ = ts.do(t, http.MethodPost, "/admin/pix/payments/o1/confirm", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = ts.do(t, http.MethodPost, "/admin/pix/payments/o1/confirm", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Zero(t, ts.inventory.calls)
}

func TestExpiredAndCancelledResponses(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/pix/payments", "", map[string]any{"order_id": "exp", "amount": "10"})
	ts.do(t, http.MethodPost, "/pix/payments", "", map[string]any{"order_id": "can", "amount": "10"})

	code, body := ts.do(t, http.MethodPost, "/pix/payments/can/cancel", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "CANCELLED", body["state"])

	code, body = ts.do(t, http.MethodPost, "/admin/pix/payments/can/confirm", "secret-token", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CANCELLED", body["state"])

	ts.now = t0.Add(31 * time.Minute)
	code, body = ts.do(t, http.MethodGet, "/pix/payments/exp", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "EXPIRED", body["state"])
	assert.Equal(t, true, body["countdown_expired"])

	code, body = ts.do(t, http.MethodPost, "/admin/pix/payments/exp/confirm", "secret-token", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "EXPIRED", body["state"])
	assert.Equal(t, "2026-03-10T14:30:00Z", body["at"])
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)

	code, body := ts.do(t, http.MethodGet, "/pix/payments/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "payment link expired or invalid", body["error"])

	code, _ = ts.do(t, http.MethodPost, "/pix/payments", "", map[string]any{"order_id": "o1", "amount": "-3"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do(t, http.MethodPost, "/pix/payments", "", map[string]any{"amount": "3"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do(t, http.MethodPost, "/pix/payments", "", map[string]any{"order_id": "o1", "amount": "3"})
	require.Equal(t, http.StatusCreated, code)
	code, _ = ts.do(t, http.MethodPost, "/pix/payments", "", map[string]any{"order_id": "o1", "amount": "4"})
	assert.Equal(t, http.StatusConflict, code)
}

func TestStaticTokenAuthenticator(t *testing.T) {
	auth := NewStaticTokenAuthenticator(map[string]string{"t1": "alice"})
	op, ok := auth.Authenticate(context.Background(), "t1")
	assert.True(t, ok)
	assert.Equal(t, "alice", op)

	_, ok = auth.Authenticate(context.Background(), "")
	assert.False(t, ok)
	_, ok = auth.Authenticate(context.Background(), "t2")
	assert.False(t, ok)
}
