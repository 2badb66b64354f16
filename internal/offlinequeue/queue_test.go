package offlinequeue_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakeryhq/ops-backend/internal/offlinequeue"
)

func newTestQueue(transport offlinequeue.Transport) (*offlinequeue.Queue, *offlinequeue.MemStore) {
	store := offlinequeue.NewMemStore()
	q := offlinequeue.NewQueue(store, transport)
	return q, store
}

func TestQueue_SyncOnce_2xxSyncsAndRemoves(t *testing.T) {
	transport := offlinequeue.TransportFunc(func(ctx context.Context, op offlinequeue.Operation) (int, []byte, error) {
		return 200, []byte(`{"ok":true}`), nil
	})
	q, store := newTestQueue(transport)

	require.NoError(t, q.Enqueue(offlinequeue.Operation{ID: "op1", URL: "/sales", Method: "POST", IdempotencyKey: "k7"}))
	q.SyncOnce(context.Background())

	ops, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, ops, "synced operation must be removed from the queue")

	history := q.History.Entries()
	require.Len(t, history, 1)
	assert.Equal(t, offlinequeue.StatusSynced, history[0].Status)
}

func TestQueue_SyncOnce_409MarksConflict(t *testing.T) {
	transport := offlinequeue.TransportFunc(func(ctx context.Context, op offlinequeue.Operation) (int, []byte, error) {
		return 409, []byte(`{"error":"stock violation"}`), nil
	})
	q, store := newTestQueue(transport)

	require.NoError(t, q.Enqueue(offlinequeue.Operation{ID: "op2", URL: "/sales", Method: "POST", IdempotencyKey: "k2"}))
	q.SyncOnce(context.Background())

	op, ok, err := store.Get("op2")
	require.NoError(t, err)
	require.True(t, ok, "conflicted operation stays in the queue for admin resolution")
	assert.Equal(t, offlinequeue.StatusConflict, op.Status)
}

func TestQueue_SyncOnce_4xxFailsThenNeedsReview(t *testing.T) {
	transport := offlinequeue.TransportFunc(func(ctx context.Context, op offlinequeue.Operation) (int, []byte, error) {
		return 422, []byte(`{"error":"invalid argument"}`), nil
	})
	q, store := newTestQueue(transport)
	q.MaxRetries = 2

	require.NoError(t, q.Enqueue(offlinequeue.Operation{ID: "op3", URL: "/sales", Method: "POST", IdempotencyKey: "k3"}))
	q.SyncOnce(context.Background())
	op, _, _ := store.Get("op3")
	assert.Equal(t, offlinequeue.StatusFailed, op.Status)
	assert.Equal(t, 1, op.Retries)

	op.Status = offlinequeue.StatusPending
	require.NoError(t, store.Update(op))
	q.SyncOnce(context.Background())
	op, _, _ = store.Get("op3")
	assert.Equal(t, offlinequeue.StatusNeedsReview, op.Status)
	assert.Equal(t, 2, op.Retries)
}

func TestQueue_SyncOnce_NetworkErrorRetries(t *testing.T) {
	transport := offlinequeue.TransportFunc(func(ctx context.Context, op offlinequeue.Operation) (int, []byte, error) {
		return 0, nil, assertError{}
	})
	q, store := newTestQueue(transport)

	require.NoError(t, q.Enqueue(offlinequeue.Operation{ID: "op4", URL: "/sales", Method: "POST", IdempotencyKey: "k4"}))
	q.SyncOnce(context.Background())

	op, ok, err := store.Get("op4")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, offlinequeue.StatusRetrying, op.Status)
	assert.Equal(t, 1, op.Retries)
}

func TestQueue_Resolve_RemovesWithoutResend(t *testing.T) {
	called := false
	transport := offlinequeue.TransportFunc(func(ctx context.Context, op offlinequeue.Operation) (int, []byte, error) {
		called = true
		return 200, nil, nil
	})
	q, store := newTestQueue(transport)
	require.NoError(t, q.Enqueue(offlinequeue.Operation{ID: "op5", IdempotencyKey: "k5", Status: offlinequeue.StatusConflict}))

	require.NoError(t, q.Resolve("op5", 1, "manually reconciled"))
	assert.False(t, called, "resolve must not re-send the request")

	_, ok, _ := store.Get("op5")
	assert.False(t, ok)
}

func TestQueue_Retry_UnknownOperation(t *testing.T) {
	q, _ := newTestQueue(offlinequeue.TransportFunc(func(ctx context.Context, op offlinequeue.Operation) (int, []byte, error) {
		return 200, nil, nil
	}))
	err := q.Retry(context.Background(), "missing", 1, "")
	assert.ErrorIs(t, err, offlinequeue.ErrOperationNotFound)
}

type assertError struct{}

func (assertError) Error() string { return "network error" }
