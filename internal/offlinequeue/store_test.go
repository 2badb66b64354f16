package offlinequeue_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakeryhq/ops-backend/internal/offlinequeue"
)

func TestFileStore_EnqueueListUpdateRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	store, err := offlinequeue.NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Enqueue(offlinequeue.Operation{ID: "a", URL: "/sales", Status: offlinequeue.StatusPending}))
	require.NoError(t, store.Enqueue(offlinequeue.Operation{ID: "b", URL: "/inventory/batches", Status: offlinequeue.StatusPending}))

	err = store.Enqueue(offlinequeue.Operation{ID: "a"})
	assert.Error(t, err, "duplicate id must be rejected")

	ops, err := store.List()
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, "a", ops[0].ID, "insertion order must be preserved")

	op, ok, err := store.Get("b")
	require.NoError(t, err)
	require.True(t, ok)
	op.Status = offlinequeue.StatusSynced
	require.NoError(t, store.Update(op))

	reloaded, _, err := store.Get("b")
	require.NoError(t, err)
	assert.Equal(t, offlinequeue.StatusSynced, reloaded.Status)

	require.NoError(t, store.Remove("a"))
	ops, err = store.List()
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "b", ops[0].ID)
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	store, err := offlinequeue.NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Enqueue(offlinequeue.Operation{ID: "persisted", URL: "/sales"}))

	reopened, err := offlinequeue.NewFileStore(path)
	require.NoError(t, err)
	ops, err := reopened.List()
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "persisted", ops[0].ID)
}
