package redis

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T, opts ...Option) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	store := NewStore(client, opts...)
	t.Cleanup(func() { _ = store.Close(t.Context()) })

	return store, mr
}

func TestStore_PutGetDelete(t *testing.T) {
	store, mr := setupStore(t)
	ctx := t.Context()

	require.NoError(t, store.Put(ctx, "workflows", "wf-1", []byte(`{"id":"wf-1"}`)))
	assert.True(t, mr.Exists("flowrun:workflows:wf-1"))

	members, err := mr.Members("flowrun:workflows")
	require.NoError(t, err)
	assert.Equal(t, []string{"wf-1"}, members)

	doc, err := store.Get(ctx, "workflows", "wf-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"wf-1"}`, string(doc))

	require.NoError(t, store.Delete(ctx, "workflows", "wf-1"))
	require.NoError(t, store.Delete(ctx, "workflows", "wf-1"))

	_, err = store.Get(ctx, "workflows", "wf-1")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestStore_List(t *testing.T) {
	store, _ := setupStore(t, WithPrefix("test"))
	ctx := t.Context()

	docs, err := store.List(ctx, "emails")
	require.NoError(t, err)
	assert.Empty(t, docs)

	require.NoError(t, store.Put(ctx, "emails", "b", []byte(`"b"`)))
	require.NoError(t, store.Put(ctx, "emails", "a", []byte(`"a"`)))

	docs, err = store.List(ctx, "emails")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, `"a"`, string(docs[0]))
}

func TestStore_RejectsEmptyID(t *testing.T) {
	store, _ := setupStore(t)

	assert.ErrorIs(t, store.Put(t.Context(), "workflows", "", []byte(`{}`)), persistence.ErrInvalidID)
}

func TestStore_HealthCheck(t *testing.T) {
	store, mr := setupStore(t)

	require.NoError(t, store.HealthCheck(t.Context()))

	mr.Close()
	assert.Error(t, store.HealthCheck(t.Context()))
}

func TestStore_Repository(t *testing.T) {
	store, _ := setupStore(t)
	repo := persistence.NewRepository(store)
	ctx := t.Context()

	require.NoError(t, repo.SaveState(ctx, &models.WorkflowState{WorkflowID: "wf", RunID: "r1", Status: models.RunStatusPaused}))

	state, err := repo.StateByWorkflowID(ctx, "wf")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusPaused, state.Status)
}

func TestNewStoreFromURL(t *testing.T) {
	_, err := NewStoreFromURL("not-a-url")
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	store, err := NewStoreFromURL("redis://" + mr.Addr())
	require.NoError(t, err)
	assert.NoError(t, store.HealthCheck(t.Context()))
}
