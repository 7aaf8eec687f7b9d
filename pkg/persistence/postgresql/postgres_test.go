package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/dukex/flowrun/pkg/persistence/postgresql"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func TestMain(m *testing.M) {
	code := m.Run()

	if postgresContainer != nil {
		if err := testcontainers.TerminateContainer(postgresContainer); err != nil {
			slog.Error("failed to terminate postgres container", "error", err)
		}
	}

	os.Exit(code)
}

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"documents", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	require.NoError(t, db.Close())
}

func setupTestDB(t *testing.T) (*postgresql.Store, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("flowrun_test"),
			postgres.WithUsername("flowrun"),
			postgres.WithPassword("flowrun"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := postgresql.NewStore(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		require.NoError(t, store.Close(ctx))

		cancel()
	})

	return store, ctx, databaseURL
}

func TestNewStore_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer db.Close()

	var version int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 2, version)
}

func TestStore_Documents(t *testing.T) {
	store, ctx, _ := setupTestDB(t)

	require.NoError(t, store.Put(ctx, "workflows", "wf-1", []byte(`{"id":"wf-1","name":"one"}`)))
	require.NoError(t, store.Put(ctx, "workflows", "wf-1", []byte(`{"id":"wf-1","name":"two"}`)))
	require.NoError(t, store.Put(ctx, "workflows", "wf-2", []byte(`{"id":"wf-2"}`)))

	doc, err := store.Get(ctx, "workflows", "wf-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"wf-1","name":"two"}`, string(doc))

	docs, err := store.List(ctx, "workflows")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	require.NoError(t, store.Delete(ctx, "workflows", "wf-1"))
	_, err = store.Get(ctx, "workflows", "wf-1")
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	assert.NoError(t, store.HealthCheck(ctx))
}

func TestStore_Repository(t *testing.T) {
	store, ctx, _ := setupTestDB(t)
	repo := persistence.NewRepository(store)

	workflow := &models.Workflow{ID: "wf-1", Name: "Pg", Version: 1, Status: models.WorkflowStatusDraft}
	require.NoError(t, repo.SaveWorkflow(ctx, workflow))

	got, err := repo.WorkflowByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Pg", got.Name)
}
