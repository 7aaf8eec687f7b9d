package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/dukex/flowrun/pkg/persistence/file"
	"github.com/dukex/flowrun/pkg/registry"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.DiscardHandler)

// recordingTriggers remembers which workflows had their trigger set up or removed.
type recordingTriggers struct {
	mu       sync.Mutex
	setups   []string
	versions []int
	cleanups []string
	err      error
}

func (r *recordingTriggers) SetupTrigger(_ context.Context, workflow *models.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.setups = append(r.setups, workflow.ID)
	r.versions = append(r.versions, workflow.Version)

	return r.err
}

func (r *recordingTriggers) Cleanup(_ context.Context, workflowID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cleanups = append(r.cleanups, workflowID)
}

type fixture struct {
	service  *Workflow
	repo     *persistence.Repository
	triggers *recordingTriggers
	clock    *clockwork.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := persistence.NewRepository(file.NewStore(t.TempDir()))
	nodes := registry.NewRegistry(testLogger)
	nodes.RegisterDefaultNodes()

	triggers := &recordingTriggers{}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	service := NewWorkflow(repo, testLogger,
		WithNodeValidator(nodes),
		WithTriggers(triggers),
		WithStates(stateRemover{repo}),
		WithHealthCheck(repo.Store().HealthCheck),
		WithClock(clock),
	)

	return &fixture{service: service, repo: repo, triggers: triggers, clock: clock}
}

type stateRemover struct {
	repo *persistence.Repository
}

func (s stateRemover) Delete(ctx context.Context, workflowID string) error {
	return s.repo.DeleteState(ctx, workflowID)
}

func approvalWorkflow() *models.Workflow {
	return &models.Workflow{
		Name: "Expense approval",
		Trigger: models.Trigger{
			ID:      "t1",
			Type:    models.TriggerTypeTime,
			Enabled: true,
			Config:  models.TriggerConfig{Schedule: "0 9 * * 1"},
		},
		Nodes: []*models.Node{
			{ID: "form", Type: models.NodeTypeForm},
			{ID: "check", Type: models.NodeTypeCondition, Config: map[string]any{"field": "variables.form.amount", "operator": ">", "value": "100"}},
			{ID: "approve", Type: models.NodeTypeApproval, Config: map[string]any{"approver": "finance"}},
			{ID: "notify", Type: models.NodeTypeNotification, Config: map[string]any{"channel": "slack", "recipient": "#expenses", "message": "ok"}},
		},
		Edges: []*models.Edge{
			{Source: "form", Target: "check"},
			{Source: "check", Target: "approve", Label: models.BranchTrue},
			{Source: "check", Target: "notify", Label: models.BranchFalse},
		},
	}
}

func createWorkflow(t *testing.T, f *fixture) *models.Workflow {
	t.Helper()

	created, err := f.service.Create(t.Context(), approvalWorkflow())
	require.NoError(t, err)

	return created
}
