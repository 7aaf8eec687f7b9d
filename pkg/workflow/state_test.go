package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/dukex/flowrun/pkg/persistence/file"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStateMachine(t *testing.T) (*StateMachine, *persistence.Repository, *clockwork.FakeClock) {
	t.Helper()

	repo := persistence.NewRepository(file.NewStore(t.TempDir()))
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))

	return NewStateMachine(repo, testLogger, clock), repo, clock
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.RunStatus
		want     bool
	}{
		{models.RunStatusRunning, models.RunStatusPaused, true},
		{models.RunStatusPaused, models.RunStatusRunning, true},
		{models.RunStatusRunning, models.RunStatusCompleted, true},
		{models.RunStatusRunning, models.RunStatusFailed, true},
		{models.RunStatusPaused, models.RunStatusCompleted, false},
		{models.RunStatusCompleted, models.RunStatusRunning, false},
		{models.RunStatusFailed, models.RunStatusRunning, false},
		{models.RunStatusRunning, models.RunStatusRunning, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestStateMachine_Lifecycle(t *testing.T) {
	sm, _, clock := newTestStateMachine(t)
	ctx := t.Context()

	state, err := sm.Initialize(ctx, "wf", "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, state.Status)
	assert.Equal(t, clock.Now().UTC(), state.StartedAt)

	state, err = sm.AppendHistory(ctx, "wf", models.ExecutionHistoryEntry{NodeID: "n1", Status: models.HistoryStatusSuccess})
	require.NoError(t, err)
	assert.Equal(t, "n1", state.CurrentNode)
	assert.Len(t, state.History, 1)

	state, err = sm.UpdateVariables(ctx, "wf", map[string]any{"n1": "out"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n1": "out"}, state.Variables)

	state, err = sm.UpdateVariables(ctx, "wf", map[string]any{"n2": "other"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n2": "other"}, state.Variables, "variables are replaced wholesale")

	_, err = sm.Pause(ctx, "wf")
	require.NoError(t, err)

	_, err = sm.Complete(ctx, "wf", "run-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = sm.Resume(ctx, "wf")
	require.NoError(t, err)

	clock.Advance(time.Minute)

	state, err = sm.Complete(ctx, "wf", "run-1")
	require.NoError(t, err)
	require.NotNil(t, state.CompletedAt)
	assert.Equal(t, clock.Now().UTC(), *state.CompletedAt)
}

func TestStateMachine_TerminalStatesAreImmutable(t *testing.T) {
	sm, _, _ := newTestStateMachine(t)
	ctx := t.Context()

	_, err := sm.Initialize(ctx, "wf", "run-1")
	require.NoError(t, err)

	state, err := sm.Fail(ctx, "wf", "run-1", assert.AnError)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, state.Status)
	assert.Equal(t, assert.AnError.Error(), state.Error)

	_, err = sm.Resume(ctx, "wf")
	assert.ErrorIs(t, err, ErrStateImmutable)

	_, err = sm.AppendHistory(ctx, "wf", models.ExecutionHistoryEntry{NodeID: "late"})
	assert.ErrorIs(t, err, ErrStateImmutable)

	err = sm.Save(ctx, &models.WorkflowState{WorkflowID: "wf", Status: models.RunStatusRunning})
	assert.ErrorIs(t, err, ErrStateImmutable)

	stored, err := sm.Get(ctx, "wf")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, stored.Status)
	assert.Empty(t, stored.History)
}

func TestStateMachine_FirstErrorIsKept(t *testing.T) {
	sm, repo, _ := newTestStateMachine(t)
	ctx := t.Context()

	_, err := sm.Initialize(ctx, "wf", "run-1")
	require.NoError(t, err)

	state, err := repo.StateByWorkflowID(ctx, "wf")
	require.NoError(t, err)

	state.Error = "first cause"
	require.NoError(t, sm.Save(ctx, state))

	state, err = sm.UpdateStatus(ctx, "wf", models.RunStatusFailed, "second cause")
	require.NoError(t, err)
	assert.Equal(t, "first cause", state.Error)
}

func TestStateMachine_Delete(t *testing.T) {
	sm, _, _ := newTestStateMachine(t)
	ctx := t.Context()

	_, err := sm.Initialize(ctx, "wf", "run-1")
	require.NoError(t, err)
	require.NoError(t, sm.Delete(ctx, "wf"))

	_, err = sm.Get(ctx, "wf")
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	_, err = sm.Pause(ctx, "wf")
	assert.ErrorIs(t, err, persistence.ErrStateNotFound)
}

func TestStateMachine_OneActiveRunPerWorkflow(t *testing.T) {
	sm, _, _ := newTestStateMachine(t)
	ctx := t.Context()

	_, err := sm.Initialize(ctx, "wf", "run-1")
	require.NoError(t, err)

	_, err = sm.Initialize(ctx, "wf", "run-2")
	require.ErrorIs(t, err, ErrRunInProgress)

	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "run-1", stateErr.RunID)

	_, err = sm.Pause(ctx, "wf")
	require.NoError(t, err)

	_, err = sm.Initialize(ctx, "wf", "run-2")
	assert.ErrorIs(t, err, ErrRunInProgress, "a paused run still owns the state")

	_, err = sm.Resume(ctx, "wf")
	require.NoError(t, err)

	_, err = sm.Complete(ctx, "wf", "run-1")
	require.NoError(t, err)

	state, err := sm.Initialize(ctx, "wf", "run-2")
	require.NoError(t, err)
	assert.Equal(t, "run-2", state.RunID)
	assert.Equal(t, models.RunStatusRunning, state.Status)
}

func TestStateMachine_RejectsWritesFromOtherRuns(t *testing.T) {
	sm, _, _ := newTestStateMachine(t)
	ctx := t.Context()

	_, err := sm.Initialize(ctx, "wf", "run-1")
	require.NoError(t, err)

	_, err = sm.RecordStep(ctx, "wf", "run-0", models.ExecutionHistoryEntry{NodeID: "stale"}, map[string]any{"stale": true})
	assert.ErrorIs(t, err, ErrRunMismatch)

	_, err = sm.Complete(ctx, "wf", "run-0")
	assert.ErrorIs(t, err, ErrRunMismatch)

	_, err = sm.Fail(ctx, "wf", "run-0", assert.AnError)
	assert.ErrorIs(t, err, ErrRunMismatch)

	state, err := sm.RecordStep(ctx, "wf", "run-1", models.ExecutionHistoryEntry{NodeID: "n1"}, map[string]any{"n1": 1})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusRunning, state.Status)
	require.Len(t, state.History, 1)
	assert.Equal(t, "n1", state.History[0].NodeID)
	assert.Empty(t, state.Error)
}

func TestStateMachine_FailPausedRun(t *testing.T) {
	sm, _, clock := newTestStateMachine(t)
	ctx := t.Context()

	_, err := sm.Initialize(ctx, "wf", "run-1")
	require.NoError(t, err)

	_, err = sm.Pause(ctx, "wf")
	require.NoError(t, err)

	state, err := sm.Fail(ctx, "wf", "run-1", context.Canceled)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusFailed, state.Status)
	assert.Equal(t, context.Canceled.Error(), state.Error)
	require.NotNil(t, state.CompletedAt)
	assert.Equal(t, clock.Now().UTC(), *state.CompletedAt)
}
