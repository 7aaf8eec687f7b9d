package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/jonboulle/clockwork"
)

// StateStore persists run-states keyed by workflow id.
type StateStore interface {
	SaveState(ctx context.Context, state *models.WorkflowState) error
	StateByWorkflowID(ctx context.Context, workflowID string) (*models.WorkflowState, error)
	DeleteState(ctx context.Context, workflowID string) error
}

var transitions = map[models.RunStatus][]models.RunStatus{
	models.RunStatusRunning: {models.RunStatusPaused, models.RunStatusCompleted, models.RunStatusFailed},
	models.RunStatusPaused:  {models.RunStatusRunning},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to models.RunStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}

	return false
}

// StateMachine governs the run status of workflows. Every mutation is a
// read-modify-write against the store, serialized per machine.
type StateMachine struct {
	store  StateStore
	clock  clockwork.Clock
	logger *slog.Logger
	mu     sync.Mutex
}

func NewStateMachine(store StateStore, logger *slog.Logger, clock clockwork.Clock) *StateMachine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &StateMachine{
		store:  store,
		clock:  clock,
		logger: logger.With("module", "state_machine"),
	}
}

// Initialize creates a fresh running state for a run. It replaces a terminal
// state of a previous run and fails with ErrRunInProgress while another run
// is running or paused.
func (m *StateMachine) Initialize(ctx context.Context, workflowID, runID string) (*models.WorkflowState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.store.StateByWorkflowID(ctx, workflowID)
	if err == nil && !current.Status.IsTerminal() {
		return nil, &StateError{Op: "Initialize", WorkflowID: workflowID, RunID: current.RunID, From: current.Status, Err: ErrRunInProgress}
	}

	state := &models.WorkflowState{
		WorkflowID: workflowID,
		RunID:      runID,
		Status:     models.RunStatusRunning,
		Variables:  map[string]any{},
		History:    []models.ExecutionHistoryEntry{},
		StartedAt:  m.clock.Now().UTC(),
	}

	if err := m.store.SaveState(ctx, state); err != nil {
		return nil, &StateError{Op: "Initialize", WorkflowID: workflowID, Err: err}
	}

	m.logger.InfoContext(ctx, "state initialized", "workflow_id", workflowID, "run_id", runID)

	return state, nil
}

// Get returns the current state of a workflow.
func (m *StateMachine) Get(ctx context.Context, workflowID string) (*models.WorkflowState, error) {
	return m.store.StateByWorkflowID(ctx, workflowID)
}

// Save writes state as-is unless the stored state is already terminal.
func (m *StateMachine) Save(ctx context.Context, state *models.WorkflowState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.store.StateByWorkflowID(ctx, state.WorkflowID)
	if err == nil && current.Status.IsTerminal() {
		return &StateError{Op: "Save", WorkflowID: state.WorkflowID, Err: ErrStateImmutable}
	}

	return m.store.SaveState(ctx, state)
}

// UpdateStatus moves the state to status. Terminal transitions set
// CompletedAt; errMsg is recorded only when no earlier cause exists.
func (m *StateMachine) UpdateStatus(ctx context.Context, workflowID string, status models.RunStatus, errMsg string) (*models.WorkflowState, error) {
	return m.mutate(ctx, "UpdateStatus", workflowID, func(state *models.WorkflowState) error {
		return m.transition(state, status, errMsg)
	})
}

func (m *StateMachine) transition(state *models.WorkflowState, status models.RunStatus, errMsg string) error {
	if !CanTransition(state.Status, status) {
		return &StateError{Op: "UpdateStatus", WorkflowID: state.WorkflowID, From: state.Status, To: status, Err: ErrInvalidTransition}
	}

	state.Status = status

	if status.IsTerminal() {
		now := m.clock.Now().UTC()
		state.CompletedAt = &now
	}

	if errMsg != "" && state.Error == "" {
		state.Error = errMsg
	}

	return nil
}

// AppendHistory appends entry and moves currentNode to its node.
func (m *StateMachine) AppendHistory(ctx context.Context, workflowID string, entry models.ExecutionHistoryEntry) (*models.WorkflowState, error) {
	return m.mutate(ctx, "AppendHistory", workflowID, func(state *models.WorkflowState) error {
		state.History = append(state.History, entry)
		state.CurrentNode = entry.NodeID

		return nil
	})
}

// UpdateVariables replaces the variables snapshot wholesale.
func (m *StateMachine) UpdateVariables(ctx context.Context, workflowID string, variables map[string]any) (*models.WorkflowState, error) {
	return m.mutate(ctx, "UpdateVariables", workflowID, func(state *models.WorkflowState) error {
		next := make(map[string]any, len(variables))
		for k, v := range variables {
			next[k] = v
		}

		state.Variables = next

		return nil
	})
}

// RecordStep appends entry and replaces variables in one write. It fails with
// ErrRunMismatch when runID no longer owns the state.
func (m *StateMachine) RecordStep(ctx context.Context, workflowID, runID string, entry models.ExecutionHistoryEntry, variables map[string]any) (*models.WorkflowState, error) {
	return m.mutate(ctx, "RecordStep", workflowID, func(state *models.WorkflowState) error {
		if err := ownedBy(state, "RecordStep", runID); err != nil {
			return err
		}

		state.History = append(state.History, entry)
		state.CurrentNode = entry.NodeID

		next := make(map[string]any, len(variables))
		for k, v := range variables {
			next[k] = v
		}

		state.Variables = next

		return nil
	})
}

func (m *StateMachine) Pause(ctx context.Context, workflowID string) (*models.WorkflowState, error) {
	return m.UpdateStatus(ctx, workflowID, models.RunStatusPaused, "")
}

func (m *StateMachine) Resume(ctx context.Context, workflowID string) (*models.WorkflowState, error) {
	return m.UpdateStatus(ctx, workflowID, models.RunStatusRunning, "")
}

func (m *StateMachine) Complete(ctx context.Context, workflowID, runID string) (*models.WorkflowState, error) {
	return m.updateRunStatus(ctx, "Complete", workflowID, runID, models.RunStatusCompleted, "")
}

// Fail records cause and moves the run to failed. A paused run is resumed
// first so the cause of an aborted run is not lost.
func (m *StateMachine) Fail(ctx context.Context, workflowID, runID string, cause error) (*models.WorkflowState, error) {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}

	return m.mutate(ctx, "Fail", workflowID, func(state *models.WorkflowState) error {
		if err := ownedBy(state, "Fail", runID); err != nil {
			return err
		}

		if state.Status == models.RunStatusPaused {
			m.logger.InfoContext(ctx, "resuming paused run to fail it", "workflow_id", workflowID, "run_id", runID)

			if err := m.transition(state, models.RunStatusRunning, ""); err != nil {
				return err
			}
		}

		return m.transition(state, models.RunStatusFailed, msg)
	})
}

func (m *StateMachine) updateRunStatus(ctx context.Context, op, workflowID, runID string, status models.RunStatus, errMsg string) (*models.WorkflowState, error) {
	return m.mutate(ctx, op, workflowID, func(state *models.WorkflowState) error {
		if err := ownedBy(state, op, runID); err != nil {
			return err
		}

		return m.transition(state, status, errMsg)
	})
}

func ownedBy(state *models.WorkflowState, op, runID string) error {
	if state.RunID != runID {
		return &StateError{Op: op, WorkflowID: state.WorkflowID, RunID: runID, Err: ErrRunMismatch}
	}

	return nil
}

// Delete removes the state of a workflow.
func (m *StateMachine) Delete(ctx context.Context, workflowID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.DeleteState(ctx, workflowID); err != nil {
		return &StateError{Op: "Delete", WorkflowID: workflowID, Err: err}
	}

	return nil
}

func (m *StateMachine) mutate(ctx context.Context, op, workflowID string, fn func(*models.WorkflowState) error) (*models.WorkflowState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.store.StateByWorkflowID(ctx, workflowID)
	if err != nil {
		return nil, &StateError{Op: op, WorkflowID: workflowID, Err: err}
	}

	if state.Status.IsTerminal() {
		return nil, &StateError{Op: op, WorkflowID: workflowID, From: state.Status, Err: ErrStateImmutable}
	}

	if err := fn(state); err != nil {
		return nil, err
	}

	if err := m.store.SaveState(ctx, state); err != nil {
		return nil, &StateError{Op: op, WorkflowID: workflowID, Err: fmt.Errorf("failed to save state: %w", err)}
	}

	return state, nil
}
