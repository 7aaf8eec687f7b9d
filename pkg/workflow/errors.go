// Package workflow walks workflow graphs, retries failed steps and manages
// the run-state of each workflow.
package workflow

import (
	"errors"
	"fmt"

	"github.com/dukex/flowrun/pkg/models"
)

var (
	// ErrNodeNotFound indicates a node id that is not part of the graph.
	ErrNodeNotFound = models.ErrNodeNotFound

	// ErrUnsupportedNodeType indicates a node type with no registered handler.
	ErrUnsupportedNodeType = errors.New("unsupported node type")

	// ErrBranchNotFound indicates a condition node without an edge for the
	// selected branch. It matches ErrNodeNotFound.
	ErrBranchNotFound = fmt.Errorf("branch %w", ErrNodeNotFound)

	// ErrInvalidTransition indicates a state transition outside the state machine.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrStateImmutable indicates a write to a completed or failed state.
	ErrStateImmutable = errors.New("workflow state is immutable")

	// ErrRunInProgress indicates a run was started while another run of the
	// same workflow is running or paused.
	ErrRunInProgress = errors.New("workflow run in progress")

	// ErrRunMismatch indicates a write from a run that no longer owns the state.
	ErrRunMismatch = errors.New("workflow state belongs to another run")

	// ErrWorkflowArchived indicates a run was requested for an archived workflow.
	ErrWorkflowArchived = errors.New("workflow is archived")
)

// WorkflowExecutionError is the fatal error of a run, naming the node where
// execution stopped.
type WorkflowExecutionError struct {
	NodeID string
	Err    error
}

func (e *WorkflowExecutionError) Error() string {
	return fmt.Sprintf("workflow execution failed at node %s: %v", e.NodeID, e.Err)
}

func (e *WorkflowExecutionError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for execution errors.
func (e *WorkflowExecutionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// StateError wraps state machine errors with the workflow and transition.
type StateError struct {
	Op         string
	WorkflowID string
	RunID      string
	From       models.RunStatus
	To         models.RunStatus
	Err        error
}

func (e *StateError) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("%s failed for workflow %s run %s: %v", e.Op, e.WorkflowID, e.RunID, e.Err)
	}

	if e.To != "" {
		return fmt.Sprintf("%s failed for workflow %s (%s -> %s): %v", e.Op, e.WorkflowID, e.From, e.To, e.Err)
	}

	return fmt.Sprintf("%s failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

func (e *StateError) Is(target error) bool {
	return errors.Is(e.Err, target)
}
