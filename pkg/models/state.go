package models

import "time"

// RunStatus is the status of a workflow run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusPaused    RunStatus = "paused"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// WorkflowState is the persisted run-state of a workflow.
type WorkflowState struct {
	WorkflowID  string                  `json:"workflowId"`
	RunID       string                  `json:"runId"`
	Status      RunStatus               `json:"status"`
	CurrentNode string                  `json:"currentNode,omitempty"`
	Variables   map[string]any          `json:"variables"`
	History     []ExecutionHistoryEntry `json:"history"`
	StartedAt   time.Time               `json:"startedAt"`
	CompletedAt *time.Time              `json:"completedAt,omitempty"`
	Error       string                  `json:"error,omitempty"`
}
