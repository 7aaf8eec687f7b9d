package models

import "time"

// RunRequestStatus tracks a queued run through the worker.
type RunRequestStatus string

const (
	RunRequestPending   RunRequestStatus = "pending"
	RunRequestRunning   RunRequestStatus = "running"
	RunRequestCompleted RunRequestStatus = "completed"
	RunRequestFailed    RunRequestStatus = "failed"
)

// RunRequest is a durable request to run a workflow, written by triggers and
// consumed by the worker.
type RunRequest struct {
	ID          string           `json:"id"`
	WorkflowID  string           `json:"workflowId"`
	TriggerType TriggerType      `json:"triggerType"`
	TriggerData map[string]any   `json:"triggerData"`
	Status      RunRequestStatus `json:"status"`
	RunID       string           `json:"runId,omitempty"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}
