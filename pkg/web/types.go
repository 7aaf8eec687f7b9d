// Package web provides HTTP request and response types for the workflow API.
package web

import (
	"time"

	"github.com/dukex/flowrun/pkg/models"
)

// WorkflowRequest is the body of create and update calls. Updates replace
// the whole definition.
type WorkflowRequest struct {
	Name        string         `json:"name"        validate:"required,min=1"`
	Description string         `json:"description"`
	Trigger     models.Trigger `json:"trigger"`
	Nodes       []*models.Node `json:"nodes"       validate:"dive"`
	Edges       []*models.Edge `json:"edges"       validate:"dive"`
}

// ToWorkflow builds the workflow the request describes. Nil slices become
// empty ones so the stored document always carries arrays.
func (r *WorkflowRequest) ToWorkflow() *models.Workflow {
	workflow := &models.Workflow{
		Name:        r.Name,
		Description: r.Description,
		Trigger:     r.Trigger,
		Nodes:       r.Nodes,
		Edges:       r.Edges,
	}

	if workflow.Nodes == nil {
		workflow.Nodes = []*models.Node{}
	}

	if workflow.Edges == nil {
		workflow.Edges = []*models.Edge{}
	}

	return workflow
}

// ChangeStatusRequest moves a workflow to another lifecycle status.
type ChangeStatusRequest struct {
	Status models.WorkflowStatus `json:"status" validate:"required,oneof=draft active archived"`
}

// ExecuteWorkflowRequest starts a synchronous run.
type ExecuteWorkflowRequest struct {
	TriggerData map[string]any            `json:"triggerData"`
	FormData    map[string]map[string]any `json:"formData"`
}

// CreateNodeRequest represents the request body for adding a node.
type CreateNodeRequest struct {
	ID     string          `json:"id"`
	Type   models.NodeType `json:"type"   validate:"required"`
	Config map[string]any  `json:"config"`
}

// UpdateNodeRequest replaces the config of a node. The type cannot change.
type UpdateNodeRequest struct {
	Config map[string]any `json:"config"`
}

// EventRequest is an inbound domain event.
type EventRequest struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"      validate:"required"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// ToEvent converts the request into a domain event.
func (r *EventRequest) ToEvent() models.Event {
	return models.Event{
		ID:        r.ID,
		Type:      r.Type,
		Payload:   r.Payload,
		Timestamp: r.Timestamp,
	}
}

// RunRequestResponse reports queued run requests.
type RunRequestResponse struct {
	RunRequests []RunRequestSummary `json:"runRequests"`
}

type RunRequestSummary struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflowId"`
	Status     string `json:"status"`
}

// NewRunRequestResponse summarizes requests for the API.
func NewRunRequestResponse(requests ...*models.RunRequest) RunRequestResponse {
	summaries := make([]RunRequestSummary, 0, len(requests))

	for _, request := range requests {
		summaries = append(summaries, RunRequestSummary{
			ID:         request.ID,
			WorkflowID: request.WorkflowID,
			Status:     string(request.Status),
		})
	}

	return RunRequestResponse{RunRequests: summaries}
}
