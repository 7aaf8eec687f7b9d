package services

import (
	"context"
	"fmt"

	"github.com/dukex/flowrun/pkg/models"
)

// ChangeStatus moves a workflow between draft, active and archived. Activation
// validates the workflow and installs its trigger; leaving active removes it.
// Archived workflows cannot be reactivated.
func (w *Workflow) ChangeStatus(ctx context.Context, workflowID string, status models.WorkflowStatus) (*models.Workflow, error) {
	if !validStatus(status) {
		return nil, NewValidationError("ChangeStatus", "INVALID_STATUS", fmt.Sprintf("invalid status '%s'", status), ErrInvalidStatus)
	}

	workflow, err := w.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status == status {
		return workflow, nil
	}

	if workflow.Status == models.WorkflowStatusArchived {
		return nil, fmt.Errorf("%w: %s", ErrCannotModifyArchived, workflowID)
	}

	if status == models.WorkflowStatusActive {
		if err := w.validateForActivation(workflow); err != nil {
			return nil, fmt.Errorf("workflow validation failed: %w", err)
		}
	}

	workflow.Status = status
	workflow.Version++
	workflow.UpdatedAt = w.clock.Now().UTC()

	if err := w.store.SaveWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to change workflow status: %w", err)
	}

	switch status {
	case models.WorkflowStatusActive:
		w.setupTrigger(ctx, workflow)
	default:
		if w.triggers != nil {
			w.triggers.Cleanup(ctx, workflowID)
		}
	}

	w.logger.InfoContext(ctx, "workflow status changed", "workflow_id", workflowID, "status", status)

	return workflow, nil
}

// Activate is ChangeStatus to active.
func (w *Workflow) Activate(ctx context.Context, workflowID string) (*models.Workflow, error) {
	return w.ChangeStatus(ctx, workflowID, models.WorkflowStatusActive)
}

// Archive is ChangeStatus to archived.
func (w *Workflow) Archive(ctx context.Context, workflowID string) (*models.Workflow, error) {
	return w.ChangeStatus(ctx, workflowID, models.WorkflowStatusArchived)
}

func (w *Workflow) validateForActivation(workflow *models.Workflow) error {
	if len(workflow.Nodes) == 0 {
		return ErrNodesRequired
	}

	return w.Validate(workflow)
}
