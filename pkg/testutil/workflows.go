// Package testutil provides workflow builders shared by tests.
package testutil

import (
	"github.com/dukex/flowrun/pkg/models"
	"github.com/google/uuid"
)

// NewWorkflow returns a draft single-node workflow that upper-cases
// "hello {{trigger.payload.name}}". Overrides run in order.
func NewWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	workflow := &models.Workflow{
		ID:      uuid.NewString(),
		Name:    "Greeter",
		Version: 1,
		Status:  models.WorkflowStatusDraft,
		Nodes: []*models.Node{
			{ID: "shout", Type: models.NodeTypeTransform, Config: map[string]any{
				"operation": "uppercase",
				"input":     "hello {{trigger.payload.name}}",
			}},
		},
		Edges: []*models.Edge{},
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

func WithName(name string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Name = name
	}
}

func WithStatus(status models.WorkflowStatus) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Status = status
	}
}

// WithWebhookTrigger installs an enabled webhook trigger.
func WithWebhookTrigger(url string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Trigger = models.Trigger{
			ID:      "webhook",
			Type:    models.TriggerTypeWebhook,
			Enabled: true,
			Config:  models.TriggerConfig{WebhookURL: url},
		}
	}
}

// WithEventTrigger installs an enabled event trigger.
func WithEventTrigger(eventType string, conditions ...models.Condition) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Trigger = models.Trigger{
			ID:      "event",
			Type:    models.TriggerTypeEvent,
			Enabled: true,
			Config:  models.TriggerConfig{EventType: eventType, Conditions: conditions},
		}
	}
}

// WithScheduleTrigger installs an enabled time trigger.
func WithScheduleTrigger(schedule string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Trigger = models.Trigger{
			ID:      "schedule",
			Type:    models.TriggerTypeTime,
			Enabled: true,
			Config:  models.TriggerConfig{Schedule: schedule},
		}
	}
}
