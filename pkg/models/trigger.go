package models

import "time"

// TriggerType identifies how a workflow run is started.
type TriggerType string

const (
	TriggerTypeTime    TriggerType = "time"
	TriggerTypeEvent   TriggerType = "event"
	TriggerTypeWebhook TriggerType = "webhook"
)

// Trigger is the condition that starts a workflow run.
type Trigger struct {
	ID      string        `json:"id"`
	Type    TriggerType   `json:"type,omitempty" validate:"omitempty,oneof=time event webhook"`
	Name    string        `json:"name,omitempty"`
	Enabled bool          `json:"enabled"`
	Config  TriggerConfig `json:"config"`
}

// TriggerConfig carries the type-specific trigger settings.
type TriggerConfig struct {
	Schedule   string      `json:"schedule,omitempty"`
	EventType  string      `json:"eventType,omitempty"`
	WebhookURL string      `json:"webhookUrl,omitempty"`
	Conditions []Condition `json:"conditions,omitempty" validate:"dive"`
}

// Condition is the closed {field, operator, literal} comparison form shared by
// condition nodes and event subscriptions.
type Condition struct {
	Field    string `json:"field"    validate:"required"`
	Operator string `json:"operator" validate:"required,oneof=== != > < >= <="`
	Value    string `json:"value"`
}

// EventSubscription is the stored registration of an event trigger.
type EventSubscription struct {
	WorkflowID string      `json:"workflowId"`
	EventType  string      `json:"eventType"`
	Conditions []Condition `json:"conditions"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// WebhookRegistration is the stored registration of a webhook trigger.
type WebhookRegistration struct {
	WorkflowID string    `json:"workflowId"`
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"createdAt"`
}
