// Package events defines the events flowrun publishes on its event bus.
package events

import (
	"time"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every flowrun event.
const Topic = "flowrun.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunRequestedEvent  EventType = "workflow.run.requested"
	RunCompletedEvent  EventType = "workflow.run.completed"
	RunFailedEvent     EventType = "workflow.run.failed"
	EventReceivedEvent EventType = "domain.event.received"
)

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	WorkflowID string    `json:"workflowId,omitempty"`
}

// NewBaseEvent stamps a new event of eventType.
func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

// RunRequested announces a queued run request.
type RunRequested struct {
	BaseEvent

	RunRequestID string             `json:"runRequestId"`
	TriggerType  models.TriggerType `json:"triggerType"`
}

func (e RunRequested) GetType() EventType {
	return RunRequestedEvent
}

// RunCompleted announces a run that reached a terminal node.
type RunCompleted struct {
	BaseEvent

	RunID     string         `json:"runId"`
	Variables map[string]any `json:"variables,omitempty"`
	Duration  time.Duration  `json:"duration"`
}

func (e RunCompleted) GetType() EventType {
	return RunCompletedEvent
}

// RunFailed announces a run aborted by a fatal error.
type RunFailed struct {
	BaseEvent

	RunID    string        `json:"runId"`
	NodeID   string        `json:"nodeId,omitempty"`
	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (e RunFailed) GetType() EventType {
	return RunFailedEvent
}

// EventReceived carries an inbound domain event to the trigger dispatcher.
type EventReceived struct {
	BaseEvent

	Event models.Event `json:"event"`
}

func (e EventReceived) GetType() EventType {
	return EventReceivedEvent
}
