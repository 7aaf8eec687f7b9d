package events

import (
	"encoding/json"
	"testing"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseEvent(t *testing.T) {
	base := NewBaseEvent(RunFailedEvent, "wf-1")

	assert.NotEmpty(t, base.ID)
	assert.Equal(t, RunFailedEvent, base.Type)
	assert.Equal(t, "wf-1", base.WorkflowID)
	assert.False(t, base.Timestamp.IsZero())
}

func TestEventTypes(t *testing.T) {
	assert.Equal(t, RunRequestedEvent, RunRequested{}.GetType())
	assert.Equal(t, RunCompletedEvent, RunCompleted{}.GetType())
	assert.Equal(t, RunFailedEvent, RunFailed{}.GetType())
	assert.Equal(t, EventReceivedEvent, EventReceived{}.GetType())
}

func TestEventReceivedJSON(t *testing.T) {
	event := EventReceived{
		BaseEvent: NewBaseEvent(EventReceivedEvent, ""),
		Event:     models.Event{ID: "e1", Type: "user.created", Payload: map[string]any{"plan": "pro"}},
	}

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded EventReceived
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "user.created", decoded.Event.Type)
	assert.Equal(t, "pro", decoded.Event.Payload["plan"])
	assert.Equal(t, event.ID, decoded.ID)
}
