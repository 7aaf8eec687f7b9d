package trigger

import (
	"errors"
	"testing"

	"github.com/dukex/flowrun/pkg/events"
	"github.com/dukex/flowrun/pkg/mocks"
	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	event := models.Event{
		ID:   "e1",
		Type: "order.created",
		Payload: map[string]any{
			"amount":   150.0,
			"customer": map[string]any{"tier": "gold"},
		},
	}

	tests := []struct {
		name       string
		conditions []models.Condition
		want       bool
	}{
		{"no conditions", nil, true},
		{"numeric", []models.Condition{{Field: "amount", Operator: ">", Value: "100"}}, true},
		{"nested", []models.Condition{{Field: "customer.tier", Operator: "==", Value: "gold"}}, true},
		{"payload prefix", []models.Condition{{Field: "payload.amount", Operator: "<=", Value: "150"}}, true},
		{"all must hold", []models.Condition{
			{Field: "amount", Operator: ">", Value: "100"},
			{Field: "customer.tier", Operator: "==", Value: "silver"},
		}, false},
		{"missing field", []models.Condition{{Field: "region", Operator: "!=", Value: "eu"}}, false},
		{"default operator", []models.Condition{{Field: "type", Value: "order.created"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Matches(tt.conditions, event)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDispatcher_DispatchEvent(t *testing.T) {
	repo := newTestRepository(t)
	publisher := &capturePublisher{}
	ctx := t.Context()

	manager := NewManager(newFakeScheduler(), repo, testLogger, WithClock(newTestClock()))

	for id, threshold := range map[string]string{"big": "100", "small": "0"} {
		require.NoError(t, manager.SetupTrigger(ctx, workflowWithTrigger(id, models.Trigger{
			Type:    models.TriggerTypeEvent,
			Enabled: true,
			Config: models.TriggerConfig{
				EventType:  "order.created",
				Conditions: []models.Condition{{Field: "amount", Operator: ">", Value: threshold}},
			},
		})))
	}

	dispatcher := NewDispatcher(repo, testLogger, WithDispatchPublisher(publisher), WithDispatchClock(newTestClock()))

	requests, err := dispatcher.DispatchEvent(ctx, models.Event{ID: "e1", Type: "order.created", Payload: map[string]any{"amount": 50}})
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "small", requests[0].WorkflowID)
	assert.Equal(t, models.TriggerTypeEvent, requests[0].TriggerType)
	assert.Equal(t, "order.created", requests[0].TriggerData["eventType"])

	requests, err = dispatcher.DispatchEvent(ctx, models.Event{ID: "e2", Type: "order.created", Payload: map[string]any{"amount": 500}})
	require.NoError(t, err)
	assert.Len(t, requests, 2)

	requests, err = dispatcher.DispatchEvent(ctx, models.Event{ID: "e3", Type: "order.cancelled"})
	require.NoError(t, err)
	assert.Empty(t, requests)

	pending, err := repo.PendingRunRequests(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 3)
	assert.Equal(t, 3, publisher.count())
}

func TestDispatcher_RequiresEventType(t *testing.T) {
	dispatcher := NewDispatcher(newTestRepository(t), testLogger)

	_, err := dispatcher.DispatchEvent(t.Context(), models.Event{})
	assert.ErrorIs(t, err, ErrEventTypeRequired)
}

func TestDispatcher_HandleWebhook(t *testing.T) {
	repo := newTestRepository(t)
	ctx := t.Context()

	manager := NewManager(newFakeScheduler(), repo, testLogger)
	require.NoError(t, manager.SetupTrigger(ctx, workflowWithTrigger("wf", models.Trigger{
		Type: models.TriggerTypeWebhook, Enabled: true, Config: models.TriggerConfig{WebhookURL: "https://hooks/wf"},
	})))

	dispatcher := NewDispatcher(repo, testLogger, WithDispatchClock(newTestClock()))

	request, err := dispatcher.HandleWebhook(ctx, "wf", map[string]any{"ref": "main"})
	require.NoError(t, err)
	assert.Equal(t, models.TriggerTypeWebhook, request.TriggerType)
	assert.Equal(t, map[string]any{
		"type":       "webhook",
		"url":        "https://hooks/wf",
		"payload":    map[string]any{"ref": "main"},
		"receivedAt": "2024-06-01T10:00:00Z",
	}, request.TriggerData)

	_, err = dispatcher.HandleWebhook(ctx, "unknown", nil)
	assert.ErrorIs(t, err, ErrWebhookNotRegistered)
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestDispatcher_HandleEventReceived(t *testing.T) {
	repo := newTestRepository(t)
	ctx := t.Context()

	require.NoError(t, repo.SaveEventSubscription(ctx, &models.EventSubscription{WorkflowID: "wf", EventType: "user.signup"}))

	dispatcher := NewDispatcher(repo, testLogger)

	err := dispatcher.HandleEventReceived(ctx, &events.EventReceived{Event: models.Event{Type: "user.signup"}})
	require.NoError(t, err)

	pending, err := repo.PendingRunRequests(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	assert.Error(t, dispatcher.HandleEventReceived(ctx, "not an event"))
}

func TestDispatcher_PublishFailureKeepsRequest(t *testing.T) {
	repo := newTestRepository(t)
	ctx := t.Context()

	require.NoError(t, repo.SaveEventSubscription(ctx, &models.EventSubscription{WorkflowID: "wf", EventType: "user.signup"}))

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, "wf", mock.AnythingOfType("events.RunRequested")).Return(errors.New("broker down")).Once()

	dispatcher := NewDispatcher(repo, testLogger, WithDispatchPublisher(bus))

	requests, err := dispatcher.DispatchEvent(ctx, models.Event{Type: "user.signup"})
	require.NoError(t, err)
	require.Len(t, requests, 1)

	stored, err := repo.RunRequestByID(ctx, requests[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunRequestPending, stored.Status)

	bus.AssertExpectations(t)
}
