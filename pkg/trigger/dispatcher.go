package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowrun/pkg/eventbus"
	"github.com/dukex/flowrun/pkg/events"
	"github.com/dukex/flowrun/pkg/metrics"
	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/nodes/condition"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/dukex/flowrun/pkg/template"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// DispatchStore reads registrations and writes run requests.
type DispatchStore interface {
	protocol.RunQueue
	EventSubscriptionsByType(ctx context.Context, eventType string) ([]*models.EventSubscription, error)
	WebhookByWorkflowID(ctx context.Context, workflowID string) (*models.WebhookRegistration, error)
}

// Dispatcher matches domain events against event subscriptions and inbound
// webhook calls against webhook registrations.
type Dispatcher struct {
	store     DispatchStore
	publisher eventbus.EventPublisher
	metrics   *metrics.Metrics
	clock     clockwork.Clock
	logger    *slog.Logger
}

type DispatcherOption func(*Dispatcher)

func WithDispatchPublisher(publisher eventbus.EventPublisher) DispatcherOption {
	return func(d *Dispatcher) {
		d.publisher = publisher
	}
}

func WithDispatchMetrics(mt *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = mt
	}
}

func WithDispatchClock(clock clockwork.Clock) DispatcherOption {
	return func(d *Dispatcher) {
		d.clock = clock
	}
}

func NewDispatcher(store DispatchStore, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:  store,
		clock:  clockwork.NewRealClock(),
		logger: logger.With("module", "event_dispatcher"),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// DispatchEvent writes one run request per subscription of event.Type whose
// conditions all hold.
func (d *Dispatcher) DispatchEvent(ctx context.Context, event models.Event) ([]*models.RunRequest, error) {
	if event.Type == "" {
		return nil, ErrEventTypeRequired
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = d.clock.Now().UTC()
	}

	subscriptions, err := d.store.EventSubscriptionsByType(ctx, event.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions for %s: %w", event.Type, err)
	}

	logger := d.logger.With("event_type", event.Type, "event_id", event.ID)

	var (
		requests []*models.RunRequest
		errs     []error
	)

	for _, sub := range subscriptions {
		matched, err := Matches(sub.Conditions, event)
		if err != nil {
			logger.WarnContext(ctx, "subscription conditions invalid", "workflow_id", sub.WorkflowID, "error", err)

			continue
		}

		if !matched {
			continue
		}

		request := d.newRequest(sub.WorkflowID, models.TriggerTypeEvent, map[string]any{
			"type":      "event",
			"eventType": event.Type,
			"eventId":   event.ID,
			"payload":   event.Payload,
			"timestamp": event.Timestamp.Format(time.RFC3339),
		})

		if err := d.enqueue(ctx, request); err != nil {
			errs = append(errs, err)

			continue
		}

		requests = append(requests, request)
	}

	logger.InfoContext(ctx, "event dispatched", "subscriptions", len(subscriptions), "matched", len(requests))

	return requests, errors.Join(errs...)
}

// HandleWebhook writes a run request for the workflow registered under
// workflowID. Unregistered workflows yield ErrWebhookNotRegistered.
func (d *Dispatcher) HandleWebhook(ctx context.Context, workflowID string, payload map[string]any) (*models.RunRequest, error) {
	hook, err := d.store.WebhookByWorkflowID(ctx, workflowID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrWebhookNotRegistered, workflowID)
		}

		return nil, err
	}

	if payload == nil {
		payload = map[string]any{}
	}

	request := d.newRequest(hook.WorkflowID, models.TriggerTypeWebhook, map[string]any{
		"type":       "webhook",
		"url":        hook.URL,
		"payload":    payload,
		"receivedAt": d.clock.Now().UTC().Format(time.RFC3339),
	})

	if err := d.enqueue(ctx, request); err != nil {
		return nil, err
	}

	return request, nil
}

// HandleEventReceived adapts DispatchEvent to the event bus.
func (d *Dispatcher) HandleEventReceived(ctx context.Context, event any) error {
	received, ok := event.(*events.EventReceived)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}

	_, err := d.DispatchEvent(ctx, received.Event)

	return err
}

func (d *Dispatcher) newRequest(workflowID string, triggerType models.TriggerType, data map[string]any) *models.RunRequest {
	now := d.clock.Now().UTC()

	return &models.RunRequest{
		ID:          uuid.NewString(),
		WorkflowID:  workflowID,
		TriggerType: triggerType,
		TriggerData: data,
		Status:      models.RunRequestPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, request *models.RunRequest) error {
	if err := d.store.Enqueue(ctx, request); err != nil {
		return fmt.Errorf("failed to write run request for workflow %s: %w", request.WorkflowID, err)
	}

	d.metrics.TriggerFired(string(request.TriggerType))
	announce(ctx, d.publisher, d.logger, request)

	return nil
}

// Matches reports whether every condition holds for event. Fields are dot
// paths into the payload; a "payload." prefix is accepted. A missing field
// fails its condition.
func Matches(conditions []models.Condition, event models.Event) (bool, error) {
	data := map[string]any{
		"id":      event.ID,
		"type":    event.Type,
		"payload": event.Payload,
	}

	for _, cond := range conditions {
		actual, ok := template.Lookup(event.Payload, cond.Field)
		if !ok {
			actual, ok = template.Lookup(data, cond.Field)
		}

		if !ok {
			return false, nil
		}

		operator := cond.Operator
		if operator == "" {
			operator = "=="
		}

		matched, err := condition.Compare(template.Stringify(actual), operator, cond.Value)
		if err != nil {
			return false, err
		}

		if !matched {
			return false, nil
		}
	}

	return true, nil
}
