// Package trigger installs workflow triggers and turns trigger fires, domain
// events and inbound webhooks into run requests.
package trigger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/flowrun/pkg/eventbus"
	"github.com/dukex/flowrun/pkg/events"
	"github.com/dukex/flowrun/pkg/metrics"
	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// RegistrationState is the lifecycle state of a workflow's trigger.
type RegistrationState string

const (
	StateAbsent    RegistrationState = "absent"
	StateScheduled RegistrationState = "scheduled"
	StateDisabled  RegistrationState = "disabled"
)

// Store persists trigger registrations and the run requests they produce.
type Store interface {
	protocol.RunQueue
	SaveEventSubscription(ctx context.Context, sub *models.EventSubscription) error
	DeleteEventSubscription(ctx context.Context, workflowID string) error
	SaveWebhook(ctx context.Context, hook *models.WebhookRegistration) error
	DeleteWebhook(ctx context.Context, workflowID string) error
}

type registration struct {
	state       RegistrationState
	triggerType models.TriggerType
	version     int
	handle      protocol.ScheduleHandle
}

// Manager owns the trigger registration of every workflow. One mutex
// serializes each teardown and install pair.
type Manager struct {
	scheduler protocol.Scheduler
	store     Store
	publisher eventbus.EventPublisher
	metrics   *metrics.Metrics
	clock     clockwork.Clock
	logger    *slog.Logger

	mu            sync.Mutex
	registrations map[string]*registration
}

// Option configures a Manager.
type Option func(*Manager)

// WithPublisher announces every run request written by a cron fire.
func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(m *Manager) {
		m.publisher = publisher
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

func NewManager(scheduler protocol.Scheduler, store Store, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		scheduler:     scheduler,
		store:         store,
		clock:         clockwork.NewRealClock(),
		logger:        logger.With("module", "trigger_manager"),
		registrations: make(map[string]*registration),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// SetupTrigger replaces the registration of workflow with one built from its
// current trigger. Failures leave the registration absent and are returned as
// *TriggerSetupError for logging; they never invalidate the workflow.
func (m *Manager) SetupTrigger(ctx context.Context, workflow *models.Workflow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.setup(ctx, workflow)
}

func (m *Manager) setup(ctx context.Context, workflow *models.Workflow) error {
	m.teardown(ctx, workflow.ID)
	defer m.reportScheduled()

	trigger := workflow.Trigger
	logger := m.logger.With("workflow_id", workflow.ID, "trigger_type", trigger.Type)

	if !trigger.Enabled {
		m.registrations[workflow.ID] = &registration{state: StateDisabled, triggerType: trigger.Type, version: workflow.Version}
		logger.InfoContext(ctx, "trigger disabled")

		return nil
	}

	reg, err := m.install(ctx, workflow)
	if err != nil {
		setupErr := &TriggerSetupError{WorkflowID: workflow.ID, TriggerType: trigger.Type, Err: err}
		logger.ErrorContext(ctx, "trigger setup failed", "error", setupErr)

		return setupErr
	}

	m.registrations[workflow.ID] = reg
	logger.InfoContext(ctx, "trigger installed")

	return nil
}

func (m *Manager) install(ctx context.Context, workflow *models.Workflow) (*registration, error) {
	trigger := workflow.Trigger
	reg := &registration{state: StateScheduled, triggerType: trigger.Type, version: workflow.Version}
	now := m.clock.Now().UTC()

	switch trigger.Type {
	case models.TriggerTypeTime:
		if trigger.Config.Schedule == "" {
			return nil, ErrMissingSchedule
		}

		workflowID := workflow.ID

		handle, err := m.scheduler.Schedule(trigger.Config.Schedule, func() {
			m.executeTrigger(context.Background(), workflowID)
		})
		if err != nil {
			return nil, err
		}

		reg.handle = handle
	case models.TriggerTypeEvent:
		if trigger.Config.EventType == "" {
			return nil, ErrMissingEventType
		}

		err := m.store.SaveEventSubscription(ctx, &models.EventSubscription{
			WorkflowID: workflow.ID,
			EventType:  trigger.Config.EventType,
			Conditions: append([]models.Condition{}, trigger.Config.Conditions...),
			CreatedAt:  now,
		})
		if err != nil {
			return nil, err
		}
	case models.TriggerTypeWebhook:
		if trigger.Config.WebhookURL == "" {
			return nil, ErrMissingWebhook
		}

		err := m.store.SaveWebhook(ctx, &models.WebhookRegistration{
			WorkflowID: workflow.ID,
			URL:        trigger.Config.WebhookURL,
			CreatedAt:  now,
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrUnknownTrigger
	}

	return reg, nil
}

// teardown stops the cron handle, deletes stored registrations and removes
// the entry. Missing records are not an error.
func (m *Manager) teardown(ctx context.Context, workflowID string) {
	if reg, ok := m.registrations[workflowID]; ok && reg.handle != nil {
		reg.handle.Stop()
	}

	delete(m.registrations, workflowID)

	if err := m.store.DeleteEventSubscription(ctx, workflowID); err != nil {
		m.logger.WarnContext(ctx, "failed to delete event subscription", "workflow_id", workflowID, "error", err)
	}

	if err := m.store.DeleteWebhook(ctx, workflowID); err != nil {
		m.logger.WarnContext(ctx, "failed to delete webhook registration", "workflow_id", workflowID, "error", err)
	}
}

// Cleanup removes every registration of workflowID.
func (m *Manager) Cleanup(ctx context.Context, workflowID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.teardown(ctx, workflowID)
	m.reportScheduled()

	m.logger.InfoContext(ctx, "trigger cleaned up", "workflow_id", workflowID)
}

// State reports the registration state of workflowID.
func (m *Manager) State(workflowID string) RegistrationState {
	m.mu.Lock()
	defer m.mu.Unlock()

	reg, ok := m.registrations[workflowID]
	if !ok {
		return StateAbsent
	}

	return reg.state
}

// Sync reconciles registrations with workflows: active workflows whose
// version changed are set up again, everything else is cleaned up.
func (m *Manager) Sync(ctx context.Context, workflows []*models.Workflow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := make(map[string]bool, len(workflows))

	var errs []error

	for _, workflow := range workflows {
		if workflow.Status != models.WorkflowStatusActive {
			continue
		}

		active[workflow.ID] = true

		if reg, ok := m.registrations[workflow.ID]; ok && reg.version == workflow.Version {
			continue
		}

		if err := m.setup(ctx, workflow); err != nil {
			errs = append(errs, err)
		}
	}

	for workflowID := range m.registrations {
		if !active[workflowID] {
			m.teardown(ctx, workflowID)
		}
	}

	m.reportScheduled()

	return errors.Join(errs...)
}

// Shutdown stops every cron handle. Stored registrations are kept so another
// process can resume them.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for workflowID, reg := range m.registrations {
		if reg.handle != nil {
			reg.handle.Stop()
		}

		delete(m.registrations, workflowID)
	}

	m.reportScheduled()
	m.logger.InfoContext(ctx, "trigger manager stopped")
}

// executeTrigger writes a pending run request for a cron fire. It never runs
// the workflow itself.
func (m *Manager) executeTrigger(ctx context.Context, workflowID string) {
	now := m.clock.Now().UTC()

	request := &models.RunRequest{
		ID:          uuid.NewString(),
		WorkflowID:  workflowID,
		TriggerType: models.TriggerTypeTime,
		TriggerData: map[string]any{
			"type":      "cron",
			"timestamp": now.Format(time.RFC3339),
		},
		Status:    models.RunRequestPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.store.Enqueue(ctx, request); err != nil {
		m.logger.ErrorContext(ctx, "failed to write run request", "workflow_id", workflowID, "error", err)

		return
	}

	m.metrics.TriggerFired(string(models.TriggerTypeTime))
	m.logger.InfoContext(ctx, "trigger fired", "workflow_id", workflowID, "run_request_id", request.ID)

	announce(ctx, m.publisher, m.logger, request)
}

func (m *Manager) reportScheduled() {
	scheduled := 0

	for _, reg := range m.registrations {
		if reg.state == StateScheduled {
			scheduled++
		}
	}

	m.metrics.SetTriggersScheduled(scheduled)
}

func announce(ctx context.Context, publisher eventbus.EventPublisher, logger *slog.Logger, request *models.RunRequest) {
	if publisher == nil {
		return
	}

	event := events.RunRequested{
		BaseEvent:    events.NewBaseEvent(events.RunRequestedEvent, request.WorkflowID),
		RunRequestID: request.ID,
		TriggerType:  request.TriggerType,
	}

	if err := publisher.Publish(ctx, request.WorkflowID, event); err != nil {
		logger.ErrorContext(ctx, "failed to publish run request", "run_request_id", request.ID, "error", err)
	}
}
