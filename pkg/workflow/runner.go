package workflow

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
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// WorkflowReader loads workflow definitions.
type WorkflowReader interface {
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
}

// RunRequestStore is the queue of pending run requests.
type RunRequestStore interface {
	PendingRunRequests(ctx context.Context) ([]*models.RunRequest, error)
	SaveRunRequest(ctx context.Context, request *models.RunRequest) error
}

// RunInput starts one run of a workflow.
type RunInput struct {
	WorkflowID  string
	TriggerData map[string]any
	FormData    map[string]map[string]any
}

// Runner glues the executor to the state machine: it initializes the run
// state, persists every step and finalizes the state.
type Runner struct {
	workflows     WorkflowReader
	requests      RunRequestStore
	executor      *Executor
	states        *StateMachine
	publisher     eventbus.EventPublisher
	metrics       *metrics.Metrics
	clock         clockwork.Clock
	logger        *slog.Logger
	pausePollTime time.Duration
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithPublisher publishes run completion and failure events.
func WithPublisher(publisher eventbus.EventPublisher) RunnerOption {
	return func(r *Runner) {
		r.publisher = publisher
	}
}

// WithRunRequests enables ProcessPending.
func WithRunRequests(requests RunRequestStore) RunnerOption {
	return func(r *Runner) {
		r.requests = requests
	}
}

// WithPausePoll sets how often a paused run re-reads its state.
func WithPausePoll(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.pausePollTime = d
	}
}

func WithRunnerMetrics(m *metrics.Metrics) RunnerOption {
	return func(r *Runner) {
		r.metrics = m
	}
}

func WithRunnerClock(clock clockwork.Clock) RunnerOption {
	return func(r *Runner) {
		r.clock = clock
	}
}

func NewRunner(workflows WorkflowReader, executor *Executor, states *StateMachine, logger *slog.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		workflows:     workflows,
		executor:      executor,
		states:        states,
		clock:         clockwork.NewRealClock(),
		logger:        logger.With("module", "workflow_runner"),
		pausePollTime: time.Second,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run executes the workflow from its start node. The returned state is the
// final persisted state; a non-nil error means the run failed or could not start.
func (r *Runner) Run(ctx context.Context, input RunInput) (*models.WorkflowState, error) {
	workflow, err := r.workflows.WorkflowByID(ctx, input.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow %s: %w", input.WorkflowID, err)
	}

	if !workflow.IsExecutable() {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowArchived, workflow.ID)
	}

	runID := generateRunID()
	logger := r.logger.With("workflow_id", workflow.ID, "run_id", runID)

	if _, err := r.states.Initialize(ctx, workflow.ID, runID); err != nil {
		return nil, err
	}

	r.metrics.RunStarted()
	started := r.clock.Now()

	logger.InfoContext(ctx, "starting workflow run", "nodes", len(workflow.Nodes))

	wctx := models.NewWorkflowContext(input.TriggerData, input.FormData)
	observer := &runObserver{runner: r, workflowID: workflow.ID, runID: runID}

	_, execErr := r.executor.ExecuteObserved(ctx, workflow.Nodes, workflow.Edges, workflow.StartNodeID(), wctx, observer)
	if execErr == nil {
		execErr = r.waitWhilePaused(ctx, workflow.ID, runID)
	}

	duration := r.clock.Since(started)

	if execErr != nil {
		return r.fail(ctx, logger, workflow.ID, runID, execErr, duration)
	}

	state, err := r.states.Complete(ctx, workflow.ID, runID)
	if err != nil {
		return nil, err
	}

	r.metrics.RunFinished(string(models.RunStatusCompleted), duration)
	logger.InfoContext(ctx, "workflow run completed", "steps", len(state.History), "duration", duration)

	r.publish(ctx, workflow.ID, events.RunCompleted{
		BaseEvent: events.NewBaseEvent(events.RunCompletedEvent, workflow.ID),
		RunID:     runID,
		Variables: state.Variables,
		Duration:  duration,
	})

	return state, nil
}

func (r *Runner) fail(ctx context.Context, logger *slog.Logger, workflowID, runID string, cause error, duration time.Duration) (*models.WorkflowState, error) {
	logger.ErrorContext(ctx, "workflow run failed", "error", cause)

	if err := r.waitWhilePaused(ctx, workflowID, runID); err != nil {
		logger.WarnContext(ctx, "failing run without resume", "error", err)
	}

	// The terminal write must land even when ctx is cancelled.
	state, err := r.states.Fail(context.WithoutCancel(ctx), workflowID, runID, cause)
	if err != nil {
		return nil, errors.Join(cause, err)
	}

	r.metrics.RunFinished(string(models.RunStatusFailed), duration)

	failed := events.RunFailed{
		BaseEvent: events.NewBaseEvent(events.RunFailedEvent, workflowID),
		RunID:     runID,
		Error:     cause.Error(),
		Duration:  duration,
	}

	var execErr *WorkflowExecutionError
	if errors.As(cause, &execErr) {
		failed.NodeID = execErr.NodeID
	}

	r.publish(context.WithoutCancel(ctx), workflowID, failed)

	return state, cause
}

func (r *Runner) publish(ctx context.Context, key string, event eventbus.Event) {
	if r.publisher == nil {
		return
	}

	if err := r.publisher.Publish(ctx, key, event); err != nil {
		r.logger.ErrorContext(ctx, "failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

// waitWhilePaused blocks while the stored state of runID is paused.
func (r *Runner) waitWhilePaused(ctx context.Context, workflowID, runID string) error {
	for {
		state, err := r.states.Get(ctx, workflowID)
		if err != nil {
			return err
		}

		if err := ownedBy(state, "Wait", runID); err != nil {
			return err
		}

		switch state.Status {
		case models.RunStatusRunning:
			return nil
		case models.RunStatusPaused:
		default:
			return &StateError{Op: "Wait", WorkflowID: workflowID, From: state.Status, Err: ErrStateImmutable}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.clock.After(r.pausePollTime):
		}
	}
}

// ProcessPending runs every pending run request in creation order and records
// its outcome. It returns the number of requests processed.
func (r *Runner) ProcessPending(ctx context.Context) (int, error) {
	if r.requests == nil {
		return 0, errors.New("run request store not configured")
	}

	pending, err := r.requests.PendingRunRequests(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending run requests: %w", err)
	}

	processed := 0

	for _, request := range pending {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}

		r.processRequest(ctx, request)
		processed++
	}

	return processed, nil
}

func (r *Runner) processRequest(ctx context.Context, request *models.RunRequest) {
	logger := r.logger.With("run_request_id", request.ID, "workflow_id", request.WorkflowID)

	request.Status = models.RunRequestRunning
	request.UpdatedAt = r.clock.Now().UTC()

	if err := r.requests.SaveRunRequest(ctx, request); err != nil {
		logger.ErrorContext(ctx, "failed to claim run request", "error", err)

		return
	}

	state, runErr := r.Run(ctx, RunInput{WorkflowID: request.WorkflowID, TriggerData: request.TriggerData})

	request.Status = models.RunRequestCompleted
	if state != nil {
		request.RunID = state.RunID
	}

	if runErr != nil {
		request.Status = models.RunRequestFailed
		request.Error = runErr.Error()
	}

	request.UpdatedAt = r.clock.Now().UTC()

	if err := r.requests.SaveRunRequest(context.WithoutCancel(ctx), request); err != nil {
		logger.ErrorContext(ctx, "failed to record run request outcome", "error", err)
	}
}

type runObserver struct {
	runner     *Runner
	workflowID string
	runID      string
}

func (o *runObserver) NodeStarted(ctx context.Context, _ *models.Node) error {
	return o.runner.waitWhilePaused(ctx, o.workflowID, o.runID)
}

func (o *runObserver) NodeFinished(ctx context.Context, entry models.ExecutionHistoryEntry, variables map[string]any) error {
	_, err := o.runner.states.RecordStep(context.WithoutCancel(ctx), o.workflowID, o.runID, entry, variables)

	return err
}

func generateRunID() string {
	return "run-" + uuid.NewString()[:8]
}
