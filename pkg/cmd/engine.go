package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/flowrun/pkg/eventbus"
	"github.com/dukex/flowrun/pkg/integrations/email"
	"github.com/dukex/flowrun/pkg/integrations/notification"
	"github.com/dukex/flowrun/pkg/metrics"
	"github.com/dukex/flowrun/pkg/otelhelper"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/dukex/flowrun/pkg/registry"
	"github.com/dukex/flowrun/pkg/scheduler"
	"github.com/dukex/flowrun/pkg/services"
	"github.com/dukex/flowrun/pkg/trigger"
	"github.com/dukex/flowrun/pkg/workflow"
	"github.com/jonboulle/clockwork"
)

// Engine holds every component of a flowrun process, wired together.
type Engine struct {
	Store      persistence.Store
	Repository *persistence.Repository
	EventBus   eventbus.EventBus
	Metrics    *metrics.Metrics
	Clock      clockwork.Clock

	EmailQueue *email.Queue
	Notifier   *notification.Service
	Registry   *registry.Registry

	Executor   *workflow.Executor
	States     *workflow.StateMachine
	Runner     *workflow.Runner
	Scheduler  *scheduler.CronScheduler
	Triggers   *trigger.Manager
	Dispatcher *trigger.Dispatcher

	Workflows *services.Workflow
	Nodes     *services.Node

	shutdownTracer otelhelper.ShutdownFunc
	logger         *slog.Logger
}

// NewEngine opens the store and event bus selected by config and builds the
// rest of the components on top of them.
func NewEngine(ctx context.Context, config Config, logger *slog.Logger) (*Engine, error) {
	e := &Engine{
		Clock:   clockwork.NewRealClock(),
		Metrics: metrics.New(),
		logger:  logger,
	}

	tracer := otelhelper.NoopTracer()

	if config.Tracing {
		t, shutdown, err := otelhelper.NewTracer(ctx, config.ServiceName)
		if err != nil {
			return nil, fmt.Errorf("failed to create tracer: %w", err)
		}

		tracer, e.shutdownTracer = t, shutdown
	}

	store, err := NewStore(ctx, logger, config.DatabaseURL)
	if err != nil {
		return nil, err
	}

	e.Store = store
	e.Repository = persistence.NewRepository(store)

	bus, err := NewEventBus(config.EventBus, config.KafkaBrokers, config.ServiceName, logger)
	if err != nil {
		_ = store.Close(ctx)

		return nil, err
	}

	e.EventBus = bus

	client := NewHTTPClient(config.HTTPTimeout)
	e.EmailQueue = email.NewQueue(e.Repository, e.Clock, logger)
	e.Notifier = NewNotifier(config, client, e.EmailQueue, logger)

	e.Registry, err = NewRegistry(logger, config.PluginsPath, protocol.Dependencies{
		Logger:     logger,
		Clock:      e.Clock,
		EmailQueue: e.EmailQueue,
		Notifier:   e.Notifier,
		HTTPClient: client,
	})
	if err != nil {
		_ = e.Close(ctx)

		return nil, fmt.Errorf("failed to build node registry: %w", err)
	}

	e.Executor = workflow.NewExecutor(e.Registry, logger,
		workflow.WithClock(e.Clock),
		workflow.WithRetryManager(workflow.NewRetryManager(logger, workflow.WithRetryClock(e.Clock))),
		workflow.WithTracer(tracer),
		workflow.WithMetrics(e.Metrics),
	)
	e.States = workflow.NewStateMachine(e.Repository, logger, e.Clock)
	e.Runner = workflow.NewRunner(e.Repository, e.Executor, e.States, logger,
		workflow.WithPublisher(bus),
		workflow.WithRunRequests(e.Repository),
		workflow.WithRunnerMetrics(e.Metrics),
		workflow.WithRunnerClock(e.Clock),
	)

	e.Scheduler = scheduler.NewCronScheduler(logger)
	e.Triggers = trigger.NewManager(e.Scheduler, e.Repository, logger,
		trigger.WithPublisher(bus),
		trigger.WithMetrics(e.Metrics),
		trigger.WithClock(e.Clock),
	)
	e.Dispatcher = trigger.NewDispatcher(e.Repository, logger,
		trigger.WithDispatchPublisher(bus),
		trigger.WithDispatchMetrics(e.Metrics),
		trigger.WithDispatchClock(e.Clock),
	)

	e.Workflows = services.NewWorkflow(e.Repository, logger,
		services.WithNodeValidator(e.Registry),
		services.WithTriggers(e.Triggers),
		services.WithStates(e.States),
		services.WithHealthCheck(store.HealthCheck),
		services.WithClock(e.Clock),
	)
	e.Nodes = services.NewNode(e.Workflows)

	return e, nil
}

// SyncTriggers installs the trigger of every stored workflow that is active
// and removes the rest.
func (e *Engine) SyncTriggers(ctx context.Context) error {
	workflows, err := e.Repository.Workflows(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workflows: %w", err)
	}

	return e.Triggers.Sync(ctx, workflows)
}

// Close stops the triggers and the scheduler, then releases the event bus, the store and the
// tracer.
func (e *Engine) Close(ctx context.Context) error {
	var errs []error

	if e.Triggers != nil {
		e.Triggers.Shutdown(ctx)
	}

	if e.Scheduler != nil {
		errs = append(errs, e.Scheduler.Stop(ctx))
	}

	if e.EventBus != nil {
		errs = append(errs, e.EventBus.Close())
	}

	if e.Store != nil {
		errs = append(errs, e.Store.Close(ctx))
	}

	if e.shutdownTracer != nil {
		errs = append(errs, e.shutdownTracer(ctx))
	}

	if err := errors.Join(errs...); err != nil {
		e.logger.ErrorContext(ctx, "engine shutdown failed", "error", err)

		return err
	}

	return nil
}
