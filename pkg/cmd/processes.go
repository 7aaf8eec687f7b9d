package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/flowrun/pkg/events"
	"github.com/dukex/flowrun/pkg/integrations/email"
	"github.com/dukex/flowrun/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultSyncInterval = 30 * time.Second
)

// NewAPIApp builds the HTTP API over e.
func NewAPIApp(e *Engine) *fiber.App {
	handlers := web.NewAPIHandlers(
		e.Workflows,
		e.Nodes,
		e.Runner,
		e.States,
		e.Dispatcher,
		validator.New(validator.WithRequiredStructEnabled()),
		e.Registry,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("flowrun API")
	})

	web.Mount(app, handlers, e.Metrics.Handler())

	return app
}

// RegisterWorker makes the worker process run requests as soon as a
// RunRequested event arrives. It returns the wake-up channel for RunWorker.
func RegisterWorker(e *Engine) (<-chan struct{}, error) {
	wake := make(chan struct{}, 1)

	err := e.EventBus.Handle(events.RunRequestedEvent, func(context.Context, any) error {
		select {
		case wake <- struct{}{}:
		default:
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register run request handler: %w", err)
	}

	return wake, nil
}

// RunWorker processes pending run requests every pollInterval, or earlier
// when wake fires, and delivers queued email when smtp has a host. It blocks
// until ctx is done.
func RunWorker(ctx context.Context, e *Engine, wake <-chan struct{}, pollInterval time.Duration, smtp email.SMTPConfig) error {
	logger := e.logger.With("module", "worker")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := e.Clock.NewTicker(pollInterval)
		defer ticker.Stop()

		for {
			processed, err := e.Runner.ProcessPending(ctx)
			if err != nil && ctx.Err() == nil {
				logger.ErrorContext(ctx, "failed to process run requests", "error", err)
			}

			if processed > 0 {
				logger.InfoContext(ctx, "run requests processed", "count", processed)
			}

			select {
			case <-ctx.Done():
				return nil
			case <-ticker.Chan():
			case <-wake:
			}
		}
	})

	if smtp.Host == "" {
		logger.WarnContext(ctx, "SMTP host not configured, queued email will not be delivered")
	} else {
		processor := email.NewProcessor(e.Repository, email.NewSMTPSender(smtp), e.logger,
			email.WithProcessorClock(e.Clock),
			email.WithProcessorMetrics(e.Metrics),
		)

		g.Go(func() error {
			return processor.Run(ctx, pollInterval)
		})
	}

	return g.Wait()
}

// RegisterTriggers routes EventReceived events on the bus to the dispatcher.
func RegisterTriggers(e *Engine) error {
	if err := e.EventBus.Handle(events.EventReceivedEvent, e.Dispatcher.HandleEventReceived); err != nil {
		return fmt.Errorf("failed to register event handler: %w", err)
	}

	return nil
}

// RunTriggers starts the cron scheduler and reconciles trigger registrations
// with the stored workflows every syncInterval until ctx is done.
func RunTriggers(ctx context.Context, e *Engine, syncInterval time.Duration) error {
	logger := e.logger.With("module", "trigger_service")

	e.Scheduler.Start()

	ticker := e.Clock.NewTicker(syncInterval)
	defer ticker.Stop()

	for {
		if err := e.SyncTriggers(ctx); err != nil && ctx.Err() == nil {
			logger.WarnContext(ctx, "trigger sync incomplete", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		}
	}
}
