// Package main provides the flowrun worker, which executes queued run
// requests and delivers queued email.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/flowrun/pkg/cmd"
	"github.com/dukex/flowrun/pkg/log"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "flowrun-worker",
		Usage:                 "Start a worker to execute workflow runs",
		EnableShellCompletion: true,
		Flags: append(cmd.CommonFlags(),
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				Usage:   "How often pending run requests and email are processed",
				Value:   cmd.DefaultPollInterval,
				Sources: cli.EnvVars("POLL_INTERVAL"),
			},
		),
		Action: run,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	workerID := command.String("worker-id")
	if workerID == "" {
		workerID = "worker-" + uuid.New().String()[:8]
	}

	logger := log.WithModule("flowrun-worker").With("worker_id", workerID)
	logger.InfoContext(ctx, "Initializing flowrun worker")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	config := cmd.ConfigFromCommand("flowrun-worker", command)

	engine, err := cmd.NewEngine(ctx, config, logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := engine.Close(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "Failed to close engine", "error", err)
		}
	}()

	wake, err := cmd.RegisterWorker(engine)
	if err != nil {
		return err
	}

	if err := engine.EventBus.Subscribe(ctx); err != nil {
		return err
	}

	return cmd.RunWorker(ctx, engine, wake, command.Duration("poll-interval"), config.SMTP)
}
