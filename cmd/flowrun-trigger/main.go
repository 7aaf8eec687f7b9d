// Package main provides the flowrun trigger service: it fires cron triggers
// and turns domain events from the event bus into run requests.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/flowrun/pkg/cmd"
	"github.com/dukex/flowrun/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "flowrun-trigger",
		Usage:                 "Fire workflow triggers",
		EnableShellCompletion: true,
		Flags: append(cmd.CommonFlags(),
			&cli.DurationFlag{
				Name:    "sync-interval",
				Usage:   "How often trigger registrations are reconciled with stored workflows",
				Value:   cmd.DefaultSyncInterval,
				Sources: cli.EnvVars("SYNC_INTERVAL"),
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

	logger := log.WithModule("flowrun-trigger")
	logger.InfoContext(ctx, "Initializing flowrun trigger service")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := cmd.NewEngine(ctx, cmd.ConfigFromCommand("flowrun-trigger", command), logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := engine.Close(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "Failed to close engine", "error", err)
		}
	}()

	if err := cmd.RegisterTriggers(engine); err != nil {
		return err
	}

	if err := engine.EventBus.Subscribe(ctx); err != nil {
		return err
	}

	return cmd.RunTriggers(ctx, engine, command.Duration("sync-interval"))
}
