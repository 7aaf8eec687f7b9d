// Package main runs the API, the worker and the trigger service in one
// process. With the default in-process event bus this is the only way the
// three share events.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/dukex/flowrun/pkg/cmd"
	"github.com/dukex/flowrun/pkg/log"
	cli "github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "flowrun",
		Usage:                 "Run the flowrun API, worker and trigger service together",
		EnableShellCompletion: true,
		Flags: append(cmd.CommonFlags(),
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				Usage:   "How often pending run requests and email are processed",
				Value:   cmd.DefaultPollInterval,
				Sources: cli.EnvVars("POLL_INTERVAL"),
			},
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

	logger := log.WithModule("flowrun")
	logger.InfoContext(ctx, "Initializing flowrun")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	config := cmd.ConfigFromCommand("flowrun", command)

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

	if err := cmd.RegisterTriggers(engine); err != nil {
		return err
	}

	if err := engine.EventBus.Subscribe(ctx); err != nil {
		return err
	}

	app := cmd.NewAPIApp(engine)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.Listen(":" + strconv.Itoa(command.Int("port")))
	})

	g.Go(func() error {
		<-ctx.Done()

		return app.Shutdown()
	})

	g.Go(func() error {
		return cmd.RunWorker(ctx, engine, wake, command.Duration("poll-interval"), config.SMTP)
	})

	g.Go(func() error {
		return cmd.RunTriggers(ctx, engine, command.Duration("sync-interval"))
	})

	return g.Wait()
}
