// Package scheduler runs callbacks on cron expressions.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/robfig/cron/v3"
)

// CronScheduler implements protocol.Scheduler on robfig/cron. Overlapping
// fires of the same entry are skipped and panics are recovered.
type CronScheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// Option configures a CronScheduler.
type Option func(*options)

type options struct {
	location *time.Location
}

// WithLocation evaluates schedules in loc instead of the local time zone.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		o.location = loc
	}
}

func NewCronScheduler(logger *slog.Logger, opts ...Option) *CronScheduler {
	o := &options{location: time.Local}
	for _, opt := range opts {
		opt(o)
	}

	logger = logger.With("module", "cron_scheduler")
	cronLogger := &slogAdapter{logger: logger}

	return &CronScheduler{
		logger: logger,
		cron: cron.New(
			cron.WithLocation(o.location),
			cron.WithLogger(cronLogger),
			cron.WithChain(
				cron.Recover(cronLogger),
				cron.SkipIfStillRunning(cronLogger),
			),
		),
	}
}

// Schedule registers fn to run on expr. Entries may be added before or after
// Start.
func (s *CronScheduler) Schedule(expr string, fn func()) (protocol.ScheduleHandle, error) {
	schedule, err := models.ParseSchedule(expr)
	if err != nil {
		return nil, err
	}

	id := s.cron.Schedule(schedule, cron.FuncJob(fn))

	s.logger.Debug("scheduled", "expr", expr, "entry_id", id)

	return &handle{cron: s.cron, id: id}, nil
}

// Entries returns the number of active schedules.
func (s *CronScheduler) Entries() int {
	return len(s.cron.Entries())
}

// Next returns the next fire time of handle, or false when it was stopped.
func (s *CronScheduler) Next(h protocol.ScheduleHandle) (time.Time, bool) {
	entryHandle, ok := h.(*handle)
	if !ok {
		return time.Time{}, false
	}

	entry := s.cron.Entry(entryHandle.id)
	if !entry.Valid() {
		return time.Time{}, false
	}

	return entry.Next, true
}

func (s *CronScheduler) Start() {
	s.logger.Info("starting cron scheduler")
	s.cron.Start()
}

// Stop stops firing new jobs and waits for running ones until ctx is done.
func (s *CronScheduler) Stop(ctx context.Context) error {
	s.logger.Info("stopping cron scheduler")

	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("cron scheduler stop: %w", ctx.Err())
	}
}

type handle struct {
	cron *cron.Cron
	id   cron.EntryID
	once sync.Once
}

func (h *handle) Stop() {
	h.once.Do(func() {
		h.cron.Remove(h.id)
	})
}

type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, keysAndValues ...any) {
	a.logger.Debug(msg, keysAndValues...)
}

func (a *slogAdapter) Error(err error, msg string, keysAndValues ...any) {
	a.logger.Error(msg, append(keysAndValues, "error", err)...)
}
