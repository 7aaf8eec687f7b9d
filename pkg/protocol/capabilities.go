package protocol

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/jonboulle/clockwork"
)

// Notification channels understood by a Notifier.
const (
	ChannelSlack = "slack"
	ChannelTeams = "teams"
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// EmailQueue accepts outbound email for asynchronous delivery.
type EmailQueue interface {
	Enqueue(ctx context.Context, to, subject, body string) (*models.EmailRecord, error)
}

// Notifier delivers a message to a recipient over a named channel.
type Notifier interface {
	Send(ctx context.Context, channel, recipient, message string) error
}

// ScheduleHandle cancels a recurring schedule.
type ScheduleHandle interface {
	Stop()
}

// Scheduler runs a callback on a cron expression.
type Scheduler interface {
	Schedule(expr string, fn func()) (ScheduleHandle, error)
}

// RunQueue records requests to run a workflow.
type RunQueue interface {
	Enqueue(ctx context.Context, request *models.RunRequest) error
}

// HTTPDoer is the subset of *http.Client used by handlers.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Dependencies are the capabilities shared by step handlers.
type Dependencies struct {
	Logger     *slog.Logger
	Clock      clockwork.Clock
	EmailQueue EmailQueue
	Notifier   Notifier
	HTTPClient HTTPDoer
}
