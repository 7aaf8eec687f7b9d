package cmd

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/flowrun/pkg/integrations/notification"
	"github.com/dukex/flowrun/pkg/protocol"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewHTTPClient returns the client shared by outbound integrations. Requests
// carry the trace context of the calling step.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// NewNotifier registers a sender for every channel that has credentials.
// Email always goes through queue.
func NewNotifier(config Config, client *http.Client, queue protocol.EmailQueue, logger *slog.Logger) *notification.Service {
	notifier := notification.NewService(logger)

	if config.SlackToken != "" {
		notifier.Register(protocol.ChannelSlack, &notification.SlackSender{
			Client: client,
			Token:  config.SlackToken,
		})
	}

	if config.TeamsWebhookURL != "" {
		notifier.Register(protocol.ChannelTeams, &notification.TeamsSender{
			Client:     client,
			WebhookURL: config.TeamsWebhookURL,
		})
	}

	if config.TwilioAccountSID != "" && config.TwilioAuthToken != "" {
		notifier.Register(protocol.ChannelSMS, &notification.TwilioSender{
			Client:     client,
			AccountSID: config.TwilioAccountSID,
			AuthToken:  config.TwilioAuthToken,
			From:       config.TwilioFrom,
		})
	}

	if queue != nil {
		notifier.Register(protocol.ChannelEmail, &notification.EmailSender{Queue: queue})
	}

	return notifier
}
