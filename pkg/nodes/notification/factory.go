// Package notification provides the notification step, which delivers a
// message over slack, teams, email or sms.
package notification

import (
	"fmt"
	"strings"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/jonboulle/clockwork"
)

type NotificationNodeFactory struct{}

func NewNotificationNodeFactory() protocol.NodeFactory {
	return &NotificationNodeFactory{}
}

func (f *NotificationNodeFactory) Create(deps protocol.Dependencies) (protocol.StepHandler, error) {
	if deps.Notifier == nil {
		return nil, fmt.Errorf("notification node: %w: notifier", protocol.ErrMissingConfig)
	}

	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &NotificationHandler{notifier: deps.Notifier, clock: clock}, nil
}

func (f *NotificationNodeFactory) Type() models.NodeType {
	return models.NodeTypeNotification
}

func (f *NotificationNodeFactory) Name() string {
	return "Notification"
}

func (f *NotificationNodeFactory) Description() string {
	return "Sends a message to a recipient on Slack, Teams, email or SMS"
}

func (f *NotificationNodeFactory) Schema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "Notification",
		Properties: map[string]*models.Property{
			"channel": {
				Type: "string",
				Description: "One of " + strings.Join([]string{
					protocol.ChannelSlack, protocol.ChannelTeams, protocol.ChannelEmail, protocol.ChannelSMS,
				}, ", ") + " (case-insensitive)",
			},
			"recipient":  {Type: "string", Description: "Slack channel, email address or phone number"},
			"message":    {Type: "string"},
			"maxRetries": {Type: "integer", Default: 3},
		},
		Required: []string{"channel", "recipient"},
	}
}
