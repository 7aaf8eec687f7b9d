// Package email provides the email step, which queues an outbound message.
package email

import (
	"fmt"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/jonboulle/clockwork"
)

type EmailNodeFactory struct{}

func NewEmailNodeFactory() protocol.NodeFactory {
	return &EmailNodeFactory{}
}

func (f *EmailNodeFactory) Create(deps protocol.Dependencies) (protocol.StepHandler, error) {
	if deps.EmailQueue == nil {
		return nil, fmt.Errorf("email node: %w: email queue", protocol.ErrMissingConfig)
	}

	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return NewEmailHandler(deps.EmailQueue, clock), nil
}

func (f *EmailNodeFactory) Type() models.NodeType {
	return models.NodeTypeEmail
}

func (f *EmailNodeFactory) Name() string {
	return "Send Email"
}

func (f *EmailNodeFactory) Description() string {
	return "Queues an email for delivery. Recipient, subject and body support {{path}} placeholders"
}

func (f *EmailNodeFactory) Schema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "Send Email",
		Properties: map[string]*models.Property{
			"to": {
				Type:        "string",
				Description: "Recipient address, e.g. {{formData.signup.email}}",
			},
			"subject": {Type: "string", Description: "Subject line"},
			"body":    {Type: "string", Description: "Message body"},
			"maxRetries": {
				Type:        "integer",
				Description: "Retries before the step fails",
				Default:     3,
			},
		},
		Required: []string{"to"},
	}
}
