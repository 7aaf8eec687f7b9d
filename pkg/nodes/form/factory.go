// Package form provides the form step, which exposes data submitted for a node.
package form

import (
	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/protocol"
)

// FormNodeFactory creates form step handlers.
type FormNodeFactory struct{}

func NewFormNodeFactory() protocol.NodeFactory {
	return &FormNodeFactory{}
}

func (f *FormNodeFactory) Create(protocol.Dependencies) (protocol.StepHandler, error) {
	return &FormHandler{}, nil
}

func (f *FormNodeFactory) Type() models.NodeType {
	return models.NodeTypeForm
}

func (f *FormNodeFactory) Name() string {
	return "Form"
}

func (f *FormNodeFactory) Description() string {
	return "Outputs the form data submitted for this node when the run was started"
}

func (f *FormNodeFactory) Schema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:        "object",
		Title:       "Form",
		Description: "Form fields shown to the user. Submitted values are keyed by node id.",
		Properties: map[string]*models.Property{
			"fields": {
				Type:        "array",
				Description: "Field definitions rendered by the client",
				Items: &models.Property{
					Type: "object",
					Properties: map[string]*models.Property{
						"name":     {Type: "string"},
						"label":    {Type: "string"},
						"required": {Type: "boolean", Default: false},
					},
				},
			},
			"maxRetries": {Type: "integer", Description: "Retries before the step fails", Default: 3},
		},
	}
}
