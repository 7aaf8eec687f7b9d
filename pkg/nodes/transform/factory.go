// Package transform provides the transform step, a closed set of built-in
// operations over a resolved input.
package transform

import (
	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/protocol"
)

// TransformNodeFactory creates transform step handlers.
type TransformNodeFactory struct{}

func NewTransformNodeFactory() protocol.NodeFactory {
	return &TransformNodeFactory{}
}

func (f *TransformNodeFactory) Create(protocol.Dependencies) (protocol.StepHandler, error) {
	return &TransformHandler{}, nil
}

func (f *TransformNodeFactory) Type() models.NodeType {
	return models.NodeTypeTransform
}

func (f *TransformNodeFactory) Name() string {
	return "Transform"
}

func (f *TransformNodeFactory) Description() string {
	return "Applies a built-in operation to a resolved input, or renders a Go template against the run context"
}

func (f *TransformNodeFactory) Schema() *models.JSONSchema {
	operations := make([]any, 0, len(Operations))
	for _, op := range Operations {
		operations = append(operations, op)
	}

	return &models.JSONSchema{
		Type:  "object",
		Title: "Transform",
		Properties: map[string]*models.Property{
			"operation": {Type: "string", Enum: operations},
			"input": {
				Type:        "string",
				Description: "Input with {{path}} placeholders. Ignored by the template operation",
			},
			"template": {
				Type:        "string",
				Description: "Go text template rendered against {trigger, formData, variables, history}, e.g. {{ .variables.fetch.body | upper }}",
			},
		},
		Required: []string{"operation"},
	}
}
