// Package condition provides the condition step, which compares a resolved
// field against a value and selects the "true" or "false" branch.
package condition

import (
	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/protocol"
)

// ConditionNodeFactory creates condition step handlers.
type ConditionNodeFactory struct{}

// NewConditionNodeFactory creates a new condition node factory.
func NewConditionNodeFactory() protocol.NodeFactory {
	return &ConditionNodeFactory{}
}

func (f *ConditionNodeFactory) Create(protocol.Dependencies) (protocol.StepHandler, error) {
	return &ConditionHandler{}, nil
}

func (f *ConditionNodeFactory) Type() models.NodeType {
	return models.NodeTypeCondition
}

func (f *ConditionNodeFactory) Name() string {
	return "Condition"
}

func (f *ConditionNodeFactory) Description() string {
	return "Compares a context field with a value and routes to the true or false branch"
}

func (f *ConditionNodeFactory) Schema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "Condition",
		Properties: map[string]*models.Property{
			"field": {
				Type:        "string",
				Description: "Dot path into the run context, e.g. variables.score.total",
			},
			"operator": {
				Type:    "string",
				Enum:    []any{"==", "!=", ">", "<", ">=", "<="},
				Default: "==",
			},
			"value": {
				Description: "Value to compare against. Numeric comparison is used when both sides are numbers",
			},
		},
		Required: []string{"field", "operator"},
	}
}
