package transform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/dukex/flowrun/pkg/template"
)

const (
	OpUppercase = "uppercase"
	OpLowercase = "lowercase"
	OpTrim      = "trim"
	OpLength    = "length"
	OpNumber    = "number"
	OpJSON      = "json"
	OpTemplate  = "template"
)

// Operations lists every supported operation.
var Operations = []string{OpUppercase, OpLowercase, OpTrim, OpLength, OpNumber, OpJSON, OpTemplate}

var ErrUnknownOperation = errors.New("unknown transform operation")

// TransformHandler outputs {result} for the configured operation.
type TransformHandler struct{}

func (h *TransformHandler) Execute(_ context.Context, node *models.Node, wctx *models.WorkflowContext) (protocol.StepResult, error) {
	operation := node.ConfigString("operation")

	if operation == OpTemplate {
		if wctx == nil {
			wctx = models.NewWorkflowContext(nil, nil)
		}

		result, err := template.RenderWithContext(node.ConfigString("template"), wctx)
		if err != nil {
			return protocol.StepResult{}, protocol.Permanent(fmt.Errorf("transformation failed: %w", err))
		}

		return protocol.StepResult{Output: map[string]any{"result": result}}, nil
	}

	input := template.ResolveContext(node.ConfigString("input"), wctx)

	result, err := Apply(operation, input)
	if err != nil {
		return protocol.StepResult{}, protocol.Permanent(err)
	}

	return protocol.StepResult{Output: map[string]any{"result": result}}, nil
}

// Apply runs a string operation on input.
func Apply(operation, input string) (any, error) {
	switch operation {
	case OpUppercase:
		return strings.ToUpper(input), nil
	case OpLowercase:
		return strings.ToLower(input), nil
	case OpTrim:
		return strings.TrimSpace(input), nil
	case OpLength:
		return utf8.RuneCountInString(input), nil
	case OpNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
		if err != nil {
			return nil, fmt.Errorf("input %q is not a number: %w", input, err)
		}

		return n, nil
	case OpJSON:
		var out any
		if err := json.Unmarshal([]byte(input), &out); err != nil {
			return nil, fmt.Errorf("input is not valid JSON: %w", err)
		}

		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, operation)
	}
}
