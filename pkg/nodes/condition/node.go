package condition

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/dukex/flowrun/pkg/template"
)

var ErrUnknownOperator = errors.New("unknown condition operator")

// ConditionHandler evaluates field <operator> value. Only field is resolved
// against the workflow context; value is compared literally.
type ConditionHandler struct{}

func (h *ConditionHandler) Execute(_ context.Context, node *models.Node, wctx *models.WorkflowContext) (protocol.StepResult, error) {
	field := strings.TrimSpace(node.ConfigString("field"))
	if field == "" {
		return protocol.StepResult{}, protocol.Permanent(fmt.Errorf("%w: field", protocol.ErrMissingConfig))
	}

	if !strings.Contains(field, "{{") {
		field = "{{" + field + "}}"
	}

	actual := template.ResolveContext(field, wctx)
	expected := template.Stringify(node.Config["value"])

	result, err := Compare(actual, node.ConfigString("operator"), expected)
	if err != nil {
		return protocol.StepResult{}, protocol.Permanent(err)
	}

	branch := models.BranchFalse
	if result {
		branch = models.BranchTrue
	}

	return protocol.StepResult{Output: map[string]any{"result": result}, Branch: branch}, nil
}

// Compare applies operator to left and right. Both sides are compared as
// numbers when both parse as float64, otherwise as strings.
func Compare(left, operator, right string) (bool, error) {
	l, lerr := strconv.ParseFloat(strings.TrimSpace(left), 64)
	r, rerr := strconv.ParseFloat(strings.TrimSpace(right), 64)

	if lerr == nil && rerr == nil {
		return compareOrdered(l, operator, r)
	}

	return compareOrdered(left, operator, right)
}

func compareOrdered[T float64 | string](left T, operator string, right T) (bool, error) {
	switch operator {
	case "==":
		return left == right, nil
	case "!=":
		return left != right, nil
	case ">":
		return left > right, nil
	case "<":
		return left < right, nil
	case ">=":
		return left >= right, nil
	case "<=":
		return left <= right, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownOperator, operator)
	}
}
