package form

import (
	"context"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/protocol"
)

// FormHandler outputs wctx.FormData[node.ID], or an empty object when nothing
// was submitted.
type FormHandler struct{}

func (h *FormHandler) Execute(_ context.Context, node *models.Node, wctx *models.WorkflowContext) (protocol.StepResult, error) {
	output := map[string]any{}

	if wctx != nil {
		for k, v := range wctx.FormData[node.ID] {
			output[k] = v
		}
	}

	return protocol.StepResult{Output: output}, nil
}
