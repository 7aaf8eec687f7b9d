package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/dukex/flowrun/pkg/template"
	"github.com/jonboulle/clockwork"
)

type NotificationHandler struct {
	notifier protocol.Notifier
	clock    clockwork.Clock
}

func (h *NotificationHandler) Execute(ctx context.Context, node *models.Node, wctx *models.WorkflowContext) (protocol.StepResult, error) {
	channel := strings.ToLower(strings.TrimSpace(node.ConfigString("channel")))
	recipient := strings.TrimSpace(template.ResolveContext(node.ConfigString("recipient"), wctx))
	message := template.ResolveContext(node.ConfigString("message"), wctx)

	if recipient == "" {
		return protocol.StepResult{}, protocol.Permanent(fmt.Errorf("%w: recipient", protocol.ErrMissingConfig))
	}

	if err := h.notifier.Send(ctx, channel, recipient, message); err != nil {
		if errors.Is(err, protocol.ErrUnsupportedChannel) || errors.Is(err, protocol.ErrMissingConfig) {
			return protocol.StepResult{}, protocol.Permanent(err)
		}

		return protocol.StepResult{}, protocol.Retryable(err)
	}

	return protocol.StepResult{Output: map[string]any{
		"channel":   channel,
		"recipient": recipient,
		"sentAt":    h.clock.Now().UTC().Format(time.RFC3339),
	}}, nil
}
