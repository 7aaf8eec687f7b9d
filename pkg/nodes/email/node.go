package email

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

var ErrMissingRecipient = fmt.Errorf("%w: to", protocol.ErrMissingConfig)

// EmailHandler resolves the message fields and hands them to the email queue.
type EmailHandler struct {
	queue protocol.EmailQueue
	clock clockwork.Clock
}

func NewEmailHandler(queue protocol.EmailQueue, clock clockwork.Clock) *EmailHandler {
	return &EmailHandler{queue: queue, clock: clock}
}

func (h *EmailHandler) Execute(ctx context.Context, node *models.Node, wctx *models.WorkflowContext) (protocol.StepResult, error) {
	to := strings.TrimSpace(template.ResolveContext(node.ConfigString("to"), wctx))
	if to == "" {
		return protocol.StepResult{}, protocol.Permanent(ErrMissingRecipient)
	}

	subject := template.ResolveContext(node.ConfigString("subject"), wctx)
	body := template.ResolveContext(node.ConfigString("body"), wctx)

	if _, err := h.queue.Enqueue(ctx, to, subject, body); err != nil {
		if errors.Is(err, context.Canceled) {
			return protocol.StepResult{}, protocol.Permanent(err)
		}

		return protocol.StepResult{}, protocol.Retryable(fmt.Errorf("failed to queue email: %w", err))
	}

	return protocol.StepResult{Output: map[string]any{
		"to":      to,
		"subject": subject,
		"sentAt":  h.clock.Now().UTC().Format(time.RFC3339),
	}}, nil
}
