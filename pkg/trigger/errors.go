package trigger

import (
	"errors"
	"fmt"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
)

var (
	ErrMissingSchedule  = errors.New("time trigger requires a schedule")
	ErrMissingEventType = errors.New("event trigger requires an event type")
	ErrMissingWebhook   = errors.New("webhook trigger requires a webhook url")
	ErrUnknownTrigger   = errors.New("unknown trigger type")

	// ErrWebhookNotRegistered matches persistence.ErrNotFound.
	ErrWebhookNotRegistered = fmt.Errorf("webhook %w", persistence.ErrNotFound)
	ErrEventTypeRequired    = errors.New("event type is required")
)

// TriggerSetupError reports a trigger that could not be installed. The
// workflow itself is unaffected; its registration stays absent.
type TriggerSetupError struct {
	WorkflowID  string
	TriggerType models.TriggerType
	Err         error
}

func (e *TriggerSetupError) Error() string {
	return fmt.Sprintf("failed to set up %s trigger for workflow %s: %v", e.TriggerType, e.WorkflowID, e.Err)
}

func (e *TriggerSetupError) Unwrap() error {
	return e.Err
}
