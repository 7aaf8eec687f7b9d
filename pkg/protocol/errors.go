package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedChannel = errors.New("unsupported notification channel")
	ErrMissingConfig      = errors.New("missing required config")
)

// StepError is the normalized failure of a step. Retryable says whether the
// step may be re-invoked; RetryCount counts the retries already performed.
type StepError struct {
	NodeID     string
	Retryable  bool
	RetryCount int
	Err        error
}

func (e *StepError) Error() string {
	if e.NodeID == "" {
		return e.Err.Error()
	}

	return fmt.Sprintf("node %s: %v", e.NodeID, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Retryable wraps err as a transient step failure.
func Retryable(err error) *StepError {
	return &StepError{Retryable: true, Err: err}
}

// Permanent wraps err as a step failure that must not be retried.
func Permanent(err error) *StepError {
	return &StepError{Retryable: false, Err: err}
}

// AsStepError normalizes err into a *StepError for nodeID. Errors that are not
// already step errors are treated as permanent.
func AsStepError(err error, nodeID string) *StepError {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		if stepErr.NodeID == "" {
			stepErr.NodeID = nodeID
		}

		return stepErr
	}

	return &StepError{NodeID: nodeID, Err: err}
}

// IsRetryable reports whether err carries a retryable StepError.
func IsRetryable(err error) bool {
	var stepErr *StepError

	return errors.As(err, &stepErr) && stepErr.Retryable
}

// NotificationDeliveryError reports a failed delivery on a channel.
type NotificationDeliveryError struct {
	Channel    string
	StatusCode int
	Err        error
}

func (e *NotificationDeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s delivery failed with status %d: %v", e.Channel, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("%s delivery failed: %v", e.Channel, e.Err)
}

func (e *NotificationDeliveryError) Unwrap() error {
	return e.Err
}

// UnsupportedChannelError names the channel that was requested.
func UnsupportedChannelError(channel string) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedChannel, channel)
}
