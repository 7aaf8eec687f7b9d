package protocol

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsStepError(t *testing.T) {
	plain := errors.New("boom")

	stepErr := AsStepError(plain, "n1")
	assert.Equal(t, "n1", stepErr.NodeID)
	assert.False(t, stepErr.Retryable)
	assert.ErrorIs(t, stepErr, plain)

	wrapped := fmt.Errorf("sending: %w", Retryable(plain))
	stepErr = AsStepError(wrapped, "n2")
	assert.True(t, stepErr.Retryable)
	assert.Equal(t, "n2", stepErr.NodeID)
	assert.Equal(t, "node n2: boom", stepErr.Error())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Retryable(errors.New("x"))))
	assert.False(t, IsRetryable(Permanent(errors.New("x"))))
	assert.False(t, IsRetryable(errors.New("x")))
}

func TestUnsupportedChannelError(t *testing.T) {
	err := UnsupportedChannelError("pager")

	assert.ErrorIs(t, err, ErrUnsupportedChannel)
	assert.Equal(t, "unsupported notification channel: pager", err.Error())
}

func TestNotificationDeliveryError(t *testing.T) {
	cause := errors.New("timeout")
	err := &NotificationDeliveryError{Channel: "slack", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "slack delivery failed: timeout", err.Error())

	err.StatusCode = 502
	assert.Equal(t, "slack delivery failed with status 502: timeout", err.Error())
}
