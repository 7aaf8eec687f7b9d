package workflow

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
	DefaultMaxDelay   = 30 * time.Second
	DefaultMaxJitter  = time.Second
)

// RetryManager decides whether a failed step is re-invoked and sleeps the
// backoff delay before it is.
type RetryManager struct {
	clock     clockwork.Clock
	logger    *slog.Logger
	baseDelay time.Duration
	maxDelay  time.Duration
	maxJitter time.Duration
	jitter    func(max time.Duration) time.Duration
}

// RetryOption configures a RetryManager.
type RetryOption func(*RetryManager)

// WithRetryClock sets the clock delays are waited on.
func WithRetryClock(clock clockwork.Clock) RetryOption {
	return func(m *RetryManager) {
		m.clock = clock
	}
}

// WithBackoff overrides the base and maximum delay.
func WithBackoff(base, maxDelay time.Duration) RetryOption {
	return func(m *RetryManager) {
		m.baseDelay = base
		m.maxDelay = maxDelay
	}
}

// WithJitter replaces the jitter source. fn receives the maximum jitter.
func WithJitter(fn func(max time.Duration) time.Duration) RetryOption {
	return func(m *RetryManager) {
		m.jitter = fn
	}
}

func NewRetryManager(logger *slog.Logger, opts ...RetryOption) *RetryManager {
	m := &RetryManager{
		clock:     clockwork.NewRealClock(),
		logger:    logger.With("module", "retry_manager"),
		baseDelay: DefaultBaseDelay,
		maxDelay:  DefaultMaxDelay,
		maxJitter: DefaultMaxJitter,
		jitter: func(max time.Duration) time.Duration {
			if max <= 0 {
				return 0
			}

			return rand.N(max)
		},
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Delay returns min(base*2^attempt, max) plus jitter in [0, maxJitter).
func (m *RetryManager) Delay(attempt int) time.Duration {
	delay := m.maxDelay

	if attempt < 32 {
		if exp := m.baseDelay * time.Duration(int64(1)<<attempt); exp > 0 && exp < m.maxDelay {
			delay = exp
		}
	}

	return delay + m.jitter(m.maxJitter)
}

// HandleError returns true after waiting the backoff delay when err is a
// retryable *protocol.StepError and attempt < maxRetries. The wait is aborted,
// returning false, when ctx is done.
func (m *RetryManager) HandleError(ctx context.Context, err error, attempt, maxRetries int) bool {
	var stepErr *protocol.StepError
	if !errors.As(err, &stepErr) || !stepErr.Retryable {
		return false
	}

	if attempt >= maxRetries {
		m.logger.WarnContext(ctx, "retries exhausted", "node_id", stepErr.NodeID, "attempt", attempt, "max_retries", maxRetries)

		return false
	}

	delay := m.Delay(attempt)

	m.logger.InfoContext(ctx, "retrying step", "node_id", stepErr.NodeID, "attempt", attempt, "delay", delay, "error", stepErr.Err)

	timer := m.clock.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
	}

	stepErr.RetryCount++

	return true
}
