package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/protocol"
)

var testLogger = slog.New(slog.DiscardHandler)

type handlerMap map[models.NodeType]protocol.StepHandler

func (h handlerMap) Handler(nodeType models.NodeType) (protocol.StepHandler, bool) {
	handler, ok := h[nodeType]

	return handler, ok
}

// flakyHandler fails with err for the first failures calls, then succeeds.
type flakyHandler struct {
	mu       sync.Mutex
	calls    int
	failures int
	err      error
}

func (f *flakyHandler) Execute(_ context.Context, node *models.Node, _ *models.WorkflowContext) (protocol.StepResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.calls <= f.failures {
		return protocol.StepResult{}, f.err
	}

	return protocol.StepResult{Output: map[string]any{"node": node.ID, "calls": f.calls}}, nil
}

func outputHandler() protocol.StepHandler {
	return protocol.StepHandlerFunc(func(_ context.Context, node *models.Node, _ *models.WorkflowContext) (protocol.StepResult, error) {
		return protocol.StepResult{Output: map[string]any{"node": node.ID}}, nil
	})
}

func branchHandler(branch string) protocol.StepHandler {
	return protocol.StepHandlerFunc(func(context.Context, *models.Node, *models.WorkflowContext) (protocol.StepResult, error) {
		return protocol.StepResult{Output: map[string]any{"result": branch == models.BranchTrue}, Branch: branch}, nil
	})
}

func fastRetries() *RetryManager {
	return NewRetryManager(testLogger,
		WithBackoff(time.Millisecond, time.Millisecond),
		WithJitter(func(time.Duration) time.Duration { return 0 }),
	)
}

var errTransient = errors.New("transient")

func newTestExecutor(t *testing.T, handlers handlerMap, opts ...ExecutorOption) *Executor {
	t.Helper()

	opts = append([]ExecutorOption{WithRetryManager(fastRetries())}, opts...)

	return NewExecutor(handlers, testLogger, opts...)
}
