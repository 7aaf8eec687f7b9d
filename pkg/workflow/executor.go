package workflow

import (
	"context"
	"log/slog"

	"github.com/dukex/flowrun/pkg/metrics"
	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/otelhelper"
	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// HandlerLookup resolves the step handler for a node type.
type HandlerLookup interface {
	Handler(nodeType models.NodeType) (protocol.StepHandler, bool)
}

// Observer is notified at node boundaries. Returning an error aborts the run.
type Observer interface {
	NodeStarted(ctx context.Context, node *models.Node) error
	NodeFinished(ctx context.Context, entry models.ExecutionHistoryEntry, variables map[string]any) error
}

// Executor walks a workflow graph one node at a time.
type Executor struct {
	handlers HandlerLookup
	retry    *RetryManager
	clock    clockwork.Clock
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *metrics.Metrics
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

func WithClock(clock clockwork.Clock) ExecutorOption {
	return func(e *Executor) {
		e.clock = clock
	}
}

func WithRetryManager(retry *RetryManager) ExecutorOption {
	return func(e *Executor) {
		e.retry = retry
	}
}

func WithTracer(tracer trace.Tracer) ExecutorOption {
	return func(e *Executor) {
		e.tracer = tracer
	}
}

func WithMetrics(m *metrics.Metrics) ExecutorOption {
	return func(e *Executor) {
		e.metrics = m
	}
}

func NewExecutor(handlers HandlerLookup, logger *slog.Logger, opts ...ExecutorOption) *Executor {
	e := &Executor{
		handlers: handlers,
		clock:    clockwork.NewRealClock(),
		logger:   logger.With("module", "workflow_executor"),
		tracer:   otelhelper.NoopTracer(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.retry == nil {
		e.retry = NewRetryManager(logger, WithRetryClock(e.clock))
	}

	return e
}

// ExecuteWorkflow runs the graph from startNodeID and returns the final context.
func (e *Executor) ExecuteWorkflow(
	ctx context.Context,
	nodes []*models.Node,
	edges []*models.Edge,
	startNodeID string,
	wctx *models.WorkflowContext,
) (*models.WorkflowContext, error) {
	return e.ExecuteObserved(ctx, nodes, edges, startNodeID, wctx, nil)
}

// ExecuteObserved is ExecuteWorkflow with an observer notified around every node.
func (e *Executor) ExecuteObserved(
	ctx context.Context,
	nodes []*models.Node,
	edges []*models.Edge,
	startNodeID string,
	wctx *models.WorkflowContext,
	observer Observer,
) (*models.WorkflowContext, error) {
	if wctx == nil {
		wctx = models.NewWorkflowContext(nil, nil)
	}

	if wctx.Variables == nil {
		wctx.Variables = map[string]any{}
	}

	nodeIndex := make(map[string]*models.Node, len(nodes))
	for _, node := range nodes {
		nodeIndex[node.ID] = node
	}

	outgoing := make(map[string][]*models.Edge, len(nodes))
	for _, edge := range edges {
		outgoing[edge.Source] = append(outgoing[edge.Source], edge)
	}

	currentNodeID := startNodeID

	for currentNodeID != "" {
		node, ok := nodeIndex[currentNodeID]
		if !ok {
			return wctx, &WorkflowExecutionError{NodeID: currentNodeID, Err: ErrNodeNotFound}
		}

		handler, ok := e.handlers.Handler(node.Type)
		if !ok {
			return wctx, &WorkflowExecutionError{NodeID: node.ID, Err: ErrUnsupportedNodeType}
		}

		if observer != nil {
			if err := observer.NodeStarted(ctx, node); err != nil {
				return wctx, &WorkflowExecutionError{NodeID: node.ID, Err: err}
			}
		}

		result, entry, stepErr := e.executeNode(ctx, handler, node, wctx)

		wctx.History = append(wctx.History, entry)

		if stepErr == nil {
			next := make(map[string]any, len(wctx.Variables)+1)
			for k, v := range wctx.Variables {
				next[k] = v
			}

			next[node.ID] = result.Output
			wctx.Variables = next
		}

		if observer != nil {
			if err := observer.NodeFinished(ctx, entry, wctx.Variables); err != nil {
				return wctx, &WorkflowExecutionError{NodeID: node.ID, Err: err}
			}
		}

		if stepErr != nil {
			return wctx, &WorkflowExecutionError{NodeID: node.ID, Err: stepErr}
		}

		nextNodeID, err := nextNode(node, result, outgoing[node.ID])
		if err != nil {
			return wctx, &WorkflowExecutionError{NodeID: node.ID, Err: err}
		}

		currentNodeID = nextNodeID
	}

	return wctx, nil
}

// executeNode invokes the handler until it succeeds or the retry manager gives up.
func (e *Executor) executeNode(
	ctx context.Context,
	handler protocol.StepHandler,
	node *models.Node,
	wctx *models.WorkflowContext,
) (protocol.StepResult, models.ExecutionHistoryEntry, *protocol.StepError) {
	logger := e.logger.With("node_id", node.ID, "node_type", node.Type)

	maxRetries := DefaultMaxRetries
	if configured, ok := node.ConfigInt("maxRetries"); ok && configured >= 0 {
		maxRetries = configured
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.node",
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, string(node.Type)),
	)
	defer span.End()

	started := e.clock.Now()

	for attempt := 0; ; attempt++ {
		logger.DebugContext(ctx, "executing node", "attempt", attempt)

		result, err := handler.Execute(ctx, node, wctx)
		if err == nil {
			e.metrics.ObserveStep(string(node.Type), string(models.HistoryStatusSuccess), e.clock.Since(started))

			return result, models.ExecutionHistoryEntry{
				NodeID:    node.ID,
				NodeType:  node.Type,
				Timestamp: e.clock.Now().UTC(),
				Status:    models.HistoryStatusSuccess,
				Output:    result.Output,
				Attempts:  attempt + 1,
			}, nil
		}

		stepErr := protocol.AsStepError(err, node.ID)
		if stepErr.RetryCount < attempt {
			stepErr.RetryCount = attempt
		}

		if e.retry.HandleError(ctx, stepErr, attempt, maxRetries) {
			e.metrics.IncRetry(string(node.Type))

			continue
		}

		logger.ErrorContext(ctx, "node failed", "attempt", attempt, "retryable", stepErr.Retryable, "error", stepErr)
		otelhelper.SetError(span, stepErr, attribute.Int(otelhelper.AttemptKey, attempt))
		e.metrics.ObserveStep(string(node.Type), string(models.HistoryStatusFailure), e.clock.Since(started))

		return protocol.StepResult{}, models.ExecutionHistoryEntry{
			NodeID:    node.ID,
			NodeType:  node.Type,
			Timestamp: e.clock.Now().UTC(),
			Status:    models.HistoryStatusFailure,
			Error:     stepErr.Error(),
			Attempts:  attempt + 1,
		}, stepErr
	}
}

func nextNode(node *models.Node, result protocol.StepResult, edges []*models.Edge) (string, error) {
	if node.IsBranching() {
		for _, edge := range edges {
			if edge.Label == result.Branch {
				return edge.Target, nil
			}
		}

		return "", ErrBranchNotFound
	}

	if len(edges) == 0 {
		return "", nil
	}

	return edges[0].Target, nil
}
