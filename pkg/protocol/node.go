// Package protocol defines the contracts between the workflow engine and its
// pluggable step handlers and side-effecting capabilities.
package protocol

import (
	"context"

	"github.com/dukex/flowrun/pkg/models"
)

// StepResult is what a handler returns for a successful step.
type StepResult struct {
	Output any
	// Branch selects the outgoing edge label for branching nodes.
	Branch string
}

// StepHandler executes one node type.
type StepHandler interface {
	Execute(ctx context.Context, node *models.Node, wctx *models.WorkflowContext) (StepResult, error)
}

// StepHandlerFunc adapts a function to StepHandler.
type StepHandlerFunc func(ctx context.Context, node *models.Node, wctx *models.WorkflowContext) (StepResult, error)

func (f StepHandlerFunc) Execute(ctx context.Context, node *models.Node, wctx *models.WorkflowContext) (StepResult, error) {
	return f(ctx, node, wctx)
}

// NodeFactory builds the handler for a node type and provides metadata about it.
type NodeFactory interface {
	// Create builds the handler with the shared capabilities.
	Create(deps Dependencies) (StepHandler, error)

	// Type returns the node type this factory handles
	Type() models.NodeType

	// Name returns the human-readable name for this node type
	Name() string

	// Description returns a description of what this node does
	Description() string

	// Schema returns the JSON schema for configuring this node
	Schema() *models.JSONSchema
}
