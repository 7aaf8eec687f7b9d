package services

import (
	"context"
	"fmt"
	"slices"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/google/uuid"
)

// CreateNodeRequest represents the request to add a node to a workflow graph.
type CreateNodeRequest struct {
	ID     string
	Type   models.NodeType
	Config map[string]any
}

// Node edits the graph of draft workflows one node at a time. Every change
// is a new workflow version.
type Node struct {
	workflows *Workflow
}

// NewNode creates a new node service.
func NewNode(workflows *Workflow) *Node {
	return &Node{workflows: workflows}
}

// CreateNode appends a node to the workflow. An empty id gets a generated one.
func (n *Node) CreateNode(ctx context.Context, workflowID string, req *CreateNodeRequest) (*models.Node, error) {
	node := &models.Node{ID: req.ID, Type: req.Type, Config: req.Config}
	if node.ID == "" {
		node.ID = uuid.New().String()
	}

	if node.Config == nil {
		node.Config = make(map[string]any)
	}

	err := n.edit(ctx, workflowID, func(workflow *models.Workflow) error {
		if _, ok := workflow.NodeByID(node.ID); ok {
			return fmt.Errorf("%w: %s", ErrNodeExists, node.ID)
		}

		workflow.Nodes = append(workflow.Nodes, node)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return node, nil
}

// GetNode retrieves a specific node from the specified workflow.
func (n *Node) GetNode(ctx context.Context, workflowID, nodeID string) (*models.Node, error) {
	workflow, err := n.workflows.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	node, ok := workflow.NodeByID(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrNodeNotFound, nodeID)
	}

	return node, nil
}

// UpdateNode replaces the config of a node, preserving its type.
func (n *Node) UpdateNode(ctx context.Context, workflowID, nodeID string, config map[string]any) (*models.Node, error) {
	var updated *models.Node

	err := n.edit(ctx, workflowID, func(workflow *models.Workflow) error {
		node, ok := workflow.NodeByID(nodeID)
		if !ok {
			return fmt.Errorf("%w: %s", models.ErrNodeNotFound, nodeID)
		}

		node.Config = config
		if node.Config == nil {
			node.Config = make(map[string]any)
		}

		updated = node

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteNode deletes a node and every edge touching it.
func (n *Node) DeleteNode(ctx context.Context, workflowID, nodeID string) error {
	return n.edit(ctx, workflowID, func(workflow *models.Workflow) error {
		if _, ok := workflow.NodeByID(nodeID); !ok {
			return fmt.Errorf("%w: %s", models.ErrNodeNotFound, nodeID)
		}

		workflow.Nodes = slices.DeleteFunc(workflow.Nodes, func(node *models.Node) bool {
			return node.ID == nodeID
		})
		workflow.Edges = slices.DeleteFunc(workflow.Edges, func(edge *models.Edge) bool {
			return edge.Source == nodeID || edge.Target == nodeID
		})

		return nil
	})
}

func (n *Node) edit(ctx context.Context, workflowID string, fn func(*models.Workflow) error) error {
	workflow, err := n.workflows.FetchByID(ctx, workflowID)
	if err != nil {
		return err
	}

	if workflow.Status != models.WorkflowStatusDraft {
		return fmt.Errorf("%w: workflow is %s", ErrCannotModifyNodes, workflow.Status)
	}

	if err := fn(workflow); err != nil {
		return err
	}

	_, err = n.workflows.Update(ctx, workflowID, workflow)

	return err
}
