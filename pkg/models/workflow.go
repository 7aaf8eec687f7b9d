// Package models defines the domain models for graph-based workflow execution.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusDraft    WorkflowStatus = "draft"    // Editable, triggers not installed
	WorkflowStatusActive   WorkflowStatus = "active"   // Triggers installed, executable
	WorkflowStatusArchived WorkflowStatus = "archived" // Kept for audit, not executable
)

// Workflow is a declarative graph of typed steps plus the trigger that starts it.
type Workflow struct {
	ID          string         `json:"id"          validate:"required"`
	Name        string         `json:"name"        validate:"required,min=1"`
	Description string         `json:"description"`
	Trigger     Trigger        `json:"trigger"`
	Nodes       []*Node        `json:"nodes"       validate:"dive"`
	Edges       []*Edge        `json:"edges"       validate:"dive"`
	Version     int            `json:"version"     validate:"min=1"`
	Status      WorkflowStatus `json:"status"      validate:"required,oneof=draft active archived"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// IsExecutable reports whether runs may be started for the workflow.
func (w *Workflow) IsExecutable() bool {
	return w.Status != WorkflowStatusArchived
}

// NodeByID returns the node with the given id.
func (w *Workflow) NodeByID(id string) (*Node, bool) {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node, true
		}
	}

	return nil, false
}

// StartNodeID returns the first node, in declaration order, that has no
// incoming edge. Graphs where every node has an incoming edge start at the
// first declared node.
func (w *Workflow) StartNodeID() string {
	if len(w.Nodes) == 0 {
		return ""
	}

	targets := make(map[string]struct{}, len(w.Edges))
	for _, edge := range w.Edges {
		targets[edge.Target] = struct{}{}
	}

	for _, node := range w.Nodes {
		if _, ok := targets[node.ID]; !ok {
			return node.ID
		}
	}

	return w.Nodes[0].ID
}

// Clone returns a deep enough copy to be mutated and saved independently.
func (w *Workflow) Clone() *Workflow {
	clone := *w
	clone.Nodes = make([]*Node, 0, len(w.Nodes))

	for _, node := range w.Nodes {
		n := *node
		n.Config = cloneMap(node.Config)
		clone.Nodes = append(clone.Nodes, &n)
	}

	clone.Edges = make([]*Edge, 0, len(w.Edges))

	for _, edge := range w.Edges {
		e := *edge
		clone.Edges = append(clone.Edges, &e)
	}

	clone.Trigger.Config.Conditions = append([]Condition(nil), w.Trigger.Config.Conditions...)

	return &clone
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}

	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}

	return out
}
