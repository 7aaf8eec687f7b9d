package models

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNodeNotFound    = errors.New("node not found")
	ErrDuplicateNode   = errors.New("duplicate node id")
	ErrInvalidBranches = errors.New("invalid branches")
	ErrInvalidGraph    = errors.New("invalid workflow graph")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and graph invariants.
func (w *Workflow) Validate() error {
	if err := validate.Struct(w); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidGraph, err)
	}

	if err := ValidateTrigger(w.Trigger); err != nil {
		return err
	}

	return ValidateGraph(w.Nodes, w.Edges)
}

// ValidateGraph checks that node ids are unique, every edge references known
// nodes, condition nodes have exactly one "true" and one "false" edge, and
// other nodes have at most one outgoing edge.
func ValidateGraph(nodes []*Node, edges []*Edge) error {
	index := make(map[string]*Node, len(nodes))

	for _, node := range nodes {
		if _, ok := index[node.ID]; ok {
			return fmt.Errorf("%w: %w: %s", ErrInvalidGraph, ErrDuplicateNode, node.ID)
		}

		index[node.ID] = node
	}

	outgoing := make(map[string][]*Edge, len(nodes))

	for _, edge := range edges {
		if _, ok := index[edge.Source]; !ok {
			return fmt.Errorf("%w: edge source %s: %w", ErrInvalidGraph, edge.Source, ErrNodeNotFound)
		}

		if _, ok := index[edge.Target]; !ok {
			return fmt.Errorf("%w: edge target %s: %w", ErrInvalidGraph, edge.Target, ErrNodeNotFound)
		}

		outgoing[edge.Source] = append(outgoing[edge.Source], edge)
	}

	for _, node := range nodes {
		out := outgoing[node.ID]

		if !node.IsBranching() {
			if len(out) > 1 {
				return fmt.Errorf("%w: node %s has %d outgoing edges", ErrInvalidGraph, node.ID, len(out))
			}

			continue
		}

		var trueEdges, falseEdges int

		for _, edge := range out {
			switch edge.Label {
			case BranchTrue:
				trueEdges++
			case BranchFalse:
				falseEdges++
			default:
				return fmt.Errorf("%w: %w: node %s has edge labelled %q", ErrInvalidGraph, ErrInvalidBranches, node.ID, edge.Label)
			}
		}

		if trueEdges != 1 || falseEdges != 1 {
			return fmt.Errorf("%w: %w: condition node %s needs one true and one false edge", ErrInvalidGraph, ErrInvalidBranches, node.ID)
		}
	}

	return nil
}

// ValidateTrigger checks that an enabled trigger carries the config its type needs.
func ValidateTrigger(trigger Trigger) error {
	if trigger.Type == "" || !trigger.Enabled {
		return nil
	}

	switch trigger.Type {
	case TriggerTypeTime:
		if trigger.Config.Schedule == "" {
			return fmt.Errorf("%w: time trigger requires a schedule", ErrInvalidGraph)
		}

		if _, err := ParseSchedule(trigger.Config.Schedule); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidGraph, err)
		}
	case TriggerTypeEvent:
		if trigger.Config.EventType == "" {
			return fmt.Errorf("%w: event trigger requires an eventType", ErrInvalidGraph)
		}
	case TriggerTypeWebhook:
		if trigger.Config.WebhookURL == "" {
			return fmt.Errorf("%w: webhook trigger requires a webhookUrl", ErrInvalidGraph)
		}
	}

	return nil
}
