package models

import "time"

// HistoryStatus is the outcome of one step execution.
type HistoryStatus string

const (
	HistoryStatusSuccess HistoryStatus = "success"
	HistoryStatusFailure HistoryStatus = "failure"
)

// ExecutionHistoryEntry is the audit record of one step execution.
type ExecutionHistoryEntry struct {
	NodeID    string        `json:"nodeId"`
	NodeType  NodeType      `json:"nodeType,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Status    HistoryStatus `json:"status"`
	Output    any           `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
	Attempts  int           `json:"attempts,omitempty"`
}

// WorkflowContext is the mutable bag carried through a single run.
type WorkflowContext struct {
	Trigger   map[string]any            `json:"trigger"`
	FormData  map[string]map[string]any `json:"formData"`
	Variables map[string]any            `json:"variables"`
	History   []ExecutionHistoryEntry   `json:"history"`
}

// NewWorkflowContext returns a context with every map initialized.
func NewWorkflowContext(trigger map[string]any, formData map[string]map[string]any) *WorkflowContext {
	if trigger == nil {
		trigger = map[string]any{}
	}

	if formData == nil {
		formData = map[string]map[string]any{}
	}

	return &WorkflowContext{
		Trigger:   trigger,
		FormData:  formData,
		Variables: map[string]any{},
		History:   []ExecutionHistoryEntry{},
	}
}

// Data exposes the context to the variable resolver under its interchange keys.
func (c *WorkflowContext) Data() map[string]any {
	formData := make(map[string]any, len(c.FormData))
	for k, v := range c.FormData {
		formData[k] = v
	}

	history := make([]any, 0, len(c.History))
	for _, entry := range c.History {
		history = append(history, map[string]any{
			"nodeId":    entry.NodeID,
			"timestamp": entry.Timestamp.Format(time.RFC3339Nano),
			"status":    string(entry.Status),
			"output":    entry.Output,
			"error":     entry.Error,
		})
	}

	return map[string]any{
		"trigger":   c.Trigger,
		"formData":  formData,
		"variables": c.Variables,
		"history":   history,
	}
}

// SetVariables replaces the variables map wholesale with a copy of vars.
func (c *WorkflowContext) SetVariables(vars map[string]any) {
	next := make(map[string]any, len(vars))
	for k, v := range vars {
		next[k] = v
	}

	c.Variables = next
}
