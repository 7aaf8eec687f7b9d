package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearWorkflow() *Workflow {
	return &Workflow{
		ID:      "wf-1",
		Name:    "Onboarding",
		Version: 1,
		Status:  WorkflowStatusDraft,
		Nodes: []*Node{
			{ID: "form", Type: NodeTypeForm},
			{ID: "check", Type: NodeTypeCondition, Config: map[string]any{"field": "variables.form.age", "operator": ">=", "value": "18"}},
			{ID: "adult", Type: NodeTypeEmail},
			{ID: "minor", Type: NodeTypeNotification},
		},
		Edges: []*Edge{
			{Source: "form", Target: "check"},
			{Source: "check", Target: "adult", Label: BranchTrue},
			{Source: "check", Target: "minor", Label: BranchFalse},
		},
	}
}

func TestValidateGraph(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(w *Workflow)
		wantErr error
	}{
		{
			name:   "valid branching graph",
			mutate: func(w *Workflow) {},
		},
		{
			name: "duplicate node id",
			mutate: func(w *Workflow) {
				w.Nodes = append(w.Nodes, &Node{ID: "form", Type: NodeTypeForm})
			},
			wantErr: ErrDuplicateNode,
		},
		{
			name: "edge to unknown node",
			mutate: func(w *Workflow) {
				w.Edges = append(w.Edges, &Edge{Source: "adult", Target: "ghost"})
			},
			wantErr: ErrNodeNotFound,
		},
		{
			name: "condition missing false branch",
			mutate: func(w *Workflow) {
				w.Edges = w.Edges[:2]
			},
			wantErr: ErrInvalidBranches,
		},
		{
			name: "condition with unlabelled edge",
			mutate: func(w *Workflow) {
				w.Edges[2].Label = ""
			},
			wantErr: ErrInvalidBranches,
		},
		{
			name: "non-condition node with two successors",
			mutate: func(w *Workflow) {
				w.Edges = append(w.Edges, &Edge{Source: "form", Target: "minor"})
			},
			wantErr: ErrInvalidGraph,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := linearWorkflow()
			tt.mutate(w)

			err := ValidateGraph(w.Nodes, w.Edges)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrInvalidGraph)
		})
	}
}

func TestWorkflowValidate(t *testing.T) {
	w := linearWorkflow()
	require.NoError(t, w.Validate())

	w.Name = ""
	assert.ErrorIs(t, w.Validate(), ErrInvalidGraph)

	w = linearWorkflow()
	w.Trigger = Trigger{Type: TriggerTypeTime, Enabled: true, Config: TriggerConfig{Schedule: "not a cron"}}
	assert.ErrorIs(t, w.Validate(), ErrInvalidGraph)

	w.Trigger.Config.Schedule = "*/5 * * * *"
	assert.NoError(t, w.Validate())

	w.Trigger.Enabled = false
	w.Trigger.Config.Schedule = ""
	assert.NoError(t, w.Validate(), "disabled triggers are not checked")
}

func TestStartNodeID(t *testing.T) {
	w := linearWorkflow()
	assert.Equal(t, "form", w.StartNodeID())

	w.Edges = append(w.Edges, &Edge{Source: "adult", Target: "form"})
	w.Edges = append(w.Edges, &Edge{Source: "minor", Target: "form"})
	assert.Equal(t, "form", w.StartNodeID(), "falls back to the first node")

	assert.Equal(t, "", (&Workflow{}).StartNodeID())
}

func TestClone(t *testing.T) {
	w := linearWorkflow()
	clone := w.Clone()

	clone.Nodes[1].Config["value"] = "21"
	clone.Edges[0].Target = "adult"

	assert.Equal(t, "18", w.Nodes[1].Config["value"])
	assert.Equal(t, "check", w.Edges[0].Target)
}

func TestNodeConfigInt(t *testing.T) {
	node := &Node{Config: map[string]any{"a": 2, "b": float64(5), "c": "x"}}

	v, ok := node.ConfigInt("a")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	v, ok = node.ConfigInt("b")
	assert.True(t, ok)
	assert.Equal(t, 5, v)

	_, ok = node.ConfigInt("c")
	assert.False(t, ok)
}

func TestWorkflowContextData(t *testing.T) {
	wctx := NewWorkflowContext(map[string]any{"type": "cron"}, map[string]map[string]any{"f1": {"name": "Ada"}})
	wctx.SetVariables(map[string]any{"f1": map[string]any{"name": "Ada"}})
	wctx.History = append(wctx.History, ExecutionHistoryEntry{NodeID: "f1", Status: HistoryStatusSuccess, Timestamp: time.Unix(0, 0).UTC()})

	data := wctx.Data()
	assert.Equal(t, map[string]any{"type": "cron"}, data["trigger"])
	assert.Equal(t, map[string]any{"name": "Ada"}, data["formData"].(map[string]any)["f1"])
	assert.Len(t, data["history"], 1)
}

func TestRunStatusIsTerminal(t *testing.T) {
	assert.False(t, RunStatusRunning.IsTerminal())
	assert.False(t, RunStatusPaused.IsTerminal())
	assert.True(t, RunStatusCompleted.IsTerminal())
	assert.True(t, RunStatusFailed.IsTerminal())
}

func TestNextRun(t *testing.T) {
	from := time.Date(2024, 1, 1, 10, 7, 0, 0, time.UTC)

	next, err := NextRun("*/15 * * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 15, 0, 0, time.UTC), next)

	_, err = NextRun("61 * * * *", from)
	assert.Error(t, err)
}
