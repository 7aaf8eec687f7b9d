package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const onboardingDocument = `{
  "id": "wf-1",
  "name": "Onboarding",
  "version": 1,
  "status": "active",
  "trigger": {
    "id": "t1",
    "type": "event",
    "enabled": true,
    "config": {
      "eventType": "user.created",
      "conditions": [{"field": "plan", "operator": "==", "value": "pro"}]
    }
  },
  "nodes": [
    {"id": "n1", "type": "form", "config": {}},
    {"id": "n2", "type": "condition", "config": {"field": "variables.n1.age", "operator": ">", "value": "17"}},
    {"id": "n3", "type": "email", "config": {"to": "{{formData.n1.email}}"}},
    {"id": "n4", "type": "notification", "config": {"channel": "slack"}}
  ],
  "edges": [
    {"source": "n1", "target": "n2"},
    {"source": "n2", "target": "n3", "label": "true"},
    {"source": "n2", "target": "n4", "label": "false"}
  ]
}`

func TestDecodeWorkflow(t *testing.T) {
	wf, err := DecodeWorkflow([]byte(onboardingDocument))
	require.NoError(t, err)

	assert.Equal(t, "wf-1", wf.ID)
	assert.Equal(t, WorkflowStatusActive, wf.Status)
	assert.Equal(t, TriggerTypeEvent, wf.Trigger.Type)
	assert.Equal(t, "user.created", wf.Trigger.Config.EventType)
	assert.Len(t, wf.Nodes, 4)
	assert.Equal(t, NodeTypeCondition, wf.Nodes[1].Type)
	assert.NoError(t, wf.Validate())
}

func TestDecodeWorkflowRejectsInvalidDocuments(t *testing.T) {
	tests := map[string]string{
		"unknown node type": `{"id":"a","name":"b","nodes":[{"id":"n","type":"script"}],"edges":[]}`,
		"missing nodes":     `{"id":"a","name":"b","edges":[]}`,
		"bad operator":      `{"id":"a","name":"b","nodes":[],"edges":[],"trigger":{"config":{"conditions":[{"field":"x","operator":"~"}]}}}`,
		"not json":          `{`,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeWorkflow([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidDocument)
		})
	}
}

func TestWorkflowRoundTrip(t *testing.T) {
	original, err := DecodeWorkflow([]byte(onboardingDocument))
	require.NoError(t, err)

	encoded, err := EncodeWorkflow(original)
	require.NoError(t, err)

	decoded, err := DecodeWorkflow(encoded)
	require.NoError(t, err)

	nodeIDs := func(w *Workflow) []string {
		ids := make([]string, 0, len(w.Nodes))
		for _, n := range w.Nodes {
			ids = append(ids, n.ID)
		}

		return ids
	}

	assert.ElementsMatch(t, nodeIDs(original), nodeIDs(decoded))
	assert.ElementsMatch(t, original.Edges, decoded.Edges)
	assert.Equal(t, original.Trigger.Config, decoded.Trigger.Config)
}
