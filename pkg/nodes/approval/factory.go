// Package approval provides the approval step. Approvals are granted
// automatically and recorded in the run history.
package approval

import (
	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/jonboulle/clockwork"
)

type ApprovalNodeFactory struct{}

func NewApprovalNodeFactory() protocol.NodeFactory {
	return &ApprovalNodeFactory{}
}

func (f *ApprovalNodeFactory) Create(deps protocol.Dependencies) (protocol.StepHandler, error) {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &ApprovalHandler{clock: clock}, nil
}

func (f *ApprovalNodeFactory) Type() models.NodeType {
	return models.NodeTypeApproval
}

func (f *ApprovalNodeFactory) Name() string {
	return "Approval"
}

func (f *ApprovalNodeFactory) Description() string {
	return "Records an approval by the configured approver"
}

func (f *ApprovalNodeFactory) Schema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "Approval",
		Properties: map[string]*models.Property{
			"approver": {Type: "string", Description: "Who approves this step"},
			"message":  {Type: "string", Description: "Message shown to the approver"},
		},
	}
}
