package registry

import (
	"github.com/dukex/flowrun/pkg/nodes/approval"
	"github.com/dukex/flowrun/pkg/nodes/condition"
	"github.com/dukex/flowrun/pkg/nodes/email"
	"github.com/dukex/flowrun/pkg/nodes/form"
	"github.com/dukex/flowrun/pkg/nodes/httprequest"
	"github.com/dukex/flowrun/pkg/nodes/notification"
	"github.com/dukex/flowrun/pkg/nodes/transform"
)

// RegisterDefaultNodes registers all built-in node factories with the registry.
func (r *Registry) RegisterDefaultNodes() {
	r.RegisterNode(form.NewFormNodeFactory())
	r.RegisterNode(email.NewEmailNodeFactory())
	r.RegisterNode(approval.NewApprovalNodeFactory())
	r.RegisterNode(condition.NewConditionNodeFactory())
	r.RegisterNode(notification.NewNotificationNodeFactory())
	r.RegisterNode(httprequest.NewHTTPRequestNodeFactory())
	r.RegisterNode(transform.NewTransformNodeFactory())
}
