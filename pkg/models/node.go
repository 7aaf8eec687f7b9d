package models

// NodeType identifies which step handler executes a node.
type NodeType string

const (
	NodeTypeForm         NodeType = "form"
	NodeTypeEmail        NodeType = "email"
	NodeTypeApproval     NodeType = "approval"
	NodeTypeCondition    NodeType = "condition"
	NodeTypeNotification NodeType = "notification"
	NodeTypeHTTP         NodeType = "http"
	NodeTypeTransform    NodeType = "transform"
)

// Branch labels used on the outgoing edges of condition nodes.
const (
	BranchTrue  = "true"
	BranchFalse = "false"
)

// Node is a unit of work in a workflow graph.
type Node struct {
	ID     string         `json:"id"     validate:"required"`
	Type   NodeType       `json:"type"   validate:"required"`
	Config map[string]any `json:"config,omitempty"`
}

// IsBranching reports whether the node selects its successor by edge label.
func (n *Node) IsBranching() bool {
	return n.Type == NodeTypeCondition
}

// ConfigString returns a string config value, or "" when absent or not a string.
func (n *Node) ConfigString(key string) string {
	value, _ := n.Config[key].(string)

	return value
}

// ConfigInt returns an integer config value. JSON numbers decode as float64.
func (n *Node) ConfigInt(key string) (int, bool) {
	switch v := n.Config[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// Edge is a directed link between two nodes referenced by id.
type Edge struct {
	Source string `json:"source"          validate:"required"`
	Target string `json:"target"          validate:"required"`
	Label  string `json:"label,omitempty"`
}
