package models

import "encoding/json"

// SchemaProvider is implemented by components that describe their config.
type SchemaProvider interface {
	Schema() *JSONSchema
}

// JSONSchema is the subset of JSON Schema used to describe node configuration.
type JSONSchema struct {
	Type        string               `json:"type"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"`
	Title       string               `json:"title,omitempty"`
	Description string               `json:"description,omitempty"`
}

// Property describes one configuration field.
type Property struct {
	Type        string               `json:"type,omitempty"`
	Description string               `json:"description,omitempty"`
	Enum        []any                `json:"enum,omitempty"`
	Default     any                  `json:"default,omitempty"`
	Format      string               `json:"format,omitempty"`
	Items       *Property            `json:"items,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"`
}

// Map converts the schema into a generic document for schema loaders.
func (s *JSONSchema) Map() map[string]any {
	raw, err := json.Marshal(s)
	if err != nil {
		return map[string]any{}
	}

	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)

	return out
}

// RegisteredNodeType describes a node type available in the registry.
type RegisteredNodeType struct {
	Type        NodeType    `json:"type"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Schema      *JSONSchema `json:"schema"`
}
