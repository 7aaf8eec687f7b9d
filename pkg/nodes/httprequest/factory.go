// Package httprequest provides the http step, which calls an external HTTP
// endpoint with resolved url, headers and body.
package httprequest

import (
	"net/http"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/protocol"
)

// HTTPRequestNodeFactory creates http step handlers.
type HTTPRequestNodeFactory struct{}

// NewHTTPRequestNodeFactory creates a new HTTP request node factory.
func NewHTTPRequestNodeFactory() protocol.NodeFactory {
	return &HTTPRequestNodeFactory{}
}

// Create builds the handler on the shared HTTP client, or a client with the
// default timeout when none is provided.
func (f *HTTPRequestNodeFactory) Create(deps protocol.Dependencies) (protocol.StepHandler, error) {
	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	return NewHTTPRequestHandler(client), nil
}

func (f *HTTPRequestNodeFactory) Type() models.NodeType {
	return models.NodeTypeHTTP
}

func (f *HTTPRequestNodeFactory) Name() string {
	return "HTTP Request"
}

func (f *HTTPRequestNodeFactory) Description() string {
	return "Performs an HTTP request. Server errors and network failures are retried, client errors are not"
}

// Schema returns the JSON schema for HTTP request node configuration.
func (f *HTTPRequestNodeFactory) Schema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "HTTP Request",
		Properties: map[string]*models.Property{
			"url": {
				Type:        "string",
				Description: "URL to request, e.g. https://{{variables.lookup.host}}/hooks/{{trigger.id}}",
			},
			"method": {
				Type:    "string",
				Default: http.MethodGet,
				Enum:    []any{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"},
			},
			"headers": {
				Type:        "object",
				Description: "Request headers. Values support placeholders",
			},
			"body": {
				Type:        "string",
				Description: "Request body. Supports placeholders",
			},
			"timeout": {
				Type:        "number",
				Description: "Request timeout in seconds",
				Default:     30,
			},
			"maxRetries": {Type: "integer", Default: 3},
		},
		Required: []string{"url"},
	}
}
