package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/dukex/flowrun/pkg/template"
)

const DefaultTimeout = 30 * time.Second

var ErrMissingURL = fmt.Errorf("%w: url", protocol.ErrMissingConfig)

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

type HTTPRequestHandler struct {
	client protocol.HTTPDoer
}

func NewHTTPRequestHandler(client protocol.HTTPDoer) *HTTPRequestHandler {
	return &HTTPRequestHandler{client: client}
}

// Execute performs a single request. Retries are left to the executor.
func (h *HTTPRequestHandler) Execute(ctx context.Context, node *models.Node, wctx *models.WorkflowContext) (protocol.StepResult, error) {
	url := strings.TrimSpace(template.ResolveContext(node.ConfigString("url"), wctx))
	if url == "" {
		return protocol.StepResult{}, protocol.Permanent(ErrMissingURL)
	}

	method := strings.ToUpper(node.ConfigString("method"))
	if method == "" {
		method = http.MethodGet
	}

	body := template.ResolveContext(node.ConfigString("body"), wctx)

	headers := map[string]string{}
	if raw, ok := node.Config["headers"].(map[string]any); ok {
		for k, v := range raw {
			if s, ok := v.(string); ok {
				headers[k] = template.ResolveContext(s, wctx)
			}
		}
	}

	if seconds, ok := node.ConfigInt("timeout"); ok && seconds > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
		defer cancel()
	}

	output, err := h.perform(ctx, method, url, body, headers)
	if err != nil {
		return protocol.StepResult{}, classify(err)
	}

	return protocol.StepResult{Output: output}, nil
}

func (h *HTTPRequestHandler) perform(ctx context.Context, method, url, body string, headers map[string]string) (map[string]any, error) {
	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, protocol.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	if body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	output := map[string]any{
		"status": resp.StatusCode,
		"body":   string(respBody),
	}

	var decoded any
	if err := json.Unmarshal(respBody, &decoded); err == nil {
		output["json"] = decoded
	}

	return output, nil
}

// classify maps 4xx and malformed requests to permanent failures; 5xx and
// transport errors are retryable.
func classify(err error) error {
	var stepErr *protocol.StepError
	if errors.As(err, &stepErr) {
		return stepErr
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode < http.StatusInternalServerError {
		return protocol.Permanent(err)
	}

	return protocol.Retryable(err)
}
