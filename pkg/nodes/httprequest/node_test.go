package httprequest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T) protocol.StepHandler {
	t.Helper()

	handler, err := NewHTTPRequestNodeFactory().Create(protocol.Dependencies{})
	require.NoError(t, err)

	return handler
}

func TestHTTPRequestHandler_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/users/42", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":"Ann"}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message": "success"}`))
	}))
	defer server.Close()

	wctx := models.NewWorkflowContext(map[string]any{"userId": 42, "token": "tok"}, map[string]map[string]any{"f": {"name": "Ann"}})
	node := &models.Node{ID: "call", Type: models.NodeTypeHTTP, Config: map[string]any{
		"url":     server.URL + "/users/{{trigger.userId}}",
		"method":  "post",
		"headers": map[string]any{"Authorization": "Bearer {{trigger.token}}"},
		"body":    `{"name":"{{formData.f.name}}"}`,
	}}

	result, err := newHandler(t).Execute(t.Context(), node, wctx)
	require.NoError(t, err)

	output := result.Output.(map[string]any)
	assert.Equal(t, http.StatusOK, output["status"])
	assert.Equal(t, `{"message": "success"}`, output["body"])
	assert.Equal(t, map[string]any{"message": "success"}, output["json"])
}

func TestHTTPRequestHandler_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"server error", http.StatusBadGateway, true},
		{"not found", http.StatusNotFound, false},
		{"bad request", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			node := &models.Node{ID: "call", Config: map[string]any{"url": server.URL}}

			_, err := newHandler(t).Execute(t.Context(), node, nil)
			require.Error(t, err)
			assert.Equal(t, tt.retryable, protocol.IsRetryable(err))
			assert.Equal(t, int32(1), calls.Load(), "the handler never retries by itself")

			var httpErr *HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tt.status, httpErr.StatusCode)
		})
	}
}

func TestHTTPRequestHandler_TransportErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newHandler(t).Execute(t.Context(), &models.Node{ID: "call", Config: map[string]any{"url": url}}, nil)
	require.Error(t, err)
	assert.True(t, protocol.IsRetryable(err))
}

func TestHTTPRequestHandler_MissingURLIsPermanent(t *testing.T) {
	_, err := newHandler(t).Execute(t.Context(), &models.Node{ID: "call", Config: map[string]any{}}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingURL)
	assert.False(t, protocol.IsRetryable(err))
}
