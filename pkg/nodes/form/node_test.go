package form

import (
	"testing"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormHandler_Execute(t *testing.T) {
	handler, err := NewFormNodeFactory().Create(protocol.Dependencies{})
	require.NoError(t, err)

	node := &models.Node{ID: "signup", Type: models.NodeTypeForm}

	tests := []struct {
		name     string
		formData map[string]map[string]any
		want     any
	}{
		{
			name:     "submitted data",
			formData: map[string]map[string]any{"signup": {"email": "ann@example.com"}},
			want:     map[string]any{"email": "ann@example.com"},
		},
		{
			name:     "other node only",
			formData: map[string]map[string]any{"other": {"x": 1}},
			want:     map[string]any{},
		},
		{
			name: "no form data",
			want: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handler.Execute(t.Context(), node, models.NewWorkflowContext(nil, tt.formData))
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Output)
			assert.Empty(t, result.Branch)
		})
	}
}

func TestFormHandler_OutputIsACopy(t *testing.T) {
	formData := map[string]map[string]any{"signup": {"email": "a"}}
	wctx := models.NewWorkflowContext(nil, formData)

	result, err := (&FormHandler{}).Execute(t.Context(), &models.Node{ID: "signup"}, wctx)
	require.NoError(t, err)

	result.Output.(map[string]any)["email"] = "changed"
	assert.Equal(t, "a", formData["signup"]["email"])
}

func TestFormNodeFactory_Metadata(t *testing.T) {
	factory := NewFormNodeFactory()

	assert.Equal(t, models.NodeTypeForm, factory.Type())
	assert.Equal(t, "Form", factory.Name())
	assert.NotEmpty(t, factory.Description())
	assert.Equal(t, "object", factory.Schema().Type)
}
