package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	data := map[string]any{
		"name":  "John",
		"age":   30,
		"isNew": true,
		"user":  map[string]any{"email": "john@example.com"},
	}

	tests := []struct {
		name string
		tmpl string
		want any
	}{
		{"field", "{{ .name }}", "John"},
		{"bool", "{{ .isNew }}", true},
		{"number", "{{ .age }}", 30.0},
		{"func", "{{ upper .name }}", "JOHN"},
		{"json object", `{"email": "{{ .user.email }}"}`, map[string]any{"email": "john@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.tmpl, data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderErrors(t *testing.T) {
	_, err := Render("{{ .name ", nil)
	assert.Error(t, err)

	_, err = Render(`{"broken": {{ .x }}`+"}", map[string]any{"x": "not json"})
	assert.Error(t, err)
}
