package models

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed workflow.schema.json
var workflowSchemaJSON []byte

var ErrInvalidDocument = errors.New("invalid workflow document")

var workflowSchema = gojsonschema.NewBytesLoader(workflowSchemaJSON)

// DecodeWorkflow validates data against the workflow interchange schema and
// unmarshals it.
func DecodeWorkflow(data []byte) (*Workflow, error) {
	result, err := gojsonschema.Validate(workflowSchema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			messages = append(messages, resultErr.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(messages, "; "))
	}

	var workflow Workflow
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return &workflow, nil
}

// EncodeWorkflow marshals a workflow into its interchange document.
func EncodeWorkflow(workflow *Workflow) ([]byte, error) {
	return json.Marshal(workflow)
}
