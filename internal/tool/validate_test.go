// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemaraproj/extractval/internal/extraction"
	"github.com/gemaraproj/extractval/internal/extraction/schema"
)

const validPayload = `{
  "items": [{
    "id": "550e8400-e29b-41d4-a716-446655440000",
    "type": "task",
    "title": "Implement feature",
    "confidence": 0.8,
    "parsed_fields": {"duration_min_minutes": 60, "duration_max_minutes": 120}
  }],
  "overall_confidence": 0.8,
  "metadata": {"processing_time_ms": 100}
}`

func newHandlers(t *testing.T) *Handlers {
	t.Helper()
	reg, err := schema.Embedded()
	require.NoError(t, err)
	return NewHandlers(reg, nil)
}

func TestValidateExtraction(t *testing.T) {
	ctx := context.Background()
	req := &mcp.CallToolRequest{}
	h := newHandlers(t)

	tests := []struct {
		name           string
		input          InputValidateExtraction
		wantErr        bool
		errContains    string
		validateOutput func(t *testing.T, output OutputValidateExtraction)
	}{
		{
			name:        "empty payload returns error",
			input:       InputValidateExtraction{Payload: ""},
			wantErr:     true,
			errContains: "payload is required",
		},
		{
			name:  "valid json payload is normalized",
			input: InputValidateExtraction{Payload: validPayload, Format: "json"},
			validateOutput: func(t *testing.T, output OutputValidateExtraction) {
				assert.True(t, output.Valid)
				assert.Empty(t, output.Violations)
				assert.NotNil(t, output.Violations, "violations should serialize as an empty list")
				assert.Equal(t, "json", output.DecoderUsed)

				items := output.Normalized["items"].([]any)
				parsed := items[0].(map[string]any)["parsed_fields"].(map[string]any)
				assert.Equal(t, "default", parsed["estimation_source"])
			},
		},
		{
			name: "yaml payload with violations",
			input: InputValidateExtraction{
				Payload: `items:
  - id: 550e8400-e29b-41d4-a716-446655440000
    type: task
    title: Implement feature
    confidence: 1.4
    parsed_fields:
      duration_min_minutes: 120
      duration_max_minutes: 60
overall_confidence: 0.8
metadata:
  processing_time_ms: 100
`,
			},
			validateOutput: func(t *testing.T, output OutputValidateExtraction) {
				assert.False(t, output.Valid)
				assert.Nil(t, output.Normalized)
				assert.Equal(t, "yaml", output.DecoderUsed)
				require.Len(t, output.Violations, 2)
				assert.Equal(t, extraction.RuleOutOfRange, output.Violations[0].Rule)
				assert.Equal(t, "items[0].confidence", output.Violations[0].Path.String())
				assert.Equal(t, extraction.RuleInvalidRange, output.Violations[1].Rule)
				assert.Equal(t, "items[0].parsed_fields", output.Violations[1].Path.String())
			},
		},
		{
			name:  "fenced model output is unwrapped",
			input: InputValidateExtraction{Payload: "```json\n" + validPayload + "\n```"},
			validateOutput: func(t *testing.T, output OutputValidateExtraction) {
				assert.True(t, output.Valid)
				assert.Equal(t, "fenced", output.DecoderUsed)
			},
		},
		{
			name:  "malformed payload is a violation, not an error",
			input: InputValidateExtraction{Payload: `{"items": [`, Format: "json"},
			validateOutput: func(t *testing.T, output OutputValidateExtraction) {
				assert.False(t, output.Valid)
				require.Len(t, output.Violations, 1)
				assert.Equal(t, extraction.RuleInvalidShape, output.Violations[0].Rule)
			},
		},
		{
			name:        "unsupported format returns error",
			input:       InputValidateExtraction{Payload: "a = 1", Format: "toml"},
			wantErr:     true,
			errContains: "unsupported payload format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, output, err := h.ValidateExtraction(ctx, req, tt.input)

			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}

			require.NoError(t, err)
			if tt.validateOutput != nil {
				tt.validateOutput(t, output)
			}
		})
	}
}

func TestDescribeExtractionSchema(t *testing.T) {
	h := newHandlers(t)

	_, output, err := h.DescribeExtractionSchema(context.Background(), &mcp.CallToolRequest{}, InputDescribeExtractionSchema{})
	require.NoError(t, err)
	assert.Equal(t, []string{"task", "event", "note", "reminder"}, output.ItemTypes)
	assert.Contains(t, output.Schema, "estimation_source")
	assert.Contains(t, output.Schema, "duration_min_minutes")
	assert.Contains(t, output.Schema, "processing_time_ms")
}

func TestRegister(t *testing.T) {
	server := mcp.NewServer(&mcp.Implementation{Name: "extractval-test", Version: "test"}, nil)
	assert.NotPanics(t, func() { newHandlers(t).Register(server) })
}
