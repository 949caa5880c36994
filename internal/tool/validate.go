// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/goccy/go-yaml"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gemaraproj/extractval/internal/extraction"
	"github.com/gemaraproj/extractval/internal/extraction/payload"
	"github.com/gemaraproj/extractval/internal/extraction/schema"
)

// MetadataValidateExtraction describes the validate_extraction tool.
var MetadataValidateExtraction = &mcp.Tool{
	Name: "validate_extraction",
	Description: "Validate and normalize an extraction result (items such as tasks and events with " +
		"confidence scores and parsed fields). " +
		"Supported payload formats: json, yaml. Markdown code fences around the payload are removed. " +
		"Returns either the normalized result, with defaults such as estimation_source filled in, " +
		"or the complete ordered list of violations. Each violation has a path, a rule " +
		"(InvalidShape, UnknownType, MissingField, TypeMismatch, OutOfRange, InvalidEnum, " +
		"InvalidFormat, InvalidRange, ConfidenceOutOfBounds), a message and the observed value.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"payload"},
		"properties": map[string]interface{}{
			"payload": map[string]interface{}{
				"type":        "string",
				"description": "Raw extraction result with the keys items, overall_confidence and metadata",
			},
			"format": map[string]interface{}{
				"type":        "string",
				"description": "Format hint for the payload. One of: json, yaml. If omitted, auto-detection is used.",
				"enum":        []string{"json", "yaml"},
			},
		},
	},
}

// MetadataDescribeExtractionSchema describes the describe_extraction_schema tool.
var MetadataDescribeExtractionSchema = &mcp.Tool{
	Name: "describe_extraction_schema",
	Description: "Describe the extraction item types, their field rules and default values, " +
		"and the result-level rules, as YAML.",
	InputSchema: map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	},
}

// InputValidateExtraction is the input for the ValidateExtraction tool.
type InputValidateExtraction struct {
	Payload string `json:"payload"`
	Format  string `json:"format"`
}

// OutputValidateExtraction is the output for the ValidateExtraction tool.
type OutputValidateExtraction struct {
	Valid bool `json:"valid"`
	// Violations is empty when Valid is true.
	Violations []extraction.Violation `json:"violations"`
	// Normalized is the normalized result, set only when Valid is true.
	Normalized map[string]any `json:"normalized,omitempty"`
	// DecoderUsed is the name of the decoder that read the payload.
	DecoderUsed string `json:"decoder_used"`
}

type InputDescribeExtractionSchema struct{}

type OutputDescribeExtractionSchema struct {
	ItemTypes []string `json:"item_types"`
	// Schema is the YAML rendering of every rule and default.
	Schema string `json:"schema"`
}

// Handlers serves the extraction tools from one registry.
type Handlers struct {
	registry *schema.Registry
	engine   *extraction.Engine
	decoders *payload.Pipeline
	logger   *charmlog.Logger
}

func NewHandlers(reg *schema.Registry, logger *charmlog.Logger) *Handlers {
	return &Handlers{
		registry: reg,
		engine:   extraction.NewEngine(reg),
		decoders: payload.DefaultPipeline(),
		logger:   logger,
	}
}

// Register adds every tool to server.
func (h *Handlers) Register(server *mcp.Server) {
	mcp.AddTool(server, MetadataValidateExtraction, h.ValidateExtraction)
	mcp.AddTool(server, MetadataDescribeExtractionSchema, h.DescribeExtractionSchema)
}

// ValidateExtraction decodes the payload and runs it through the validation
// engine. Malformed payloads are reported as violations, not tool errors.
func (h *Handlers) ValidateExtraction(_ context.Context, _ *mcp.CallToolRequest, input InputValidateExtraction) (*mcp.CallToolResult, OutputValidateExtraction, error) {
	if input.Payload == "" {
		return nil, OutputValidateExtraction{}, fmt.Errorf("payload is required")
	}
	start := time.Now()

	decoded, err := h.decoders.Decode(payload.Source{Content: []byte(input.Payload), Format: input.Format})
	var outcome extraction.Outcome
	switch {
	case err == nil:
		outcome = h.engine.Process(decoded.Value)
	case input.Format != "" && !h.knownFormat(input.Format):
		return nil, OutputValidateExtraction{}, err
	default:
		outcome = extraction.Invalid([]extraction.Violation{{
			Path:    extraction.Path{},
			Rule:    extraction.RuleInvalidShape,
			Message: err.Error(),
		}})
	}

	if h.logger != nil {
		h.logger.Debug("validated extraction", "valid", outcome.Valid, "violations", len(outcome.Violations),
			"decoder", decoded.DecoderUsed, "elapsed", time.Since(start))
	}

	violations := outcome.Violations
	if violations == nil {
		violations = []extraction.Violation{}
	}
	return nil, OutputValidateExtraction{
		Valid:       outcome.Valid,
		Violations:  violations,
		Normalized:  outcome.Normalized,
		DecoderUsed: decoded.DecoderUsed,
	}, nil
}

func (h *Handlers) knownFormat(format string) bool {
	switch strings.ToLower(format) {
	case "json", "yaml", "yml":
		return true
	}
	return false
}

// DescribeExtractionSchema renders the registry.
func (h *Handlers) DescribeExtractionSchema(_ context.Context, _ *mcp.CallToolRequest, _ InputDescribeExtractionSchema) (*mcp.CallToolResult, OutputDescribeExtractionSchema, error) {
	rendered, err := yaml.Marshal(h.registry.Describe())
	if err != nil {
		return nil, OutputDescribeExtractionSchema{}, fmt.Errorf("failed to render schema: %w", err)
	}
	return nil, OutputDescribeExtractionSchema{
		ItemTypes: h.registry.ItemTypes(),
		Schema:    string(rendered),
	}, nil
}
