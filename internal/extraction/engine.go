// SPDX-License-Identifier: Apache-2.0

// Package extraction validates and normalizes extraction results produced by
// an upstream inference step. Malformed input is reported as violations,
// never as errors.
package extraction

import (
	"github.com/gemaraproj/extractval/internal/extraction/payload"
	"github.com/gemaraproj/extractval/internal/extraction/schema"
)

// Outcome is the result of processing one candidate: either Valid with the
// normalized result, or Invalid with an ordered list of violations.
type Outcome struct {
	Valid      bool           `json:"valid"`
	Normalized map[string]any `json:"normalized,omitempty"`
	Violations []Violation    `json:"violations,omitempty"`
}

// Valid wraps a normalized result.
func Valid(normalized map[string]any) Outcome {
	return Outcome{Valid: true, Normalized: normalized}
}

// Invalid wraps a non-empty violation list.
func Invalid(violations []Violation) Outcome {
	return Outcome{Violations: violations}
}

// Engine runs normalization, structural validation and the confidence check
// over a candidate. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	normalizer *Normalizer
	validator  *Validator
	decoders   *payload.Pipeline
}

// NewEngine creates an Engine backed by reg.
func NewEngine(reg *schema.Registry) *Engine {
	return &Engine{
		normalizer: NewNormalizer(reg),
		validator:  NewValidator(reg),
		decoders:   payload.DefaultPipeline(),
	}
}

// Process validates a loosely typed candidate such as the output of
// json.Unmarshal into an any. It always returns exactly one Outcome and never
// modifies its input.
func (e *Engine) Process(candidate any) Outcome {
	if _, ok := candidate.(map[string]any); !ok {
		return Invalid([]Violation{invalidShape(candidate)})
	}
	root := e.normalizer.Normalize(candidate).(map[string]any)

	violations := e.validator.collect(root)
	violations = append(violations, checkConfidence(root)...)
	if len(violations) == 0 {
		return Valid(jsonSafe(root).(map[string]any))
	}
	return Invalid(orderViolations(violations))
}

// ProcessBytes decodes a JSON or YAML payload and processes it. format may be
// empty for auto-detection. Undecodable payloads yield an InvalidShape
// violation.
func (e *Engine) ProcessBytes(data []byte, format string) Outcome {
	decoded, err := e.decoders.Decode(payload.Source{Content: data, Format: format})
	if err != nil {
		return Invalid([]Violation{violationf(Path{}, RuleInvalidShape, nil, "%v", err)})
	}
	return e.Process(decoded.Value)
}
