// SPDX-License-Identifier: Apache-2.0

package extraction

import (
	"errors"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// EstimationSource tags how a duration estimate was derived.
type EstimationSource string

const (
	EstimationExplicit EstimationSource = "explicit"
	EstimationInferred EstimationSource = "inferred"
	EstimationDefault  EstimationSource = "default"
)

// DurationEstimate is the duration-bearing part of an item's parsed fields.
type DurationEstimate struct {
	MinMinutes *int             `json:"duration_min_minutes" mapstructure:"duration_min_minutes"`
	MaxMinutes *int             `json:"duration_max_minutes" mapstructure:"duration_max_minutes"`
	Source     EstimationSource `json:"estimation_source" mapstructure:"estimation_source"`
}

// ExtractionItem is the typed view of one validated item.
type ExtractionItem struct {
	ID           string         `json:"id" mapstructure:"id"`
	Type         string         `json:"type" mapstructure:"type"`
	Title        string         `json:"title" mapstructure:"title"`
	Confidence   float64        `json:"confidence" mapstructure:"confidence"`
	ParsedFields map[string]any `json:"parsed_fields,omitempty" mapstructure:"parsed_fields"`
}

// Duration decodes the duration fields of the item. Items without parsed
// fields return a zero estimate.
func (i ExtractionItem) Duration() (DurationEstimate, error) {
	var d DurationEstimate
	if i.ParsedFields == nil {
		return d, nil
	}
	if err := decode(i.ParsedFields, &d); err != nil {
		return DurationEstimate{}, fmt.Errorf("failed to decode duration of item %s: %w", i.ID, err)
	}
	return d, nil
}

// ResultMetadata is the typed view of result metadata. Keys without a field
// are kept in Extra.
type ResultMetadata struct {
	ProcessingTimeMS float64        `json:"processing_time_ms" mapstructure:"processing_time_ms"`
	Model            string         `json:"model,omitempty" mapstructure:"model"`
	SourceLength     int            `json:"source_length,omitempty" mapstructure:"source_length"`
	Extra            map[string]any `json:"-" mapstructure:",remain"`
}

// ExtractionResult is the typed view of a validated result.
type ExtractionResult struct {
	Items             []ExtractionItem `json:"items" mapstructure:"items"`
	OverallConfidence float64          `json:"overall_confidence" mapstructure:"overall_confidence"`
	Metadata          ResultMetadata   `json:"metadata" mapstructure:"metadata"`
}

// Result decodes the normalized result of a valid outcome into typed structs.
func (o Outcome) Result() (ExtractionResult, error) {
	var r ExtractionResult
	if !o.Valid {
		return r, errors.New("outcome is invalid")
	}
	if err := decode(o.Normalized, &r); err != nil {
		return ExtractionResult{}, fmt.Errorf("failed to decode normalized result: %w", err)
	}
	return r, nil
}

func decode(input map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(input)
}
