// SPDX-License-Identifier: Apache-2.0

// Package payload decodes raw extraction payloads into loosely typed values.
package payload

import (
	"fmt"
	"strings"
)

// Source describes one raw payload.
type Source struct {
	// Content is the raw payload text.
	Content []byte
	// Format is an optional hint: json, yaml or yml.
	Format string
}

// Decoded is the output of a successful decode.
type Decoded struct {
	Value       any
	DecoderUsed string
}

// Decoder turns a Source into a value built from map[string]any, []any and
// scalars.
type Decoder interface {
	CanHandle(source Source) bool
	Decode(source Source) (any, error)
	Name() string
}

// Pipeline selects the first registered decoder that can handle a source.
type Pipeline struct {
	decoders []Decoder
}

// NewPipeline creates a Pipeline with the provided decoders. Order matters:
// more specific decoders must come first.
func NewPipeline(decoders ...Decoder) *Pipeline {
	return &Pipeline{decoders: decoders}
}

// DefaultPipeline registers the fenced, JSON and YAML decoders.
func DefaultPipeline() *Pipeline {
	plain := NewPipeline(NewJSONDecoder(), NewYAMLDecoder())
	return NewPipeline(NewFencedDecoder(plain), NewJSONDecoder(), NewYAMLDecoder())
}

func (p *Pipeline) Decode(source Source) (Decoded, error) {
	decoder, err := p.selectDecoder(source)
	if err != nil {
		return Decoded{}, err
	}
	value, err := decoder.Decode(source)
	if err != nil {
		return Decoded{}, fmt.Errorf("decoder %q failed: %w", decoder.Name(), err)
	}
	return Decoded{Value: value, DecoderUsed: decoder.Name()}, nil
}

func (p *Pipeline) selectDecoder(source Source) (Decoder, error) {
	for _, d := range p.decoders {
		if d.CanHandle(source) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("unsupported payload format: no decoder found (format hint: %q)", source.Format)
}

// RegisteredDecoders returns the names of all registered decoders.
func (p *Pipeline) RegisteredDecoders() []string {
	names := make([]string, len(p.decoders))
	for i, d := range p.decoders {
		names[i] = d.Name()
	}
	return names
}

func trimmed(source Source) string {
	return strings.TrimSpace(string(source.Content))
}
