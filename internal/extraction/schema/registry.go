// SPDX-License-Identifier: Apache-2.0

// Package schema holds the read-only constraint definitions for extraction
// items and results. Definitions are declared in a CUE document and decoded
// once into plain Go rules.
package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var embeddedSchema []byte

// ErrUnknownType is returned when an item type is not part of the registry.
var ErrUnknownType = errors.New("unknown item type")

// Kind is the primitive kind a field value must have.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindInteger Kind = "integer"
	KindBoolean Kind = "boolean"
	KindObject  Kind = "object"
	KindArray   Kind = "array"
)

// Format names a string format check.
type Format string

const (
	FormatUUID           Format = "uuid"
	FormatNonEmpty       Format = "non-empty"
	FormatDateTime       Format = "date-time"
	FormatDateOrDateTime Format = "date-or-date-time"
)

// Ordering requires the value at Lower to be <= the value at Upper when both
// are present on the same object.
type Ordering struct {
	Lower string `json:"lower"`
	Upper string `json:"upper"`
}

// FieldRule is a single field constraint. Object rules may carry nested
// Fields and cross-field Orderings.
type FieldRule struct {
	Name      string      `json:"name"`
	Kind      Kind        `json:"kind"`
	Required  bool        `json:"required"`
	Nullable  bool        `json:"nullable"`
	Minimum   *float64    `json:"minimum,omitempty"`
	Maximum   *float64    `json:"maximum,omitempty"`
	Enum      []string    `json:"enum,omitempty"`
	Format    Format      `json:"format,omitempty"`
	Default   *string     `json:"default,omitempty"`
	Fields    []FieldRule `json:"fields,omitempty"`
	Orderings []Ordering  `json:"orderings,omitempty"`
}

// ItemConstraints is the ordered rule set for one item type.
type ItemConstraints struct {
	Type   string      `json:"type"`
	Fields []FieldRule `json:"fields"`
}

type itemTypeDoc struct {
	Name         string      `json:"name"`
	ParsedFields []FieldRule `json:"parsed_fields"`
	Orderings    []Ordering  `json:"orderings"`
}

type registryDoc struct {
	ItemFields   []FieldRule   `json:"item_fields"`
	ItemTypes    []itemTypeDoc `json:"item_types"`
	ResultFields []FieldRule   `json:"result_fields"`
}

// Registry is the immutable set of item and result constraints. It is safe
// for concurrent use.
type Registry struct {
	types    map[string]ItemConstraints
	order    []string
	defaults map[string]map[string]any
	result   []FieldRule
}

var loadEmbedded = sync.OnceValues(func() (*Registry, error) {
	return Load(embeddedSchema)
})

// Embedded returns the registry built from the schema document compiled into
// the binary. It is loaded at most once per process.
func Embedded() (*Registry, error) {
	return loadEmbedded()
}

// Load compiles a CUE schema document and builds a Registry from its
// top-level "registry" value.
func Load(src []byte) (*Registry, error) {
	ctx := cuecontext.New()
	root := ctx.CompileBytes(src, cue.Filename("schema.cue"))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile schema document: %w", err)
	}

	value := root.LookupPath(cue.ParsePath("registry"))
	if !value.Exists() {
		return nil, fmt.Errorf("schema document has no registry value")
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid schema document: %w", err)
	}

	var doc registryDoc
	if err := value.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode schema document: %w", err)
	}
	return newRegistry(doc)
}

func newRegistry(doc registryDoc) (*Registry, error) {
	if len(doc.ItemTypes) == 0 {
		return nil, fmt.Errorf("schema document declares no item types")
	}

	r := &Registry{
		types:    make(map[string]ItemConstraints, len(doc.ItemTypes)),
		defaults: make(map[string]map[string]any, len(doc.ItemTypes)),
		result:   doc.ResultFields,
	}
	seen := make(map[string]struct{}, len(doc.ItemTypes))
	for _, t := range doc.ItemTypes {
		if _, dup := seen[t.Name]; dup {
			return nil, fmt.Errorf("duplicate item type %q", t.Name)
		}
		seen[t.Name] = struct{}{}
		r.order = append(r.order, t.Name)
	}

	for _, t := range doc.ItemTypes {
		fields := make([]FieldRule, 0, len(doc.ItemFields)+1)
		for _, f := range doc.ItemFields {
			if f.Name == "type" {
				f.Enum = append([]string(nil), r.order...)
			}
			fields = append(fields, f)
		}
		fields = append(fields, FieldRule{
			Name:      "parsed_fields",
			Kind:      KindObject,
			Fields:    t.ParsedFields,
			Orderings: t.Orderings,
		})

		defaults := make(map[string]any)
		collectDefaults("", fields, defaults)

		r.types[t.Name] = ItemConstraints{Type: t.Name, Fields: fields}
		r.defaults[t.Name] = defaults
	}
	return r, nil
}

func collectDefaults(prefix string, fields []FieldRule, out map[string]any) {
	for _, f := range fields {
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}
		if f.Default != nil {
			out[path] = *f.Default
		}
		if len(f.Fields) > 0 {
			collectDefaults(path, f.Fields, out)
		}
	}
}

// ConstraintsFor returns the ordered field rules for an item type.
func (r *Registry) ConstraintsFor(itemType string) (ItemConstraints, error) {
	c, ok := r.types[itemType]
	if !ok {
		return ItemConstraints{}, fmt.Errorf("%w: %q", ErrUnknownType, itemType)
	}
	return c, nil
}

// DefaultsFor maps dotted field paths (e.g. "parsed_fields.estimation_source")
// to their default values. Unknown types have no defaults.
func (r *Registry) DefaultsFor(itemType string) map[string]any {
	src := r.defaults[itemType]
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// ResultFields returns the rules for result-level fields other than items.
func (r *Registry) ResultFields() []FieldRule {
	return r.result
}

// ItemTypes lists the item type enumeration in declaration order.
func (r *Registry) ItemTypes() []string {
	return append([]string(nil), r.order...)
}

// Description is a serializable summary of the registry.
type Description struct {
	ItemTypes []ItemConstraints         `json:"item_types"`
	Defaults  map[string]map[string]any `json:"defaults"`
	Result    []FieldRule               `json:"result_fields"`
}

// Describe returns a summary of every item type, its defaults and the
// result-level rules.
func (r *Registry) Describe() Description {
	d := Description{
		Defaults: make(map[string]map[string]any, len(r.order)),
		Result:   r.result,
	}
	for _, name := range r.order {
		d.ItemTypes = append(d.ItemTypes, r.types[name])
		d.Defaults[name] = r.DefaultsFor(name)
	}
	return d
}
