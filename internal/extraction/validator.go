// SPDX-License-Identifier: Apache-2.0

package extraction

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gemaraproj/extractval/internal/extraction/schema"
)

// Validator walks a candidate result against the registry and collects every
// violation. It does not short-circuit across fields or items.
type Validator struct {
	registry *schema.Registry
}

// NewValidator creates a Validator backed by reg.
func NewValidator(reg *schema.Registry) *Validator {
	return &Validator{registry: reg}
}

// Validate checks candidate and returns Valid(candidate) when no violation
// was found, or Invalid with violations ordered by item position.
func (v *Validator) Validate(candidate any) Outcome {
	root, ok := candidate.(map[string]any)
	if !ok {
		return Invalid([]Violation{invalidShape(candidate)})
	}
	violations := v.collect(root)
	if len(violations) == 0 {
		return Valid(root)
	}
	return Invalid(orderViolations(violations))
}

func invalidShape(candidate any) Violation {
	return violationf(Path{}, RuleInvalidShape, candidate,
		"candidate must be an object with items, overall_confidence and metadata, got %s", kindOf(candidate))
}

func (v *Validator) collect(root map[string]any) []Violation {
	var out []Violation
	out = append(out, v.checkItems(root)...)
	out = append(out, checkFields(Path{}, root, v.registry.ResultFields())...)
	return out
}

func (v *Validator) checkItems(root map[string]any) []Violation {
	path := Path{"items"}
	raw, present := root["items"]
	if !present {
		return []Violation{violationf(path, RuleMissingField, nil, "required field is missing")}
	}
	items, ok := raw.([]any)
	if !ok {
		return []Violation{typeMismatch(path, schema.KindArray, raw)}
	}

	var out []Violation
	for i, rawItem := range items {
		itemPath := path.Index(i)
		item, ok := rawItem.(map[string]any)
		if !ok {
			out = append(out, typeMismatch(itemPath, schema.KindObject, rawItem))
			continue
		}
		out = append(out, v.checkItem(itemPath, item)...)
	}
	return out
}

func (v *Validator) checkItem(path Path, item map[string]any) []Violation {
	typePath := path.Key("type")
	rawType, present := item["type"]
	if !present {
		return []Violation{violationf(typePath, RuleMissingField, nil, "required field is missing")}
	}
	itemType, ok := rawType.(string)
	if !ok {
		return []Violation{typeMismatch(typePath, schema.KindString, rawType)}
	}
	constraints, err := v.registry.ConstraintsFor(itemType)
	if err != nil {
		return []Violation{violationf(path, RuleUnknownType, itemType,
			"%q is not one of %s", itemType, strings.Join(v.registry.ItemTypes(), ", "))}
	}
	return checkFields(path, item, constraints.Fields)
}

// checkFields applies rules to the keys of obj in rule order. Keys without a
// rule are allowed and ignored.
func checkFields(path Path, obj map[string]any, rules []schema.FieldRule) []Violation {
	var out []Violation
	for _, rule := range rules {
		value, present := obj[rule.Name]
		if !present {
			if rule.Required {
				out = append(out, violationf(path.Key(rule.Name), RuleMissingField, nil, "required field is missing"))
			}
			continue
		}
		out = append(out, checkValue(path.Key(rule.Name), value, rule)...)
	}
	return out
}

// checkValue runs type, range, enum and format checks in that order and stops
// at the first failure. Objects recurse into their nested rules.
func checkValue(path Path, value any, rule schema.FieldRule) []Violation {
	if value == nil {
		if rule.Nullable {
			return nil
		}
		return []Violation{typeMismatch(path, rule.Kind, nil)}
	}

	switch rule.Kind {
	case schema.KindNumber, schema.KindInteger:
		n, ok := toFloat(value)
		if !ok || (rule.Kind == schema.KindInteger && !isInteger(value, n)) {
			return []Violation{typeMismatch(path, rule.Kind, value)}
		}
		if violation, bad := checkRange(path, value, n, rule); bad {
			return []Violation{violation}
		}
	case schema.KindString:
		s, ok := value.(string)
		if !ok {
			return []Violation{typeMismatch(path, rule.Kind, value)}
		}
		if len(rule.Enum) > 0 && !slices.Contains(rule.Enum, s) {
			return []Violation{violationf(path, RuleInvalidEnum, value,
				"%q is not one of %s", s, strings.Join(rule.Enum, ", "))}
		}
		if rule.Format != "" && !matchesFormat(rule.Format, s) {
			return []Violation{violationf(path, RuleInvalidFormat, value, "value is not a valid %s", rule.Format)}
		}
	case schema.KindBoolean:
		if _, ok := value.(bool); !ok {
			return []Violation{typeMismatch(path, rule.Kind, value)}
		}
	case schema.KindArray:
		if _, ok := value.([]any); !ok {
			return []Violation{typeMismatch(path, rule.Kind, value)}
		}
	case schema.KindObject:
		obj, ok := value.(map[string]any)
		if !ok {
			return []Violation{typeMismatch(path, rule.Kind, value)}
		}
		out := checkFields(path, obj, rule.Fields)
		return append(out, checkOrderings(path, obj, rule)...)
	}
	return nil
}

func checkRange(path Path, value any, n float64, rule schema.FieldRule) (Violation, bool) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return violationf(path, RuleOutOfRange, value, "value must be a finite number"), true
	}
	if rule.Minimum != nil && n < *rule.Minimum {
		return violationf(path, RuleOutOfRange, value, "%v is below the minimum %v", n, *rule.Minimum), true
	}
	if rule.Maximum != nil && n > *rule.Maximum {
		return violationf(path, RuleOutOfRange, value, "%v is above the maximum %v", n, *rule.Maximum), true
	}
	return Violation{}, false
}

// checkOrderings enforces lower <= upper for every ordering declared on an
// object rule. Bounds that are absent, null or individually invalid are
// skipped; their own violations already describe the problem.
func checkOrderings(path Path, obj map[string]any, rule schema.FieldRule) []Violation {
	var out []Violation
	for _, o := range rule.Orderings {
		lower, okLower := boundValue(obj, o.Lower, rule.Fields)
		upper, okUpper := boundValue(obj, o.Upper, rule.Fields)
		if !okLower || !okUpper || lower <= upper {
			continue
		}
		out = append(out, violationf(path, RuleInvalidRange,
			map[string]any{o.Lower: obj[o.Lower], o.Upper: obj[o.Upper]},
			"%s (%v) must not exceed %s (%v)", o.Lower, lower, o.Upper, upper))
	}
	return out
}

func boundValue(obj map[string]any, name string, rules []schema.FieldRule) (float64, bool) {
	value, present := obj[name]
	if !present || value == nil {
		return 0, false
	}
	for _, r := range rules {
		if r.Name == name && len(checkValue(nil, value, r)) > 0 {
			return 0, false
		}
	}
	return toFloat(value)
}

func typeMismatch(path Path, want schema.Kind, got any) Violation {
	return violationf(path, RuleTypeMismatch, got, "expected %s, got %s", want, kindOf(got))
}

// toFloat reads any numeric representation produced by the JSON and YAML
// decoders. Booleans and numeric strings are not numbers.
func toFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func isInteger(value any, n float64) bool {
	switch value.(type) {
	case float64, float32, json.Number:
		return !math.IsInf(n, 0) && n == math.Trunc(n)
	}
	return true
}

func kindOf(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	if n, ok := toFloat(value); ok {
		if isInteger(value, n) {
			return "integer"
		}
		return "number"
	}
	return fmt.Sprintf("%T", value)
}

func matchesFormat(format schema.Format, s string) bool {
	switch format {
	case schema.FormatUUID:
		// Only the canonical 8-4-4-4-12 form; version and variant bits are not checked.
		return len(s) == 36 && uuid.Validate(s) == nil
	case schema.FormatNonEmpty:
		return strings.TrimSpace(s) != ""
	case schema.FormatDateTime:
		_, err := time.Parse(time.RFC3339, s)
		return err == nil
	case schema.FormatDateOrDateTime:
		if _, err := time.Parse(time.DateOnly, s); err == nil {
			return true
		}
		_, err := time.Parse(time.RFC3339, s)
		return err == nil
	}
	return true
}

// orderViolations stably orders violations by item position. Result-level
// violations follow every item violation.
func orderViolations(violations []Violation) []Violation {
	slices.SortStableFunc(violations, func(a, b Violation) int {
		ai, aItem := a.Path.itemIndex()
		bi, bItem := b.Path.itemIndex()
		switch {
		case aItem && bItem:
			return ai - bi
		case aItem:
			return -1
		case bItem:
			return 1
		}
		return 0
	})
	return violations
}
