// SPDX-License-Identifier: Apache-2.0

package extraction

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Rule identifies the constraint a Violation breaks.
type Rule string

const (
	RuleInvalidShape          Rule = "InvalidShape"
	RuleUnknownType           Rule = "UnknownType"
	RuleMissingField          Rule = "MissingField"
	RuleTypeMismatch          Rule = "TypeMismatch"
	RuleOutOfRange            Rule = "OutOfRange"
	RuleInvalidEnum           Rule = "InvalidEnum"
	RuleInvalidFormat         Rule = "InvalidFormat"
	RuleInvalidRange          Rule = "InvalidRange"
	RuleConfidenceOutOfBounds Rule = "ConfidenceOutOfBounds"
)

// Path locates a value inside a candidate. Segments are string keys or int
// indices.
type Path []any

// Key returns a copy of p extended with a map key.
func (p Path) Key(name string) Path {
	return p.append(name)
}

// Index returns a copy of p extended with a sequence index.
func (p Path) Index(i int) Path {
	return p.append(i)
}

func (p Path) append(seg any) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, seg)
}

// String renders the path as items[0].parsed_fields. The empty path renders
// as "$".
func (p Path) String() string {
	if len(p) == 0 {
		return "$"
	}
	var b strings.Builder
	for i, seg := range p {
		switch s := seg.(type) {
		case int:
			b.WriteString("[" + strconv.Itoa(s) + "]")
		default:
			if i > 0 {
				b.WriteByte('.')
			}
			fmt.Fprint(&b, s)
		}
	}
	return b.String()
}

// itemIndex returns the item position a path points into, or false for
// result-level paths.
func (p Path) itemIndex() (int, bool) {
	if len(p) < 2 || p[0] != "items" {
		return 0, false
	}
	i, ok := p[1].(int)
	return i, ok
}

// Violation is one localized reason a candidate failed validation.
type Violation struct {
	Path     Path   `json:"path"`
	Rule     Rule   `json:"rule"`
	Message  string `json:"message"`
	Observed any    `json:"observed,omitempty"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s at %s: %s", v.Rule, v.Path, v.Message)
}

func violationf(path Path, rule Rule, observed any, format string, args ...any) Violation {
	return Violation{
		Path:     path,
		Rule:     rule,
		Message:  fmt.Sprintf(format, args...),
		Observed: jsonSafe(observed),
	}
}

// jsonSafe copies v, replacing NaN and infinite floats with their string
// form so that the value stays encodable as JSON.
func jsonSafe(v any) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return strconv.FormatFloat(t, 'g', -1, 64)
		}
	case float32:
		if math.IsNaN(float64(t)) || math.IsInf(float64(t), 0) {
			return strconv.FormatFloat(float64(t), 'g', -1, 32)
		}
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = jsonSafe(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = jsonSafe(e)
		}
		return out
	}
	return v
}
