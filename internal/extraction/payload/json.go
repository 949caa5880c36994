// SPDX-License-Identifier: Apache-2.0

package payload

import (
	"encoding/json"
	"fmt"
	"strings"
)

// JSONDecoder decodes JSON objects and arrays.
type JSONDecoder struct{}

func NewJSONDecoder() *JSONDecoder {
	return &JSONDecoder{}
}

func (d *JSONDecoder) Name() string {
	return "json"
}

// CanHandle returns true for a "json" format hint, or for unhinted content
// that starts like a JSON object or array.
func (d *JSONDecoder) CanHandle(source Source) bool {
	if source.Format != "" {
		return strings.EqualFold(source.Format, "json")
	}
	content := trimmed(source)
	return strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[")
}

func (d *JSONDecoder) Decode(source Source) (any, error) {
	var value any
	if err := json.Unmarshal(source.Content, &value); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return value, nil
}
