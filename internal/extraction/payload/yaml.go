// SPDX-License-Identifier: Apache-2.0

package payload

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
)

// YAMLDecoder decodes YAML documents. Without a format hint it accepts any
// non-empty content, so it must be registered last.
type YAMLDecoder struct{}

func NewYAMLDecoder() *YAMLDecoder {
	return &YAMLDecoder{}
}

func (d *YAMLDecoder) Name() string {
	return "yaml"
}

func (d *YAMLDecoder) CanHandle(source Source) bool {
	switch strings.ToLower(source.Format) {
	case "yaml", "yml":
		return true
	case "":
		content := trimmed(source)
		return content != "" && !strings.HasPrefix(content, "```")
	}
	return false
}

func (d *YAMLDecoder) Decode(source Source) (any, error) {
	var value any
	if err := yaml.Unmarshal(source.Content, &value); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}
	return value, nil
}
