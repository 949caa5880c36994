// SPDX-License-Identifier: Apache-2.0

package extraction

import (
	"strings"

	"github.com/mohae/deepcopy"

	"github.com/gemaraproj/extractval/internal/extraction/schema"
)

// Normalizer fills registry defaults into absent optional fields. It never
// fails and never coerces values: anything it does not recognise is passed
// through for the Validator to judge.
type Normalizer struct {
	registry *schema.Registry
}

// NewNormalizer creates a Normalizer backed by reg.
func NewNormalizer(reg *schema.Registry) *Normalizer {
	return &Normalizer{registry: reg}
}

// Normalize returns a normalized deep copy of candidate. The input is never
// modified.
func (n *Normalizer) Normalize(candidate any) any {
	copied := deepcopy.Copy(candidate)
	root, ok := copied.(map[string]any)
	if !ok {
		return copied
	}
	items, ok := root["items"].([]any)
	if !ok {
		return root
	}
	for _, raw := range items {
		if item, ok := raw.(map[string]any); ok {
			n.normalizeItem(item)
		}
	}
	return root
}

func (n *Normalizer) normalizeItem(item map[string]any) {
	itemType, ok := item["type"].(string)
	if !ok {
		return
	}
	for path, value := range n.registry.DefaultsFor(itemType) {
		setIfAbsent(item, strings.Split(path, "."), value)
	}
}

// setIfAbsent walks existing objects along path and sets the final key only
// when it is missing. Intermediate objects are never created.
func setIfAbsent(obj map[string]any, path []string, value any) {
	for _, key := range path[:len(path)-1] {
		next, ok := obj[key].(map[string]any)
		if !ok {
			return
		}
		obj = next
	}
	last := path[len(path)-1]
	if _, present := obj[last]; !present {
		obj[last] = value
	}
}
