// SPDX-License-Identifier: Apache-2.0

package extraction_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemaraproj/extractval/internal/extraction"
	"github.com/gemaraproj/extractval/internal/extraction/schema"
)

func newNormalizer(t *testing.T) *extraction.Normalizer {
	t.Helper()
	reg, err := schema.Embedded()
	require.NoError(t, err)
	return extraction.NewNormalizer(reg)
}

func normalizedItem(t *testing.T, n *extraction.Normalizer, item map[string]any) map[string]any {
	t.Helper()
	root, ok := n.Normalize(resultWith(0.5, item)).(map[string]any)
	require.True(t, ok)
	return root["items"].([]any)[0].(map[string]any)
}

func TestNormalizer_FillsEstimationSource(t *testing.T) {
	n := newNormalizer(t)

	got := normalizedItem(t, n, taskItem())

	want := taskItem()
	want["parsed_fields"].(map[string]any)["estimation_source"] = "default"
	assert.Equal(t, want, got)
}

func TestNormalizer_Rules(t *testing.T) {
	n := newNormalizer(t)

	tests := []struct {
		name       string
		item       map[string]any
		wantParsed any
	}{
		{
			name:       "explicit source is kept",
			item:       map[string]any{"type": "task", "parsed_fields": map[string]any{"estimation_source": "explicit"}},
			wantParsed: map[string]any{"estimation_source": "explicit"},
		},
		{
			name:       "null source is not replaced",
			item:       map[string]any{"type": "event", "parsed_fields": map[string]any{"estimation_source": nil}},
			wantParsed: map[string]any{"estimation_source": nil},
		},
		{
			name:       "wrongly typed source is not coerced",
			item:       map[string]any{"type": "task", "parsed_fields": map[string]any{"estimation_source": 3.0}},
			wantParsed: map[string]any{"estimation_source": 3.0},
		},
		{
			name: "missing bound is not invented",
			item: map[string]any{"type": "task", "parsed_fields": map[string]any{"duration_min_minutes": 15.0}},
			wantParsed: map[string]any{
				"duration_min_minutes": 15.0,
				"estimation_source":    "default",
			},
		},
		{
			name:       "types without duration fields get no source",
			item:       map[string]any{"type": "note", "parsed_fields": map[string]any{"tags": []any{"a"}}},
			wantParsed: map[string]any{"tags": []any{"a"}},
		},
		{
			name:       "unknown types pass through",
			item:       map[string]any{"type": "meeting", "parsed_fields": map[string]any{}},
			wantParsed: map[string]any{},
		},
		{
			name:       "non-object parsed fields pass through",
			item:       map[string]any{"type": "task", "parsed_fields": "60-120"},
			wantParsed: "60-120",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizedItem(t, n, tt.item)
			assert.Equal(t, tt.wantParsed, got["parsed_fields"])
		})
	}
}

func TestNormalizer_AbsentParsedFieldsStayAbsent(t *testing.T) {
	n := newNormalizer(t)

	item := taskItem()
	delete(item, "parsed_fields")
	got := normalizedItem(t, n, item)
	assert.NotContains(t, got, "parsed_fields")
}

func TestNormalizer_PassesThroughNonResults(t *testing.T) {
	n := newNormalizer(t)

	assert.Nil(t, n.Normalize(nil))
	assert.Equal(t, "text", n.Normalize("text"))
	assert.Equal(t, map[string]any{"items": "x"}, n.Normalize(map[string]any{"items": "x"}))
	assert.Equal(t,
		map[string]any{"items": []any{1.0, "x", nil}},
		n.Normalize(map[string]any{"items": []any{1.0, "x", nil}}))
}

func TestNormalizer_IsIdempotent(t *testing.T) {
	n := newNormalizer(t)

	once := n.Normalize(resultWith(0.8, taskItem(), map[string]any{"type": "event", "parsed_fields": map[string]any{}}))
	twice := n.Normalize(once)
	assert.Equal(t, once, twice)
}

func TestNormalizer_CopiesInput(t *testing.T) {
	n := newNormalizer(t)

	input := resultWith(0.8, taskItem())
	out := n.Normalize(input).(map[string]any)
	out["overall_confidence"] = 0.1
	out["items"].([]any)[0].(map[string]any)["title"] = "changed"

	assert.Equal(t, 0.8, input["overall_confidence"])
	assert.Equal(t, "Implement feature", input["items"].([]any)[0].(map[string]any)["title"])
}
