// SPDX-License-Identifier: Apache-2.0

package extraction

import "math"

// confidenceTolerance absorbs float rounding in upstream averages.
const confidenceTolerance = 1e-9

// ConfidenceBounds is the closed interval spanned by item confidences.
type ConfidenceBounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// BoundsOf returns the interval spanned by confidences. It reports false when
// there is nothing to summarize.
func BoundsOf(confidences []float64) (ConfidenceBounds, bool) {
	if len(confidences) == 0 {
		return ConfidenceBounds{}, false
	}
	b := ConfidenceBounds{Min: confidences[0], Max: confidences[0]}
	for _, c := range confidences[1:] {
		b.Min = math.Min(b.Min, c)
		b.Max = math.Max(b.Max, c)
	}
	return b, true
}

// Contains reports whether v lies within the bounds.
func (b ConfidenceBounds) Contains(v float64) bool {
	return v >= b.Min-confidenceTolerance && v <= b.Max+confidenceTolerance
}

// checkConfidence verifies that overall_confidence lies within the bounds of
// the item confidences. Confidences that are not numbers in [0, 1] are
// skipped, as is an unreadable overall_confidence; the Validator reports
// those.
func checkConfidence(root map[string]any) []Violation {
	raw, present := root["overall_confidence"]
	if !present {
		return nil
	}
	overall, ok := readConfidence(raw)
	if !ok {
		return nil
	}

	items, _ := root["items"].([]any)
	confidences := make([]float64, 0, len(items))
	for _, rawItem := range items {
		item, ok := rawItem.(map[string]any)
		if !ok {
			continue
		}
		if c, ok := readConfidence(item["confidence"]); ok {
			confidences = append(confidences, c)
		}
	}

	bounds, ok := BoundsOf(confidences)
	if !ok || bounds.Contains(overall) {
		return nil
	}
	return []Violation{violationf(Path{"overall_confidence"}, RuleConfidenceOutOfBounds, raw,
		"overall confidence %v is outside the item confidence range [%v, %v]", overall, bounds.Min, bounds.Max)}
}

func readConfidence(value any) (float64, bool) {
	c, ok := toFloat(value)
	if !ok || math.IsNaN(c) || c < 0 || c > 1 {
		return 0, false
	}
	return c, true
}
