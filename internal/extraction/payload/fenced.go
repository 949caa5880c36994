// SPDX-License-Identifier: Apache-2.0

package payload

import (
	"fmt"
	"strings"
)

const fence = "```"

// FencedDecoder unwraps payloads that arrive inside a Markdown code fence,
// as model output often does, and hands the body to an inner pipeline. The
// fence language (```json, ```yaml) becomes the format hint.
type FencedDecoder struct {
	inner *Pipeline
}

func NewFencedDecoder(inner *Pipeline) *FencedDecoder {
	return &FencedDecoder{inner: inner}
}

func (d *FencedDecoder) Name() string {
	return "fenced"
}

func (d *FencedDecoder) CanHandle(source Source) bool {
	return strings.HasPrefix(trimmed(source), fence)
}

func (d *FencedDecoder) Decode(source Source) (any, error) {
	content := trimmed(source)
	header, body, found := strings.Cut(content, "\n")
	if !found {
		return nil, fmt.Errorf("code fence has no body")
	}
	end := strings.LastIndex(body, fence)
	if end == -1 {
		return nil, fmt.Errorf("code fence is not closed")
	}
	body = body[:end]

	format := source.Format
	if format == "" {
		format = strings.TrimSpace(strings.TrimPrefix(header, fence))
	}
	decoded, err := d.inner.Decode(Source{Content: []byte(body), Format: format})
	if err != nil {
		return nil, err
	}
	return decoded.Value, nil
}
