package finchat

import (
	"encoding/json"
	"strings"
)

// ExtractContent resolves the text content of a V1 result object through
// an ordered fallback chain, so a successful run never yields an empty
// string: content, then content_translated, then metadata["content"],
// then the stringified result object itself.
func ExtractContent(res *Result) string {
	if res == nil {
		return ""
	}
	if res.Content != "" {
		return res.Content
	}
	if res.ContentTranslated != "" {
		return res.ContentTranslated
	}
	if res.Metadata != nil {
		if s, ok := res.Metadata["content"].(string); ok && s != "" {
			return s
		}
	}
	if len(res.Raw) > 0 {
		return string(res.Raw)
	}
	b, err := json.Marshal(res)
	if err != nil {
		return ""
	}
	return string(b)
}

// contentPart is one element of an MCP-style content list.
type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ExtractItemContent resolves a V2 result item's content, which the
// gateway returns in one of three shapes: a scalar string, a list of
// typed text items, or an arbitrary JSON object. The shapes are probed
// in that order; an unrecognised shape is returned stringified.
func ExtractItemContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err == nil && len(parts) > 0 {
		texts := make([]string, 0, len(parts))
		for _, p := range parts {
			if p.Text != "" {
				texts = append(texts, p.Text)
			}
		}
		if len(texts) > 0 {
			return strings.Join(texts, "\n")
		}
	}

	return string(raw)
}
