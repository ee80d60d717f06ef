/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package extractor pulls generated text out of a model response body.
// Vendors have shipped several response layouts over time, so extraction
// tries each known shape in order and concatenates whatever matches.
// Extraction is total: malformed or unrecognized input yields "", never an
// error, and the empty-response gate downstream decides what that means.
package extractor

import (
	"encoding/json"
	"strings"
)

// part is the recursive content fragment: some layouts put text directly on
// the element, others nest it another level down in parts.
type part struct {
	Text  string `json:"text"`
	Parts []part `json:"parts"`
}

type envelope struct {
	Candidates []struct {
		Content json.RawMessage `json:"content"`
	} `json:"candidates"`
	Output   json.RawMessage `json:"output"`
	Response json.RawMessage `json:"response"`
}

// Extract returns the concatenated generated text from raw, or "" when no
// known shape matches.
func Extract(raw []byte) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}

	// Shapes (a) and (b): candidates[].content as a part list or a single
	// part object.
	var sb strings.Builder
	for _, cand := range env.Candidates {
		sb.WriteString(contentText(cand.Content))
	}
	if sb.Len() > 0 {
		return sb.String()
	}

	// Shape (c): top-level "output".
	if text := rawString(env.Output); text != "" {
		return text
	}

	// Shape (d): top-level "response", stringified.
	return rawString(env.Response)
}

// contentText extracts text from a content value that may be either a list
// of parts or a single part object.
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var list []part
	if err := json.Unmarshal(raw, &list); err == nil {
		var sb strings.Builder
		for _, p := range list {
			sb.WriteString(partText(p))
		}
		return sb.String()
	}

	var single part
	if err := json.Unmarshal(raw, &single); err == nil {
		return partText(single)
	}

	return ""
}

func partText(p part) string {
	if p.Text != "" && len(p.Parts) == 0 {
		return p.Text
	}
	var sb strings.Builder
	sb.WriteString(p.Text)
	for _, nested := range p.Parts {
		sb.WriteString(partText(nested))
	}
	return sb.String()
}

// rawString renders a raw JSON value as text: strings decode, anything else
// is kept in its JSON form.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
