/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package patch parses model output as a unified diff and enforces the
// safety policy before anything touches the working tree. The allow-list
// check is the scope-creep defense: a patch may only touch paths under an
// explicitly configured set of prefixes, and prefix matching is segment
// exact so neither path traversal nor prefix spoofing can slip through.
package patch

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/waigani/diffparser"
)

// Patch is a validated-or-validatable unified diff plus the set of file
// paths it touches.
type Patch struct {
	// Diff is the raw unified-diff text, newline terminated.
	Diff string
	// TouchedPaths holds the sorted, de-duplicated slash paths the diff
	// modifies, adds, or deletes.
	TouchedPaths []string
}

// Parse parses text as a unified diff and derives the touched paths from the
// per-file headers. Text that parses but names no files yields a Patch with
// an empty TouchedPaths; the caller gates on that.
func Parse(text string) (_ *Patch, err error) {
	// diffparser indexes into the current file without nil checks, so
	// headerless "---/+++" input must degrade to a parse error, not a crash.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed diff: %v", r)
		}
	}()

	text = strings.TrimSpace(text)
	diff, err := diffparser.Parse(text)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	for _, f := range diff.Files {
		// The changed target is the new name except for deletions, where
		// only the original name survives.
		name := f.NewName
		if f.Mode == diffparser.DELETED || name == "" {
			name = f.OrigName
		}
		name = normalizeDiffPath(name)
		if name == "" {
			continue
		}
		seen[name] = struct{}{}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	// git apply insists on a trailing newline.
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	return &Patch{Diff: text, TouchedPaths: paths}, nil
}

// normalizeDiffPath strips the conventional a/ and b/ prefixes and discards
// the null-device marker.
func normalizeDiffPath(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == "/dev/null" {
		return ""
	}
	if rest, ok := strings.CutPrefix(name, "a/"); ok {
		return rest
	}
	if rest, ok := strings.CutPrefix(name, "b/"); ok {
		return rest
	}
	return name
}

// AllowList is the fixed set of path prefixes a patch is permitted to touch.
// Entries ending in "/" are directory prefixes; all other entries match one
// exact file path. The list is set at process configuration time and never
// mutated.
type AllowList []string

// Allows reports whether p falls inside the allow-list. The path is cleaned
// first, and anything absolute or escaping the tree is rejected outright.
func (a AllowList) Allows(p string) bool {
	p = strings.TrimSpace(p)
	if p == "" || strings.Contains(p, "\\") {
		return false
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || path.IsAbs(clean) || strings.HasPrefix(clean, "../") {
		return false
	}

	for _, entry := range a {
		if dir, ok := strings.CutSuffix(entry, "/"); ok {
			// Segment-exact: "src/" admits "src/x" but not "src-evil/x".
			if clean == dir || strings.HasPrefix(clean, dir+"/") {
				return true
			}
			continue
		}
		if clean == entry {
			return true
		}
	}
	return false
}

// Disallowed returns every touched path that falls outside the allow-list,
// in order, for inclusion in the abort message.
func (p *Patch) Disallowed(allow AllowList) []string {
	var bad []string
	for _, tp := range p.TouchedPaths {
		if !allow.Allows(tp) {
			bad = append(bad, tp)
		}
	}
	return bad
}
