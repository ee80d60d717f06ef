/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package snapshot packages the allow-listed subtree of the checkout into a
// base64-encoded gzip tarball for embedding in the model prompt. Snapshots
// are built fresh per run and never persisted. Entries are sorted and
// timestamps zeroed so identical trees encode identically, which keeps the
// rendered prompt deterministic.
package snapshot

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"chainguard.dev/healpipe/remediation/patch"
	"github.com/chainguard-dev/clog"
)

// DefaultMaxFileSize is the per-file cap; anything larger is skipped with a
// warning so one binary blob cannot blow the prompt budget.
const DefaultMaxFileSize = 256 * 1024

// Build archives the tracked files under root that fall inside the
// allow-list and returns the archive as base64. Files that vanished from the
// working tree or exceed maxFileSize are skipped, not fatal.
func Build(ctx context.Context, root string, tracked []string, allow patch.AllowList, maxFileSize int64) (string, error) {
	log := clog.FromContext(ctx)
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}

	var included []string
	for _, p := range tracked {
		if allow.Allows(p) {
			included = append(included, p)
		}
	}
	sort.Strings(included)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, p := range included {
		full := filepath.Join(root, filepath.FromSlash(p))
		info, err := os.Stat(full)
		if err != nil {
			log.Warnf("Skipping %s: %v", p, err)
			continue
		}
		if info.Size() > maxFileSize {
			log.Warnf("Skipping %s: %d bytes exceeds snapshot cap", p, info.Size())
			continue
		}

		data, err := os.ReadFile(full)
		if err != nil {
			log.Warnf("Skipping %s: %v", p, err)
			continue
		}

		if err := tw.WriteHeader(&tar.Header{
			Name: p,
			Mode: 0o644,
			Size: int64(len(data)),
		}); err != nil {
			return "", fmt.Errorf("writing tar header for %s: %w", p, err)
		}
		if _, err := tw.Write(data); err != nil {
			return "", fmt.Errorf("writing tar entry for %s: %w", p, err)
		}
	}

	if err := tw.Close(); err != nil {
		return "", fmt.Errorf("closing tar writer: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("closing gzip writer: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
