/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package patch

import (
	"context"
	"strings"

	"chainguard.dev/healpipe/remediation/gate"
	"chainguard.dev/healpipe/remediation/vcs"
	"github.com/chainguard-dev/clog"
)

// Validate runs the four safety gates over extracted model output, in order:
// empty text, no changed files, disallowed paths, and the dry-run apply
// check. It returns the parsed Patch only when every gate passes; any abort
// carries the gate's Reason and the patch is never partially applied.
func Validate(ctx context.Context, text string, allow AllowList, v vcs.VersionControl) (*Patch, error) {
	log := clog.FromContext(ctx)

	if strings.TrimSpace(text) == "" {
		return nil, gate.Abortf(gate.ReasonEmptyResponse, "model returned no patch text")
	}

	p, err := Parse(text)
	if err != nil {
		return nil, gate.Abortf(gate.ReasonNoChangedFiles, "parsing diff: %w", err)
	}
	if len(p.TouchedPaths) == 0 {
		return nil, gate.Abortf(gate.ReasonNoChangedFiles, "diff names no target files")
	}
	log.Infof("Patch touches %d file(s): %s", len(p.TouchedPaths), strings.Join(p.TouchedPaths, ", "))

	if bad := p.Disallowed(allow); len(bad) > 0 {
		return nil, gate.Abortf(gate.ReasonDisallowedPath, "patch touches paths outside the allow-list: %s", strings.Join(bad, ", "))
	}

	if err := v.CheckApply(ctx, p.Diff); err != nil {
		return nil, gate.Abortf(gate.ReasonPatchDoesNotApply, "dry-run apply failed: %w", err)
	}

	return p, nil
}
