/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package publish lands a validated patch on a branch and opens the pull
// request that puts it in front of a human. It never merges anything and
// never touches the trunk branch directly.
package publish

import (
	"context"
	"fmt"

	"chainguard.dev/healpipe/remediation/gate"
	"chainguard.dev/healpipe/remediation/patch"
	"chainguard.dev/healpipe/remediation/vcs"
	"github.com/chainguard-dev/clog"
)

// SelectBranch implements the branch policy: an unset branch, the
// detached-head sentinel, or the trunk branch derives a fresh
// "<prefix>-<buildID>" name; any other branch is reused as-is. The derived
// name is deterministic on purpose; two concurrent trunk runs sharing a
// build id collide at push time and the second surfaces PublishFailure.
func SelectBranch(current, trunk, prefix, buildID string) string {
	if current == "" || current == vcs.DetachedHead || current == trunk {
		return fmt.Sprintf("%s-%s", prefix, buildID)
	}
	return current
}

// Branch applies a validated patch on the selected branch, commits it, and
// pushes once. Any failure aborts with ReasonPublishFailure before a pull
// request is attempted.
func Branch(ctx context.Context, v vcs.VersionControl, p *patch.Patch, stage, buildID, trunk, prefix string) (string, error) {
	log := clog.FromContext(ctx)

	current, err := v.CurrentBranch(ctx)
	if err != nil {
		return "", gate.Abortf(gate.ReasonPublishFailure, "reading current branch: %w", err)
	}

	name := SelectBranch(current, trunk, prefix, buildID)
	if name != current {
		log.Infof("Deriving remediation branch %s from %s", name, orDetached(current))
		if err := v.CreateBranch(ctx, name); err != nil {
			return "", gate.Abortf(gate.ReasonPublishFailure, "creating branch %s: %w", name, err)
		}
		if err := v.Checkout(ctx, name); err != nil {
			return "", gate.Abortf(gate.ReasonPublishFailure, "checking out branch %s: %w", name, err)
		}
	} else {
		log.Infof("Reusing current branch %s", name)
	}

	if err := v.Apply(ctx, p.Diff); err != nil {
		return "", gate.Abortf(gate.ReasonPublishFailure, "applying patch: %w", err)
	}
	if err := v.StageAll(ctx); err != nil {
		return "", gate.Abortf(gate.ReasonPublishFailure, "staging changes: %w", err)
	}

	message := fmt.Sprintf("Automated remediation for %s failure (build %s)", stage, buildID)
	if err := v.Commit(ctx, message); err != nil {
		return "", gate.Abortf(gate.ReasonPublishFailure, "committing: %w", err)
	}

	if err := v.Push(ctx, name); err != nil {
		return "", gate.Abortf(gate.ReasonPublishFailure, "pushing branch %s: %w", name, err)
	}

	log.Infof("Pushed remediation branch %s", name)
	return name, nil
}

func orDetached(branch string) string {
	if branch == "" {
		return "(no branch)"
	}
	return branch
}
