/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package remediation chains the self-healing steps that run after a
// pipeline stage fails: collect the failure context, render the prompt, call
// the model once, extract and validate the candidate patch, and publish it
// as a branch plus pull request for human review. Every step is a hard gate;
// an abort at any of them means no patch is applied anywhere, and no outcome
// of this chain ever re-fails the pipeline.
package remediation

import (
	"context"
	"fmt"
	"strings"

	"chainguard.dev/healpipe/remediation/collector"
	"chainguard.dev/healpipe/remediation/diagnostics"
	"chainguard.dev/healpipe/remediation/extractor"
	"chainguard.dev/healpipe/remediation/gate"
	"chainguard.dev/healpipe/remediation/patch"
	"chainguard.dev/healpipe/remediation/publish"
	"chainguard.dev/healpipe/remediation/snapshot"
	"chainguard.dev/healpipe/remediation/vcs"
	"github.com/chainguard-dev/clog"
)

// Generator produces raw model output for a rendered prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// PROpener opens the review pull request for a pushed branch.
type PROpener interface {
	Open(ctx context.Context, head, trunk, stage, buildID string) (string, error)
}

// Config carries the immutable per-process remediation settings. It is
// constructed once from external configuration and passed by parameter;
// nothing in this package reads ambient state.
type Config struct {
	AllowedPaths        patch.AllowList
	TrunkBranch         string
	BranchPrefix        string
	BuildID             string
	LogTailLines        int
	MaxSnapshotFileSize int64
}

// Remediator runs one remediation attempt per stage failure.
type Remediator struct {
	cfg   Config
	vcs   vcs.VersionControl
	model Generator
	prs   PROpener
	diag  *diagnostics.Recorder
}

// New constructs a Remediator.
func New(cfg Config, v vcs.VersionControl, model Generator, prs PROpener, diag *diagnostics.Recorder) *Remediator {
	return &Remediator{
		cfg:   cfg,
		vcs:   v,
		model: model,
		prs:   prs,
		diag:  diag,
	}
}

// Outcome describes what a successful (or partially successful) remediation
// left behind.
type Outcome struct {
	// Branch is the pushed remediation branch.
	Branch string
	// PRURL is the opened pull request, or "" when PR creation failed after
	// the branch was pushed.
	PRURL string
}

// Remediate runs the full chain for one stage failure. A gate abort returns
// the tagged error; the caller logs it and moves on — the original stage
// failure has already decided the pipeline's fate. When the returned Outcome
// is non-nil alongside an error, the branch was pushed but the pull request
// could not be created.
func (r *Remediator) Remediate(ctx context.Context, stage, message, logPath string) (*Outcome, error) {
	log := clog.FromContext(ctx)
	log.Infof("Starting remediation for failed stage %q (build %s)", stage, r.cfg.BuildID)

	fc := collector.Collect(ctx, r.vcs, stage, message, logPath, r.cfg.LogTailLines)
	r.diag.Record(ctx, diagnostics.FailureContextFile, []byte(fc.Render()))

	// Snapshot degradation mirrors collection: a thinner prompt is better
	// than no remediation attempt.
	var snap string
	tracked, err := r.vcs.TrackedFiles(ctx)
	if err != nil {
		log.Warnf("Listing tracked files: %v", err)
	} else {
		snap, err = snapshot.Build(ctx, r.vcs.Root(), tracked, r.cfg.AllowedPaths, r.cfg.MaxSnapshotFileSize)
		if err != nil {
			log.Warnf("Building repository snapshot: %v", err)
			snap = ""
		}
	}

	prompt, err := buildPrompt(fc, snap, r.cfg.AllowedPaths)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}
	r.diag.Record(ctx, diagnostics.PromptFile, []byte(prompt))

	raw, err := r.model.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	r.diag.Record(ctx, diagnostics.ModelResponseFile, raw)

	text := extractor.Extract(raw)
	r.diag.Record(ctx, diagnostics.PatchFile, []byte(strings.TrimSpace(text)))

	p, err := patch.Validate(ctx, text, r.cfg.AllowedPaths, r.vcs)
	if err != nil {
		return nil, err
	}
	r.diag.Record(ctx, diagnostics.ChangedFilesFile, []byte(strings.Join(p.TouchedPaths, "\n")+"\n"))

	branch, err := publish.Branch(ctx, r.vcs, p, stage, r.cfg.BuildID, r.cfg.TrunkBranch, r.cfg.BranchPrefix)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Branch: branch}

	prURL, err := r.prs.Open(ctx, branch, r.cfg.TrunkBranch, stage, r.cfg.BuildID)
	if err != nil {
		// The pushed branch stands; only the review record is missing.
		log.Warnf("Pull request creation failed, branch %s remains pushed: %v", branch, err)
		return out, err
	}
	out.PRURL = prURL

	log.Infof("Remediation complete: branch %s, PR %s", out.Branch, out.PRURL)
	return out, nil
}

// LogAbort logs why remediation stopped, distinguishing tagged gate aborts
// from unexpected errors.
func LogAbort(ctx context.Context, err error) {
	if reason, ok := gate.ReasonOf(err); ok {
		clog.FromContext(ctx).Infof("Remediation aborted at gate %s: %v", reason, err)
		return
	}
	clog.FromContext(ctx).Warnf("Remediation failed: %v", err)
}
