/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package vcs

import "context"

// Commit is one entry of recent history, as surfaced to the model prompt.
type Commit struct {
	Hash    string
	Summary string
}

// VersionControl abstracts the source-control operations the remediation
// subsystem needs. The production implementation is backed by go-git (plus
// `git apply` for patch application); tests inject fakes so no subprocess or
// real repository is required.
type VersionControl interface {
	// Root returns the absolute path of the working tree.
	Root() string

	// CurrentBranch returns the short name of the checked-out branch, the
	// detached-head sentinel "HEAD" when not on a branch, or "" when the
	// repository has no commits yet.
	CurrentBranch(ctx context.Context) (string, error)

	// RecentCommits returns up to limit commits, newest first.
	RecentCommits(ctx context.Context, limit int) ([]Commit, error)

	// Status returns a porcelain-style summary of the working tree.
	Status(ctx context.Context) (string, error)

	// TrackedFiles returns the slash-separated paths of all files tracked at
	// HEAD.
	TrackedFiles(ctx context.Context) ([]string, error)

	// CheckApply verifies the unified diff would apply cleanly without
	// mutating the working tree.
	CheckApply(ctx context.Context, diff string) error

	// Apply applies the unified diff to the working tree.
	Apply(ctx context.Context, diff string) error

	// CreateBranch creates a branch at the current HEAD.
	CreateBranch(ctx context.Context, name string) error

	// Checkout switches the working tree to the named branch.
	Checkout(ctx context.Context, name string) error

	// StageAll stages every change in the working tree.
	StageAll(ctx context.Context) error

	// Commit records staged changes. An empty index is not an error.
	Commit(ctx context.Context, message string) error

	// Push pushes the named branch to origin.
	Push(ctx context.Context, branch string) error
}
