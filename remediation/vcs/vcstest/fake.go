/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package vcstest provides a canned VersionControl implementation for tests
// of the remediation chain, so no real repository or git binary is needed.
package vcstest

import (
	"context"

	"chainguard.dev/healpipe/remediation/vcs"
)

// Fake implements vcs.VersionControl with configurable results. Every
// mutating call is appended to Calls so tests can assert that aborted
// remediations left no side effects.
type Fake struct {
	RootDir    string
	Branch     string
	Commits    []vcs.Commit
	StatusText string
	Files      []string

	CheckApplyErr error
	ApplyErr      error
	BranchErr     error
	CommitErr     error
	PushErr       error

	Calls []string
}

var _ vcs.VersionControl = (*Fake)(nil)

func (f *Fake) Root() string { return f.RootDir }

func (f *Fake) CurrentBranch(context.Context) (string, error) { return f.Branch, nil }

func (f *Fake) RecentCommits(context.Context, int) ([]vcs.Commit, error) { return f.Commits, nil }

func (f *Fake) Status(context.Context) (string, error) { return f.StatusText, nil }

func (f *Fake) TrackedFiles(context.Context) ([]string, error) { return f.Files, nil }

func (f *Fake) CheckApply(context.Context, string) error {
	f.Calls = append(f.Calls, "check-apply")
	return f.CheckApplyErr
}

func (f *Fake) Apply(context.Context, string) error {
	f.Calls = append(f.Calls, "apply")
	return f.ApplyErr
}

func (f *Fake) CreateBranch(_ context.Context, name string) error {
	f.Calls = append(f.Calls, "create-branch "+name)
	return f.BranchErr
}

func (f *Fake) Checkout(_ context.Context, name string) error {
	f.Calls = append(f.Calls, "checkout "+name)
	f.Branch = name
	return f.BranchErr
}

func (f *Fake) StageAll(context.Context) error {
	f.Calls = append(f.Calls, "stage-all")
	return nil
}

func (f *Fake) Commit(_ context.Context, message string) error {
	f.Calls = append(f.Calls, "commit "+message)
	return f.CommitErr
}

func (f *Fake) Push(_ context.Context, branch string) error {
	f.Calls = append(f.Calls, "push "+branch)
	return f.PushErr
}

// Mutated reports whether any working-tree or remote mutation was recorded.
// The dry-run apply check does not count.
func (f *Fake) Mutated() bool {
	for _, c := range f.Calls {
		if c != "check-apply" {
			return true
		}
	}
	return false
}
