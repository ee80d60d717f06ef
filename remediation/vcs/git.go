/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// DetachedHead is the sentinel CurrentBranch returns when HEAD does not point
// at a branch.
const DetachedHead = "HEAD"

// Git implements VersionControl against an existing checkout. Most operations
// go through go-git; patch application shells out to `git apply` because
// go-git has no unified-diff support.
type Git struct {
	root     string
	repo     *git.Repository
	identity string
	token    string
}

// Option configures a Git.
type Option func(*Git)

// WithToken sets the access token used to authenticate pushes. Without it,
// pushes rely on whatever the remote URL allows (e.g. local test remotes).
func WithToken(token string) Option {
	return func(g *Git) {
		g.token = token
	}
}

// OpenGit opens the repository containing root. Identity is used as the
// commit author name and, when it lacks a domain, is suffixed with
// @chainguard.dev.
func OpenGit(root, identity string, opts ...Option) (*Git, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, errors.New("identity cannot be empty")
	}

	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", root, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}

	g := &Git{
		root:     wt.Filesystem.Root(),
		repo:     repo,
		identity: identity,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Root implements VersionControl.
func (g *Git) Root() string {
	return g.root
}

// CurrentBranch implements VersionControl.
func (g *Git) CurrentBranch(_ context.Context) (string, error) {
	head, err := g.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return DetachedHead, nil
	}
	return head.Name().Short(), nil
}

// RecentCommits implements VersionControl.
func (g *Git) RecentCommits(_ context.Context, limit int) ([]Commit, error) {
	iter, err := g.repo.Log(&git.LogOptions{})
	if err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}
	defer iter.Close()

	var commits []Commit
	for len(commits) < limit {
		c, err := iter.Next()
		if err != nil {
			break
		}
		summary, _, _ := strings.Cut(c.Message, "\n")
		commits = append(commits, Commit{
			Hash:    c.Hash.String(),
			Summary: strings.TrimSpace(summary),
		})
	}
	return commits, nil
}

// Status implements VersionControl.
func (g *Git) Status(_ context.Context) (string, error) {
	wt, err := g.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("getting worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("getting status: %w", err)
	}
	return status.String(), nil
}

// TrackedFiles implements VersionControl. Paths are taken from the tree at
// HEAD, so untracked working-tree files never leak into snapshots.
func (g *Git) TrackedFiles(_ context.Context) ([]string, error) {
	head, err := g.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("reading HEAD: %w", err)
	}
	commit, err := g.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("getting commit object: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("getting tree: %w", err)
	}

	var paths []string
	if err := tree.Files().ForEach(func(f *object.File) error {
		paths = append(paths, f.Name)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("walking tree: %w", err)
	}
	return paths, nil
}

// CheckApply implements VersionControl.
func (g *Git) CheckApply(ctx context.Context, diff string) error {
	return g.gitApply(ctx, diff, true)
}

// Apply implements VersionControl.
func (g *Git) Apply(ctx context.Context, diff string) error {
	return g.gitApply(ctx, diff, false)
}

func (g *Git) gitApply(ctx context.Context, diff string, check bool) error {
	if _, err := exec.LookPath("git"); err != nil {
		return fmt.Errorf("git binary not available: %w", err)
	}

	args := []string{"apply", "--whitespace=nowarn"}
	if check {
		args = append(args, "--check")
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.root
	cmd.Stdin = strings.NewReader(diff)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("git apply: %s", msg)
	}
	return nil
}

// CreateBranch implements VersionControl.
func (g *Git) CreateBranch(_ context.Context, name string) error {
	if name == "" {
		return errors.New("branch name cannot be empty")
	}
	head, err := g.repo.Head()
	if err != nil {
		return fmt.Errorf("reading HEAD: %w", err)
	}
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), head.Hash())
	if err := g.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("setting branch reference: %w", err)
	}
	return nil
}

// Checkout implements VersionControl.
func (g *Git) Checkout(_ context.Context, name string) error {
	wt, err := g.repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Keep:   true,
	}); err != nil {
		return fmt.Errorf("checking out branch %s: %w", name, err)
	}
	return nil
}

// StageAll implements VersionControl.
func (g *Git) StageAll(_ context.Context) error {
	wt, err := g.repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("staging changes: %w", err)
	}
	return nil
}

// Commit implements VersionControl. A commit with nothing staged is treated
// as a no-op, not an error.
func (g *Git) Commit(ctx context.Context, message string) error {
	wt, err := g.repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}

	email := g.identity
	if !strings.Contains(email, "@") {
		email = fmt.Sprintf("%s@chainguard.dev", email)
	}

	_, err = wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  g.identity,
			Email: email,
			When:  time.Now(),
		},
	})
	if err != nil {
		if errors.Is(err, git.ErrEmptyCommit) {
			clog.FromContext(ctx).Info("Nothing to commit")
			return nil
		}
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

// Push implements VersionControl.
func (g *Git) Push(ctx context.Context, branch string) error {
	refSpec := gitconfig.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))
	clog.FromContext(ctx).Infof("Pushing %s", refSpec)

	opts := &git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{refSpec},
	}
	if g.token != "" {
		opts.Auth = &githttp.BasicAuth{
			Username: "unused-when-using-access-tokens",
			Password: g.token,
		}
	}

	if err := g.repo.Push(opts); err != nil {
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			clog.FromContext(ctx).Info("Branch already up to date")
			return nil
		}
		return fmt.Errorf("pushing: %w", err)
	}
	return nil
}
