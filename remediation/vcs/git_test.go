/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package vcs

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// initTestRepo creates a repository with a couple of commits touching
// src/main/java/Foo.java and pom.xml.
func initTestRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}

	write := func(rel, content string) {
		t.Helper()
		full := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		if _, err := wt.Add(rel); err != nil {
			t.Fatalf("Add %s: %v", rel, err)
		}
	}

	commit := func(msg string) plumbing.Hash {
		t.Helper()
		h, err := wt.Commit(msg, &git.CommitOptions{
			Author: &object.Signature{Name: "tests", Email: "tests@chainguard.dev", When: time.Now()},
		})
		if err != nil {
			t.Fatalf("Commit: %v", err)
		}
		return h
	}

	write("pom.xml", "<project/>\n")
	write("src/main/java/Foo.java", "class Foo {}\n")
	commit("initial import")
	write("src/main/java/Foo.java", "class Foo { int x; }\n")
	commit("add field to Foo")

	return dir, repo
}

func TestCurrentBranchAndRecentCommits(t *testing.T) {
	ctx := context.Background()
	dir, repo := initTestRepo(t)

	g, err := OpenGit(dir, "healpipe-test")
	if err != nil {
		t.Fatalf("OpenGit: %v", err)
	}

	branch, err := g.CurrentBranch(ctx)
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	if branch != "master" {
		t.Fatalf("CurrentBranch = %q, want master", branch)
	}

	commits, err := g.RecentCommits(ctx, 5)
	if err != nil {
		t.Fatalf("RecentCommits: %v", err)
	}
	if len(commits) != 2 {
		t.Fatalf("got %d commits, want 2", len(commits))
	}
	if commits[0].Summary != "add field to Foo" {
		t.Fatalf("newest commit summary = %q", commits[0].Summary)
	}

	// Detach HEAD and verify the sentinel.
	head, err := repo.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: head.Hash()}); err != nil {
		t.Fatalf("Checkout detached: %v", err)
	}
	branch, err = g.CurrentBranch(ctx)
	if err != nil {
		t.Fatalf("CurrentBranch detached: %v", err)
	}
	if branch != DetachedHead {
		t.Fatalf("CurrentBranch = %q, want %q", branch, DetachedHead)
	}
}

func TestTrackedFiles(t *testing.T) {
	ctx := context.Background()
	dir, _ := initTestRepo(t)

	// Untracked files must not show up.
	if err := os.WriteFile(filepath.Join(dir, "scratch.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	g, err := OpenGit(dir, "healpipe-test")
	if err != nil {
		t.Fatalf("OpenGit: %v", err)
	}

	files, err := g.TrackedFiles(ctx)
	if err != nil {
		t.Fatalf("TrackedFiles: %v", err)
	}

	got := map[string]bool{}
	for _, f := range files {
		got[f] = true
	}
	if !got["pom.xml"] || !got["src/main/java/Foo.java"] {
		t.Fatalf("missing tracked files, got %v", files)
	}
	if got["scratch.txt"] {
		t.Fatalf("untracked file leaked into TrackedFiles: %v", files)
	}
}

func TestBranchCommitLifecycle(t *testing.T) {
	ctx := context.Background()
	dir, repo := initTestRepo(t)

	g, err := OpenGit(dir, "healpipe-test")
	if err != nil {
		t.Fatalf("OpenGit: %v", err)
	}

	if err := g.CreateBranch(ctx, "ai-fix-42"); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := g.Checkout(ctx, "ai-fix-42"); err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	branch, err := g.CurrentBranch(ctx)
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	if branch != "ai-fix-42" {
		t.Fatalf("CurrentBranch = %q, want ai-fix-42", branch)
	}

	// Committing with a clean tree is a no-op, not an error.
	if err := g.Commit(ctx, "empty"); err != nil {
		t.Fatalf("Commit on clean tree: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "pom.xml"), []byte("<project><x/></project>\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := g.StageAll(ctx); err != nil {
		t.Fatalf("StageAll: %v", err)
	}
	if err := g.Commit(ctx, "fix pom"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	head, err := repo.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		t.Fatalf("CommitObject: %v", err)
	}
	if commit.Message != "fix pom" {
		t.Fatalf("commit message = %q", commit.Message)
	}
	if commit.Author.Email != "healpipe-test@chainguard.dev" {
		t.Fatalf("author email = %q", commit.Author.Email)
	}
}

func TestApplyAndCheckApply(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}

	ctx := context.Background()
	dir, _ := initTestRepo(t)

	g, err := OpenGit(dir, "healpipe-test")
	if err != nil {
		t.Fatalf("OpenGit: %v", err)
	}

	diff := `diff --git a/src/main/java/Foo.java b/src/main/java/Foo.java
--- a/src/main/java/Foo.java
+++ b/src/main/java/Foo.java
@@ -1 +1 @@
-class Foo { int x; }
+class Foo { int x; int y; }
`

	if err := g.CheckApply(ctx, diff); err != nil {
		t.Fatalf("CheckApply: %v", err)
	}

	// The dry run must not touch the file.
	data, err := os.ReadFile(filepath.Join(dir, "src", "main", "java", "Foo.java"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "class Foo { int x; }\n" {
		t.Fatalf("CheckApply mutated the working tree: %q", data)
	}

	if err := g.Apply(ctx, diff); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	data, err = os.ReadFile(filepath.Join(dir, "src", "main", "java", "Foo.java"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "class Foo { int x; int y; }\n" {
		t.Fatalf("Apply produced %q", data)
	}

	// A diff that no longer matches must fail the check.
	if err := g.CheckApply(ctx, diff); err == nil {
		t.Fatal("CheckApply of stale diff succeeded, want error")
	}
}

func TestPushToLocalRemote(t *testing.T) {
	ctx := context.Background()
	dir, repo := initTestRepo(t)

	remoteDir := t.TempDir()
	if _, err := git.PlainInit(remoteDir, true); err != nil {
		t.Fatalf("PlainInit bare: %v", err)
	}
	if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{remoteDir},
	}); err != nil {
		t.Fatalf("CreateRemote: %v", err)
	}

	g, err := OpenGit(dir, "healpipe-test")
	if err != nil {
		t.Fatalf("OpenGit: %v", err)
	}

	if err := g.Push(ctx, "master"); err != nil {
		t.Fatalf("Push: %v", err)
	}
	// Pushing again is already-up-to-date, tolerated.
	if err := g.Push(ctx, "master"); err != nil {
		t.Fatalf("second Push: %v", err)
	}

	remote, err := git.PlainOpen(remoteDir)
	if err != nil {
		t.Fatalf("PlainOpen remote: %v", err)
	}
	if _, err := remote.Reference(plumbing.NewBranchReferenceName("master"), true); err != nil {
		t.Fatalf("remote missing pushed branch: %v", err)
	}

	if err := g.Push(ctx, fmt.Sprintf("no-such-branch-%d", time.Now().UnixNano())); err == nil {
		t.Fatal("pushing a missing branch succeeded, want error")
	}
}
