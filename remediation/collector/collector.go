/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package collector assembles the failure bundle handed to the prompt.
// Collection never fails the caller: every sub-step that errors degrades to
// an empty field with a warning, because by the time we are collecting, the
// pipeline has already failed for its own reason and nothing here may make
// that worse.
package collector

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"chainguard.dev/healpipe/remediation/vcs"
	"github.com/chainguard-dev/clog"
)

// DefaultTailLines bounds the build-log tail embedded in the prompt.
const DefaultTailLines = 200

const defaultCommitCount = 10

// FailureContext is the immutable bundle describing one stage failure. It is
// created once per failing stage and consumed only by the prompt builder.
type FailureContext struct {
	Stage          string
	Message        string
	RecentCommits  []vcs.Commit
	WorktreeStatus string
	BuildLogTail   string
}

// Collect gathers the failure context for the named stage. logPath may be
// empty for stages that produce no log file.
func Collect(ctx context.Context, v vcs.VersionControl, stage, message, logPath string, tailLines int) FailureContext {
	log := clog.FromContext(ctx)
	if tailLines <= 0 {
		tailLines = DefaultTailLines
	}

	fc := FailureContext{
		Stage:   stage,
		Message: message,
	}

	commits, err := v.RecentCommits(ctx, defaultCommitCount)
	if err != nil {
		log.Warnf("Collecting recent commits: %v", err)
	}
	fc.RecentCommits = commits

	status, err := v.Status(ctx)
	if err != nil {
		log.Warnf("Collecting worktree status: %v", err)
	}
	fc.WorktreeStatus = status

	if logPath != "" {
		tail, err := tailFile(logPath, tailLines)
		if err != nil {
			log.Warnf("Collecting build log tail from %s: %v", logPath, err)
		}
		fc.BuildLogTail = tail
	}

	return fc
}

// Render produces the human-readable form of the context written to the
// diagnostics directory.
func (fc FailureContext) Render() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Stage: %s\n", fc.Stage)
	fmt.Fprintf(&sb, "Failure: %s\n", fc.Message)
	sb.WriteString("\nRecent commits:\n")
	for _, c := range fc.RecentCommits {
		fmt.Fprintf(&sb, "  %s %s\n", shortHash(c.Hash), c.Summary)
	}
	sb.WriteString("\nWorking tree status:\n")
	sb.WriteString(indent(fc.WorktreeStatus))
	sb.WriteString("\nBuild log tail:\n")
	sb.WriteString(indent(fc.BuildLogTail))
	return sb.String()
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}

func indent(s string) string {
	if s == "" {
		return "  (empty)\n"
	}
	var sb strings.Builder
	for _, line := range strings.Split(strings.TrimRight(s, "\n"), "\n") {
		sb.WriteString("  " + line + "\n")
	}
	return sb.String()
}

// tailFile returns the last n lines of the file at path.
func tailFile(path string, n int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}
