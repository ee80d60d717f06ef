/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package stages holds the concrete delivery stages. Each is a thin wrapper
// around one external tool; failures carry the tool's output so the
// remediation prompt has something to work with.
package stages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"chainguard.dev/healpipe/pipeline"
	"github.com/chainguard-dev/clog"
)

// Build runs the build tool and captures its combined output to a log file.
// The log file is written even when the tool fails to start, so the failure
// collector always has something to read.
type Build struct {
	cmd     pipeline.Commander
	command []string
	logPath string
}

// NewBuild constructs the build stage.
func NewBuild(cmd pipeline.Commander, cfg pipeline.BuildConfig) *Build {
	return &Build{
		cmd:     cmd,
		command: cfg.Command,
		logPath: cfg.Log,
	}
}

func (b *Build) Name() string { return "Maven Build" }

func (b *Build) LogPath() string { return b.logPath }

func (b *Build) Run(ctx context.Context) error {
	out, runErr := b.cmd.Run(ctx, pipeline.Command{
		Name: b.command[0],
		Args: b.command[1:],
	})
	if len(out) == 0 {
		out = []byte("(no build output captured)\n")
	}
	if err := b.writeLog(out); err != nil {
		clog.FromContext(ctx).Warnf("Writing build log: %v", err)
	}
	if runErr != nil {
		return fmt.Errorf("running %v: %w", b.command, runErr)
	}
	return nil
}

func (b *Build) writeLog(out []byte) error {
	if err := os.MkdirAll(filepath.Dir(b.logPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(b.logPath, out, 0o644)
}
