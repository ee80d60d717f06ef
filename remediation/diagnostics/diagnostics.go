/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package diagnostics writes the remediation audit trail: the rendered
// failure context, the prompt, the raw model response, the extracted patch,
// and the changed-file list. One file per artifact per run, overwritten each
// run. Nothing downstream consumes these; they exist for humans debugging a
// remediation attempt, so a write failure is a warning and never an error.
package diagnostics

import (
	"context"
	"os"
	"path/filepath"

	"github.com/chainguard-dev/clog"
)

// Well-known artifact names within the diagnostics directory.
const (
	FailureContextFile = "failure-context.txt"
	PromptFile         = "prompt.txt"
	ModelResponseFile  = "model-response.json"
	PatchFile          = "patch.diff"
	ChangedFilesFile   = "changed-files.txt"
)

// Recorder writes artifacts into a fixed directory.
type Recorder struct {
	dir string
}

// NewRecorder ensures dir exists and returns a Recorder for it. When the
// directory cannot be created the recorder still works as a no-op sink.
func NewRecorder(ctx context.Context, dir string) *Recorder {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		clog.FromContext(ctx).Warnf("Creating diagnostics dir %s: %v", dir, err)
		return &Recorder{}
	}
	return &Recorder{dir: dir}
}

// Dir returns the diagnostics directory, or "" for a no-op recorder.
func (r *Recorder) Dir() string {
	return r.dir
}

// Record writes content under the given artifact name, overwriting any
// previous run's artifact.
func (r *Recorder) Record(ctx context.Context, name string, content []byte) {
	if r.dir == "" {
		return
	}
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		clog.FromContext(ctx).Warnf("Writing diagnostic %s: %v", path, err)
	}
}
