/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package pipeline runs the delivery stages in order. Stages are plain
// sequential tool invocations; all decision logic lives in the remediation
// subsystem, which the caller invokes when Run reports a failure.
package pipeline

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"
)

// Stage is one step of the delivery pipeline.
type Stage interface {
	// Name identifies the stage in logs, failure reports and prompts.
	Name() string
	// Run executes the stage to completion.
	Run(ctx context.Context) error
}

// LogProvider is implemented by stages that leave a log file behind for the
// failure collector to read.
type LogProvider interface {
	LogPath() string
}

// StageFailure describes the first stage that failed.
type StageFailure struct {
	Stage string
	Err   error
	// LogPath points at the failing stage's log file, or "" when the stage
	// produces none.
	LogPath string
}

func (f *StageFailure) Error() string {
	return fmt.Sprintf("stage %q failed: %v", f.Stage, f.Err)
}

func (f *StageFailure) Unwrap() error { return f.Err }

// Runner executes stages strictly in order.
type Runner struct {
	stages []Stage
}

// NewRunner constructs a Runner over the given stages.
func NewRunner(stages ...Stage) *Runner {
	return &Runner{stages: stages}
}

// Run executes each stage to completion before starting the next. It returns
// the failure of the first stage that errors; stages after it do not run.
// A nil return means the whole pipeline succeeded.
func (r *Runner) Run(ctx context.Context) *StageFailure {
	log := clog.FromContext(ctx)
	for _, stage := range r.stages {
		log.Infof("Running stage %q", stage.Name())
		if err := stage.Run(ctx); err != nil {
			log.Errorf("Stage %q failed: %v", stage.Name(), err)
			failure := &StageFailure{Stage: stage.Name(), Err: err}
			if lp, ok := stage.(LogProvider); ok {
				failure.LogPath = lp.LogPath()
			}
			return failure
		}
		log.Infof("Stage %q succeeded", stage.Name())
	}
	return nil
}
