/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/chainguard-dev/clog"
)

// Command is one external tool invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory; "" runs in the process's directory.
	Dir string
}

// Commander runs external tools. Stages depend on this interface so tests
// never need real mvn/docker/kubectl binaries on the path.
type Commander interface {
	// Run executes the command and returns its combined output. A non-zero
	// exit is returned as an error alongside whatever output was produced.
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// ExecCommander runs commands with os/exec.
type ExecCommander struct{}

var _ Commander = ExecCommander{}

func (ExecCommander) Run(ctx context.Context, cmd Command) ([]byte, error) {
	clog.FromContext(ctx).Infof("Running %s %s", cmd.Name, strings.Join(cmd.Args, " "))

	command := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	command.Dir = cmd.Dir
	out, err := command.CombinedOutput()
	if err != nil {
		// Stage errors end up in failure messages and prompts; naming the
		// tool beats a bare "exit status 1".
		return out, fmt.Errorf("%s: %w", cmd.Name, err)
	}
	return out, nil
}
