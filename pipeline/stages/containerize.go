/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package stages

import (
	"context"
	"fmt"

	"chainguard.dev/healpipe/pipeline"
)

// Containerize builds the container image and pushes it to the registry.
type Containerize struct {
	cmd     pipeline.Commander
	image   string
	context string
}

// NewContainerize constructs the containerize stage.
func NewContainerize(cmd pipeline.Commander, cfg pipeline.ContainerizeConfig) *Containerize {
	return &Containerize{
		cmd:     cmd,
		image:   cfg.Image,
		context: cfg.Context,
	}
}

func (c *Containerize) Name() string { return "Containerize" }

func (c *Containerize) Run(ctx context.Context) error {
	if out, err := c.cmd.Run(ctx, pipeline.Command{
		Name: "docker",
		Args: []string{"build", "-t", c.image, c.context},
	}); err != nil {
		return fmt.Errorf("building image %s: %w\n%s", c.image, err, out)
	}
	if out, err := c.cmd.Run(ctx, pipeline.Command{
		Name: "docker",
		Args: []string{"push", c.image},
	}); err != nil {
		return fmt.Errorf("pushing image %s: %w\n%s", c.image, err, out)
	}
	return nil
}
