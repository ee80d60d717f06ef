/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package stages

import (
	"context"
	"fmt"
	"time"

	"chainguard.dev/healpipe/pipeline"
)

// Deploy applies the Kubernetes manifests.
type Deploy struct {
	cmd       pipeline.Commander
	manifests []string
	namespace string
}

// NewDeploy constructs the deploy stage.
func NewDeploy(cmd pipeline.Commander, cfg pipeline.DeployConfig) *Deploy {
	return &Deploy{
		cmd:       cmd,
		manifests: cfg.Manifests,
		namespace: cfg.Namespace,
	}
}

func (d *Deploy) Name() string { return "Deploy" }

func (d *Deploy) Run(ctx context.Context) error {
	for _, manifest := range d.manifests {
		if out, err := d.cmd.Run(ctx, pipeline.Command{
			Name: "kubectl",
			Args: []string{"apply", "-n", d.namespace, "-f", manifest},
		}); err != nil {
			return fmt.Errorf("applying %s: %w\n%s", manifest, err, out)
		}
	}
	return nil
}

// Rollout waits for the deployed resource to converge.
type Rollout struct {
	cmd       pipeline.Commander
	resource  string
	namespace string
	timeout   time.Duration
}

// NewRollout constructs the rollout-verification stage.
func NewRollout(cmd pipeline.Commander, cfg pipeline.RolloutConfig, namespace string) *Rollout {
	return &Rollout{
		cmd:       cmd,
		resource:  cfg.Resource,
		namespace: namespace,
		timeout:   time.Duration(cfg.Timeout),
	}
}

func (r *Rollout) Name() string { return "Verify Rollout" }

func (r *Rollout) Run(ctx context.Context) error {
	if out, err := r.cmd.Run(ctx, pipeline.Command{
		Name: "kubectl",
		Args: []string{
			"rollout", "status", r.resource,
			"-n", r.namespace,
			"--timeout", r.timeout.String(),
		},
	}); err != nil {
		return fmt.Errorf("rollout of %s did not converge: %w\n%s", r.resource, err, out)
	}
	return nil
}
