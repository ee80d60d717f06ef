/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config describes the pipeline's shape: which tools to run and with what
// arguments. It comes from a YAML file checked into the repository being
// delivered; credentials and endpoints never appear here.
type Config struct {
	Build        BuildConfig        `yaml:"build"`
	Containerize ContainerizeConfig `yaml:"containerize"`
	Deploy       DeployConfig       `yaml:"deploy"`
	Rollout      RolloutConfig      `yaml:"rollout"`
	Health       HealthConfig       `yaml:"health"`
}

type BuildConfig struct {
	// Command is the build tool invocation, e.g. ["mvn", "-B", "package"].
	Command []string `yaml:"command"`
	// Log is where the stage writes the tool's combined output. The file is
	// created even when the tool never starts.
	Log string `yaml:"log"`
}

type ContainerizeConfig struct {
	// Image is the fully qualified tag to build and push.
	Image string `yaml:"image"`
	// Context is the docker build context directory.
	Context string `yaml:"context"`
}

type DeployConfig struct {
	Manifests []string `yaml:"manifests"`
	Namespace string   `yaml:"namespace"`
}

type RolloutConfig struct {
	// Resource is the kubectl rollout target, e.g. "deployment/shop".
	Resource string   `yaml:"resource"`
	Timeout  Duration `yaml:"timeout"`
}

type HealthConfig struct {
	URL      string   `yaml:"url"`
	Attempts int      `yaml:"attempts"`
	Interval Duration `yaml:"interval"`
}

// Duration parses YAML scalars like "30s" or "2m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// LoadConfig reads and validates the pipeline configuration file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing pipeline config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if len(c.Build.Command) == 0 {
		c.Build.Command = []string{"mvn", "-B", "clean", "package"}
	}
	if c.Build.Log == "" {
		c.Build.Log = "target/build.log"
	}
	if c.Containerize.Context == "" {
		c.Containerize.Context = "."
	}
	if c.Deploy.Namespace == "" {
		c.Deploy.Namespace = "default"
	}
	if c.Rollout.Timeout == 0 {
		c.Rollout.Timeout = Duration(2 * time.Minute)
	}
	if c.Health.Attempts == 0 {
		c.Health.Attempts = 5
	}
	if c.Health.Interval == 0 {
		c.Health.Interval = Duration(5 * time.Second)
	}
}

func (c *Config) validate() error {
	if c.Containerize.Image == "" {
		return fmt.Errorf("containerize.image is required")
	}
	if len(c.Deploy.Manifests) == 0 {
		return fmt.Errorf("deploy.manifests is required")
	}
	if c.Rollout.Resource == "" {
		return fmt.Errorf("rollout.resource is required")
	}
	if c.Health.URL == "" {
		return fmt.Errorf("health.url is required")
	}
	if c.Health.Attempts <= 0 {
		return fmt.Errorf("health.attempts must be positive, got %d", c.Health.Attempts)
	}
	return nil
}
