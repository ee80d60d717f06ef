/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main runs one delivery pipeline pass: build, containerize, deploy,
// verify rollout, health check. When a stage fails, it attempts a single
// remediation pass that may leave behind a branch and pull request for human
// review. The process exits non-zero on any stage failure regardless of
// remediation outcome.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chainguard.dev/healpipe/pipeline"
	"chainguard.dev/healpipe/pipeline/stages"
	"chainguard.dev/healpipe/remediation"
	"chainguard.dev/healpipe/remediation/diagnostics"
	"chainguard.dev/healpipe/remediation/modelclient"
	"chainguard.dev/healpipe/remediation/patch"
	"chainguard.dev/healpipe/remediation/publish"
	"chainguard.dev/healpipe/remediation/snapshot"
	"chainguard.dev/healpipe/remediation/vcs"
	"github.com/chainguard-dev/clog"
	"github.com/sethvargo/go-envconfig"
)

type config struct {
	PipelineConfig string        `env:"PIPELINE_CONFIG,default=healpipe.yaml"`
	RepoRoot       string        `env:"REPO_ROOT,default=."`
	Timeout        time.Duration `env:"PIPELINE_TIMEOUT,default=30m"`

	// Remediation model endpoint.
	ModelEndpoint string `env:"MODEL_ENDPOINT,required"`
	ModelAPIKey   string `env:"MODEL_API_KEY,required"`

	// Source-host identity for branch pushes and pull requests.
	GitHubToken string `env:"GITHUB_TOKEN,required"`
	GitHubOwner string `env:"GITHUB_OWNER,required"`
	GitHubRepo  string `env:"GITHUB_REPO,required"`
	GitIdentity string `env:"GIT_IDENTITY,default=healpipe"`

	// Remediation policy.
	TrunkBranch    string   `env:"TRUNK_BRANCH,default=main"`
	BranchPrefix   string   `env:"BRANCH_PREFIX,default=ai-fix"`
	AllowedPaths   []string `env:"ALLOWED_PATHS,default=src/,pom.xml,Dockerfile,k8s/"`
	BuildID        string   `env:"BUILD_ID,required"`
	DiagnosticsDir string   `env:"DIAGNOSTICS_DIR,default=.healpipe/diagnostics"`
	LogTailLines   int      `env:"LOG_TAIL_LINES,default=200"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		clog.FatalContextf(ctx, "processing config: %v", err)
	}

	// The wall-clock timeout bounds the whole run, in-flight remediation
	// included.
	ctx, timeoutCancel := context.WithTimeout(ctx, cfg.Timeout)
	defer timeoutCancel()

	pcfg, err := pipeline.LoadConfig(cfg.PipelineConfig)
	if err != nil {
		clog.FatalContextf(ctx, "loading pipeline config: %v", err)
	}

	cmd := pipeline.ExecCommander{}
	runner := pipeline.NewRunner(
		stages.NewBuild(cmd, pcfg.Build),
		stages.NewContainerize(cmd, pcfg.Containerize),
		stages.NewDeploy(cmd, pcfg.Deploy),
		stages.NewRollout(cmd, pcfg.Rollout, pcfg.Deploy.Namespace),
		stages.NewHealth(pcfg.Health),
	)

	failure := runner.Run(ctx)
	if failure == nil {
		clog.InfoContextf(ctx, "Pipeline succeeded (build %s)", cfg.BuildID)
		return
	}

	remediate(ctx, &cfg, failure)

	// The original stage failure decides the exit code; remediation never
	// rescues the run.
	clog.ErrorContextf(ctx, "Pipeline failed: %v", failure)
	os.Exit(1)
}

// remediate runs one remediation attempt for the failed stage. Nothing in
// here may escalate; every problem is logged and swallowed.
func remediate(ctx context.Context, cfg *config, failure *pipeline.StageFailure) {
	git, err := vcs.OpenGit(cfg.RepoRoot, cfg.GitIdentity, vcs.WithToken(cfg.GitHubToken))
	if err != nil {
		clog.WarnContextf(ctx, "Opening repository for remediation: %v", err)
		return
	}

	r := remediation.New(
		remediation.Config{
			AllowedPaths:        patch.AllowList(cfg.AllowedPaths),
			TrunkBranch:         cfg.TrunkBranch,
			BranchPrefix:        cfg.BranchPrefix,
			BuildID:             cfg.BuildID,
			LogTailLines:        cfg.LogTailLines,
			MaxSnapshotFileSize: snapshot.DefaultMaxFileSize,
		},
		git,
		modelclient.New(cfg.ModelEndpoint, cfg.ModelAPIKey),
		publish.NewPullRequests(ctx, cfg.GitHubToken, cfg.GitHubOwner, cfg.GitHubRepo),
		diagnostics.NewRecorder(ctx, cfg.DiagnosticsDir),
	)

	out, err := r.Remediate(ctx, failure.Stage, failure.Err.Error(), failure.LogPath)
	if err != nil {
		remediation.LogAbort(ctx, err)
	}
	if out != nil && out.PRURL != "" {
		clog.InfoContextf(ctx, "Remediation proposed a fix: branch %s, PR %s", out.Branch, out.PRURL)
	} else if out != nil {
		clog.InfoContextf(ctx, "Remediation pushed branch %s (no PR)", out.Branch)
	}
}
