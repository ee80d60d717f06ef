/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package publish

import (
	"context"
	"fmt"

	"chainguard.dev/healpipe/remediation/gate"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
	"golang.org/x/oauth2"
)

// prBodyTemplate flags the change as machine-generated. The PR is created
// once and never merged or updated by this subsystem.
const prBodyTemplate = `This pull request was generated automatically after the **%s** stage of build %s failed.

The patch was suggested by a generative model, checked against the configured path allow-list, and verified to apply cleanly. It has **not** been reviewed for correctness.

:warning: **Human review required before merging.**`

// PullRequests opens review requests against the trunk branch.
type PullRequests struct {
	client *github.Client
	owner  string
	repo   string
}

// NewPullRequests constructs a PullRequests publisher authenticated with
// token. Tests inject a client pointed at a local server via WithClient.
func NewPullRequests(ctx context.Context, token, owner, repo string, opts ...PROption) *PullRequests {
	p := &PullRequests{owner: owner, repo: repo}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
		p.client = github.NewClient(hc)
	}
	return p
}

// PROption configures a PullRequests publisher.
type PROption func(*PullRequests)

// WithClient overrides the GitHub client.
func WithClient(client *github.Client) PROption {
	return func(p *PullRequests) {
		p.client = client
	}
}

// Open creates the pull request for a pushed remediation branch. Creation is
// fire-and-forget: a failure here is surfaced as ReasonPRCreationFailure but
// the pushed branch remains available either way.
func (p *PullRequests) Open(ctx context.Context, head, trunk, stage, buildID string) (string, error) {
	title := fmt.Sprintf("AI remediation for %s (build %s)", stage, buildID)
	body := fmt.Sprintf(prBodyTemplate, stage, buildID)

	pr, _, err := p.client.PullRequests.Create(ctx, p.owner, p.repo, &github.NewPullRequest{
		Title: github.Ptr(title),
		Head:  github.Ptr(head),
		Base:  github.Ptr(trunk),
		Body:  github.Ptr(body),
	})
	if err != nil {
		return "", gate.Abortf(gate.ReasonPRCreationFailure, "creating pull request: %w", err)
	}

	clog.FromContext(ctx).Infof("Created PR #%d: %s", pr.GetNumber(), pr.GetHTMLURL())
	return pr.GetHTMLURL(), nil
}
