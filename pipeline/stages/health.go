/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package stages

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"chainguard.dev/healpipe/pipeline"
	"github.com/chainguard-dev/clog"
)

// Health probes the deployed service over HTTP. Unlike the remediation path,
// the probe retries: a deploy needs settle time, and a transient 503 right
// after rollout is not a delivery failure.
type Health struct {
	client   *http.Client
	url      string
	attempts int
	interval time.Duration
}

// NewHealth constructs the health-check stage.
func NewHealth(cfg pipeline.HealthConfig) *Health {
	return &Health{
		client:   &http.Client{Timeout: 10 * time.Second},
		url:      cfg.URL,
		attempts: cfg.Attempts,
		interval: time.Duration(cfg.Interval),
	}
}

func (h *Health) Name() string { return "Health Check" }

func (h *Health) Run(ctx context.Context) error {
	log := clog.FromContext(ctx)
	var lastErr error
	for attempt := 1; attempt <= h.attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(h.interval):
			}
		}
		lastErr = h.probe(ctx)
		if lastErr == nil {
			log.Infof("Health probe of %s succeeded on attempt %d", h.url, attempt)
			return nil
		}
		log.Warnf("Health probe attempt %d/%d failed: %v", attempt, h.attempts, lastErr)
	}
	return fmt.Errorf("service unhealthy after %d probes of %s: %w", h.attempts, h.url, lastErr)
}

func (h *Health) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}
