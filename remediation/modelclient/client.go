/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package modelclient performs the single synchronous call to the
// generative-language endpoint. There are no retries: a transport failure is
// treated the same as an empty response so a flaky model can never block the
// human looking at the original pipeline failure.
package modelclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"chainguard.dev/healpipe/remediation/gate"
	"github.com/chainguard-dev/clog"
)

const defaultTimeout = 2 * time.Minute

// Client holds the endpoint configuration for one model invocation. It is
// constructed once from process configuration; no ambient state is read.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (used by tests and by
// callers that need custom transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New constructs a Client for the given endpoint URL and API credential.
func New(endpoint, apiKey string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request mirrors the generative-language wire format:
// {"contents":[{"parts":[{"text": <prompt>}]}]}
type request struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

// Generate performs one POST with the rendered prompt and returns the raw
// response body. Connection failures, timeouts, and non-2xx statuses are all
// tagged ReasonTransportFailure.
func (c *Client) Generate(ctx context.Context, prompt string) ([]byte, error) {
	body, err := json.Marshal(request{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return nil, gate.Abortf(gate.ReasonTransportFailure, "encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, gate.Abortf(gate.ReasonTransportFailure, "building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	clog.FromContext(ctx).Infof("Requesting patch from model endpoint (prompt %d bytes)", len(prompt))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, gate.Abortf(gate.ReasonTransportFailure, "calling model endpoint: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, gate.Abortf(gate.ReasonTransportFailure, "reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, gate.Abortf(gate.ReasonTransportFailure, "model endpoint returned %s: %s", resp.Status, truncate(raw, 512))
	}

	return raw, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return fmt.Sprintf("%s... (%d bytes total)", b[:n], len(b))
}
