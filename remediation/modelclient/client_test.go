/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package modelclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chainguard.dev/healpipe/remediation/gate"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	var gotBody request
	var gotKey, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"a diff"}]}}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key")
	raw, err := c.Generate(context.Background(), "fix the build")
	require.NoError(t, err)
	require.Contains(t, string(raw), "a diff")

	require.Equal(t, "test-key", gotKey)
	require.Equal(t, "application/json", gotContentType)
	require.Len(t, gotBody.Contents, 1)
	require.Len(t, gotBody.Contents[0].Parts, 1)
	require.Equal(t, "fix the build", gotBody.Contents[0].Parts[0].Text)
}

func TestGenerateNon2xxIsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "test-key").Generate(context.Background(), "fix the build")
	require.Error(t, err)
	reason, ok := gate.ReasonOf(err)
	require.True(t, ok)
	require.Equal(t, gate.ReasonTransportFailure, reason)
	require.Contains(t, err.Error(), "quota exceeded")
}

func TestGenerateTimeoutIsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		// Drain the body so the server notices the client disconnect and
		// cancels the request context; otherwise srv.Close() hangs forever.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	_, err := c.Generate(context.Background(), "fix the build")
	require.Error(t, err)
	reason, ok := gate.ReasonOf(err)
	require.True(t, ok)
	require.Equal(t, gate.ReasonTransportFailure, reason)
}

func TestGenerateConnectionRefusedIsTransportFailure(t *testing.T) {
	// Port 1 is never listening.
	_, err := New("http://127.0.0.1:1", "test-key").Generate(context.Background(), "fix the build")
	require.Error(t, err)
	reason, ok := gate.ReasonOf(err)
	require.True(t, ok)
	require.Equal(t, gate.ReasonTransportFailure, reason)
}
