/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package snapshot

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"testing"

	"chainguard.dev/healpipe/remediation/patch"
	"github.com/google/go-cmp/cmp"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	return root
}

func decode(t *testing.T, encoded string) map[string]string {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("DecodeString: %v", err)
	}
	gz, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	tr := tar.NewReader(gz)

	entries := map[string]string{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("tar.Next: %v", err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			t.Fatalf("ReadAll: %v", err)
		}
		entries[hdr.Name] = string(data)
	}
	return entries
}

func TestBuildFiltersAndArchives(t *testing.T) {
	ctx := context.Background()
	root := writeTree(t, map[string]string{
		"src/main/java/Foo.java": "class Foo {}\n",
		"pom.xml":                "<project/>\n",
		"secrets/keys.pem":       "PRIVATE\n",
		"README.md":              "docs\n",
	})

	tracked := []string{"src/main/java/Foo.java", "pom.xml", "secrets/keys.pem", "README.md", "src/gone.java"}
	allow := patch.AllowList{"src/", "pom.xml", "Dockerfile", "k8s/"}

	encoded, err := Build(ctx, root, tracked, allow, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := map[string]string{
		"src/main/java/Foo.java": "class Foo {}\n",
		"pom.xml":                "<project/>\n",
	}
	if diff := cmp.Diff(want, decode(t, encoded)); diff != "" {
		t.Fatalf("archive mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildDeterministic(t *testing.T) {
	ctx := context.Background()
	root := writeTree(t, map[string]string{
		"src/a.java": "a\n",
		"src/b.java": "b\n",
	})
	allow := patch.AllowList{"src/"}

	first, err := Build(ctx, root, []string{"src/b.java", "src/a.java"}, allow, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := Build(ctx, root, []string{"src/a.java", "src/b.java"}, allow, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if first != second {
		t.Fatal("identical trees produced different archives")
	}
}

func TestBuildSkipsOversizedFiles(t *testing.T) {
	ctx := context.Background()
	root := writeTree(t, map[string]string{
		"src/big.java":   "0123456789",
		"src/small.java": "ok",
	})
	allow := patch.AllowList{"src/"}

	encoded, err := Build(ctx, root, []string{"src/big.java", "src/small.java"}, allow, 5)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	entries := decode(t, encoded)
	if _, ok := entries["src/big.java"]; ok {
		t.Fatal("oversized file was archived")
	}
	if entries["src/small.java"] != "ok" {
		t.Fatalf("small file missing, got %v", entries)
	}
}
