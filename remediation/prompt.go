/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package remediation

import (
	"strings"

	"chainguard.dev/healpipe/remediation/collector"
	"chainguard.dev/healpipe/remediation/patch"
	"chainguard.dev/healpipe/remediation/promptbuilder"
)

// fixPromptTemplate is the instruction rendered for every remediation
// attempt. The output-format rules are enforced by instruction only; the
// patch validator is what actually holds the line.
const fixPromptTemplate = `You are an automated remediation agent for a continuous-delivery pipeline.
The pipeline stage "{{stage}}" failed. Use the context below to propose a minimal source fix.

Failure message:
{{message}}

Recent commits (newest first):
{{commits}}

Working tree status:
{{status}}

Build log tail:
{{log_tail}}

Repository content, limited to the files you may modify, as a base64-encoded gzip tarball:
{{snapshot}}

Output rules. Follow them exactly:
1. Respond with exactly one unified diff in git format ("diff --git" headers), or an empty string if you cannot propose a fix.
2. Do not include explanations, markdown fencing, or any other prose.
3. Only modify files under these path prefixes: {{allowed_paths}}
4. The diff must apply cleanly with "git apply" from the repository root.`

// buildPrompt renders the instruction text. For identical inputs the output
// is byte-identical; nothing here injects timestamps or randomness.
func buildPrompt(fc collector.FailureContext, snapshot string, allow patch.AllowList) (string, error) {
	p, err := promptbuilder.New(fixPromptTemplate)
	if err != nil {
		return "", err
	}

	for name, value := range map[string]string{
		"stage":         fc.Stage,
		"message":       fc.Message,
		"status":        fc.WorktreeStatus,
		"log_tail":      fc.BuildLogTail,
		"snapshot":      snapshot,
		"allowed_paths": strings.Join(allow, ", "),
	} {
		if p, err = p.Bind(name, value); err != nil {
			return "", err
		}
	}

	if p, err = p.BindYAML("commits", fc.RecentCommits); err != nil {
		return "", err
	}

	return p.Build()
}
