/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package gate defines the tagged abort outcomes shared by every step of the
// remediation chain. Each step either proceeds or returns an *AbortError;
// the orchestrator switches on the Reason to log why remediation stopped.
// None of these reasons ever escalate into a pipeline failure.
package gate

import (
	"errors"
	"fmt"
)

// Reason identifies which gate stopped a remediation attempt.
type Reason string

const (
	// ReasonTransportFailure covers unreachable endpoints, timeouts, and
	// non-2xx responses from the model or source-host APIs.
	ReasonTransportFailure Reason = "TransportFailure"
	// ReasonEmptyResponse means the model produced no usable text.
	ReasonEmptyResponse Reason = "EmptyResponse"
	// ReasonNoChangedFiles means the diff named no target paths.
	ReasonNoChangedFiles Reason = "NoChangedFiles"
	// ReasonDisallowedPath means the diff touched a path outside the
	// allow-list.
	ReasonDisallowedPath Reason = "DisallowedPath"
	// ReasonPatchDoesNotApply means the dry-run apply check failed.
	ReasonPatchDoesNotApply Reason = "PatchDoesNotApply"
	// ReasonPublishFailure means the branch could not be committed or pushed.
	ReasonPublishFailure Reason = "PublishFailure"
	// ReasonPRCreationFailure means the pull-request API call failed after
	// the branch was already pushed.
	ReasonPRCreationFailure Reason = "PRCreationFailure"
)

// AbortError is the tagged outcome of a failed gate.
type AbortError struct {
	Reason Reason
	Err    error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

// Abortf constructs an AbortError with a formatted detail message. The %w
// verb is supported.
func Abortf(reason Reason, format string, args ...any) *AbortError {
	return &AbortError{Reason: reason, Err: fmt.Errorf(format, args...)}
}

// ReasonOf extracts the Reason from an error chain. The second return is
// false when the error carries no gate tag.
func ReasonOf(err error) (Reason, bool) {
	var abort *AbortError
	if errors.As(err, &abort) {
		return abort.Reason, true
	}
	return "", false
}
