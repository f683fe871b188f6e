// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package authorization

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCancelled is returned when the user dismisses the sign-in prompt or
	// the wait for it is interrupted.
	ErrCancelled = errors.New("authorization cancelled")

	// ErrFlow matches every *FlowError.
	ErrFlow = errors.New("authorization failed")
)

// FlowError is a failure reported by the identity provider or detected in
// its redirect.
type FlowError struct {
	// Code is the OAuth error code, e.g. interaction_required.
	Code string
	// Description is the provider's error_description.
	Description string

	cause error
}

func (e *FlowError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrFlow, e.Code)
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *FlowError) Unwrap() error {
	return e.cause
}

// Is makes errors.Is(err, ErrFlow) match.
func (*FlowError) Is(target error) bool {
	return target == ErrFlow
}

// Codes used for failures detected locally.
const (
	CodeStateMismatch  = "state_mismatch"
	CodeMissingCode    = "missing_code"
	CodeMissingIDToken = "missing_id_token"
	CodeNavigation     = "navigation_failed"
)

// declinedConsent is the AADSTS code sent when the user declines consent.
const declinedConsent = "AADSTS65004"

// errorFromRedirect maps an error redirect to ErrCancelled or a FlowError.
func errorFromRedirect(code, description string, interactive bool) error {
	if code == "access_denied" && interactive && isCancelDescription(description) {
		return fmt.Errorf("%w: %s", ErrCancelled, description)
	}
	return &FlowError{Code: code, Description: description}
}

func isCancelDescription(description string) bool {
	return strings.Contains(description, declinedConsent) ||
		strings.Contains(strings.ToLower(description), "cancel")
}
