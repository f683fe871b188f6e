// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package dialog asks the user to pick one of a few buttons.
package dialog

import "context"

//go:generate mockgen -destination=mocks/mock_dialog.go -package=mocks -source=dialog.go Dialog

// Message box types.
const (
	TypeNone     = "none"
	TypeInfo     = "info"
	TypeWarning  = "warning"
	TypeError    = "error"
	TypeQuestion = "question"
)

// MessageBoxOptions describes a message box.
type MessageBoxOptions struct {
	Type    string
	Title   string
	Message string
	Detail  string
	Buttons []string
	// DefaultID is the button selected initially.
	DefaultID int
	// CancelID is returned when the user dismisses the box.
	CancelID int
}

// Dialog shows message boxes.
type Dialog interface {
	// ShowMessageBox returns the index of the selected button.
	ShowMessageBox(ctx context.Context, options MessageBoxOptions) (int, error)
}

// StaticDialog answers every message box with the same button, for
// non-interactive hosts.
type StaticDialog struct {
	Answer int
}

var _ Dialog = StaticDialog{}

// ShowMessageBox implements Dialog. An answer outside the buttons falls back
// to DefaultID.
func (d StaticDialog) ShowMessageBox(_ context.Context, options MessageBoxOptions) (int, error) {
	if d.Answer < 0 || d.Answer >= len(options.Buttons) {
		return options.DefaultID, nil
	}
	return d.Answer, nil
}
