// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package splash shows progress to the user while authentication runs.
package splash

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

//go:generate mockgen -destination=mocks/mock_screen.go -package=mocks -source=splash.go Screen

// Screen is the host splash screen.
type Screen interface {
	Show()
	Hide()
	UpdateMessage(message string)
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	messageStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("245"))
)

// TerminalScreen writes status lines to a terminal. While hidden, message
// updates are remembered and printed on the next Show.
type TerminalScreen struct {
	mu      sync.Mutex
	out     io.Writer
	title   string
	message string
	visible bool
}

var _ Screen = (*TerminalScreen)(nil)

// NewTerminalScreen returns a hidden screen writing to out.
func NewTerminalScreen(out io.Writer, title string) *TerminalScreen {
	return &TerminalScreen{out: out, title: title}
}

// Show implements Screen.
func (s *TerminalScreen) Show() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.visible {
		return
	}
	s.visible = true
	s.println(titleStyle.Render(s.title))
	if s.message != "" {
		s.println(messageStyle.Render(s.message))
	}
}

// Hide implements Screen.
func (s *TerminalScreen) Hide() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = false
}

// UpdateMessage implements Screen.
func (s *TerminalScreen) UpdateMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if message == s.message {
		return
	}
	s.message = message
	if s.visible {
		s.println(messageStyle.Render(message))
	}
}

// Visible reports whether the screen is shown.
func (s *TerminalScreen) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

func (s *TerminalScreen) println(line string) {
	_, _ = fmt.Fprintln(s.out, line)
}

// Noop discards everything. Used for non-interactive output.
type Noop struct{}

var _ Screen = Noop{}

// Show implements Screen.
func (Noop) Show() {}

// Hide implements Screen.
func (Noop) Hide() {}

// UpdateMessage implements Screen.
func (Noop) UpdateMessage(string) {}
