// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package dialog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	docStyle          = lipgloss.NewStyle().Margin(1, 2)
	titleStyle        = lipgloss.NewStyle().Bold(true)
	detailStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("170"))
	itemStyle         = lipgloss.NewStyle().PaddingLeft(2)

	typeStyles = map[string]lipgloss.Style{
		TypeWarning:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		TypeError:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		TypeInfo:     lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		TypeQuestion: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	}
)

type messageBoxModel struct {
	options  MessageBoxOptions
	cursor   int
	selected int
	quitting bool
}

func newMessageBoxModel(options MessageBoxOptions) *messageBoxModel {
	cursor := options.DefaultID
	if cursor < 0 || cursor >= len(options.Buttons) {
		cursor = 0
	}
	return &messageBoxModel{options: options, cursor: cursor, selected: options.CancelID}
}

func (*messageBoxModel) Init() tea.Cmd { return nil }

func (m *messageBoxModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "ctrl+c", "esc", "q":
			m.selected = m.options.CancelID
			m.quitting = true
			return m, tea.Quit
		case "up", "k", "left", "h", "shift+tab":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j", "right", "l", "tab":
			if m.cursor < len(m.options.Buttons)-1 {
				m.cursor++
			}
		case "enter", " ":
			m.selected = m.cursor
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *messageBoxModel) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	title := m.options.Title
	if style, ok := typeStyles[m.options.Type]; ok {
		title = style.Inherit(titleStyle).Render(title)
	} else {
		title = titleStyle.Render(title)
	}
	b.WriteString(title + "\n\n")
	b.WriteString(m.options.Message + "\n")
	if m.options.Detail != "" {
		b.WriteString("\n" + detailStyle.Render(m.options.Detail) + "\n")
	}
	b.WriteString("\n")
	for i, button := range m.options.Buttons {
		if i == m.cursor {
			b.WriteString(selectedItemStyle.Render("> "+button) + "\n")
		} else {
			b.WriteString(itemStyle.Render("  "+button) + "\n")
		}
	}
	b.WriteString("\nUse ↑/↓ to move, 'enter' to choose, 'esc' to cancel.\n")
	return docStyle.Render(b.String())
}

// TerminalDialog renders message boxes in the terminal.
type TerminalDialog struct {
	in  io.Reader
	out io.Writer
}

var _ Dialog = (*TerminalDialog)(nil)

// NewTerminalDialog returns a dialog reading keys from in and drawing to out.
// Nil values use the process stdin and stdout.
func NewTerminalDialog(in io.Reader, out io.Writer) *TerminalDialog {
	return &TerminalDialog{in: in, out: out}
}

// ShowMessageBox implements Dialog.
func (d *TerminalDialog) ShowMessageBox(ctx context.Context, options MessageBoxOptions) (int, error) {
	if len(options.Buttons) == 0 {
		options.Buttons = []string{"OK"}
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if d.in != nil {
		opts = append(opts, tea.WithInput(d.in))
	}
	if d.out != nil {
		opts = append(opts, tea.WithOutput(d.out))
	}

	p := tea.NewProgram(newMessageBoxModel(options), opts...)
	finalModel, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return options.CancelID, ctx.Err()
		}
		return options.CancelID, fmt.Errorf("failed to show message box: %w", err)
	}
	m, ok := finalModel.(*messageBoxModel)
	if !ok {
		return options.CancelID, nil
	}
	return m.selected, nil
}
