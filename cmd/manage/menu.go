package main

import (
	"fmt"
	"strings"

	"users-service/manage"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170")).
			Bold(true).
			PaddingLeft(2)

	normalStyle = lipgloss.NewStyle().
			PaddingLeft(4)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)
)

type menuModel struct {
	cursor   int
	choice   string
	quitting bool
}

func (m menuModel) Init() tea.Cmd {
	return nil
}

func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "q", "esc":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(manage.Descriptions)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.choice = manage.Descriptions[m.cursor].Name
		return m, tea.Quit
	}
	return m, nil
}

func (m menuModel) View() string {
	if m.choice != "" || m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("users-service manage"))
	b.WriteString("\n")
	for i, cmd := range manage.Descriptions {
		line := fmt.Sprintf("%-12s %s", cmd.Name, cmd.Help)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString(normalStyle.Render(line))
		}
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("↑/↓ move • enter run • q quit"))
	b.WriteString("\n")
	return b.String()
}

// pickCommand shows the menu and returns the chosen command, or "" when the
// user quits.
func pickCommand() (string, error) {
	final, err := tea.NewProgram(menuModel{}).Run()
	if err != nil {
		return "", err
	}
	return final.(menuModel).choice, nil
}
