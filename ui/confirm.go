package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// confirmModel is a single-keypress yes/no prompt. Any interrupt counts as
// a refusal.
type confirmModel struct {
	prompt string
	result bool
	done   bool
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.result = false
		m.done = true
		return m, tea.Quit
	case tea.KeyRunes:
		switch string(key.Runes) {
		case "y", "Y":
			m.result = true
			m.done = true
			return m, tea.Quit
		case "n", "N":
			m.result = false
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.done {
		return ""
	}
	return m.prompt + " (y/n) "
}

// Confirm shows the prompt and blocks until the user presses y or n.
// Errors and interrupts answer no.
func Confirm(prompt string) bool {
	p := tea.NewProgram(confirmModel{prompt: prompt})
	final, err := p.Run()
	if err != nil {
		return false
	}
	m, ok := final.(confirmModel)
	return ok && m.result
}
