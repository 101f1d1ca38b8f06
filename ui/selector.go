package ui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// MenuAction binds an extra key in a selection menu, e.g. d to delete. The
// handler gets the highlighted index and the items, and returns the updated
// item list.
type MenuAction struct {
	Key string
	Run func(index int, items []string) []string
}

type menuModel struct {
	title   string
	items   []string
	cursor  int
	chosen  int
	actions []MenuAction
}

var menuSelectedStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("0")).
	Background(lipgloss.Color("12"))

func (m menuModel) Init() tea.Cmd {
	return nil
}

func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "esc", "q":
		m.chosen = -1
		return m, tea.Quit
	case "up", "k":
		m.cursor--
		if m.cursor < 0 {
			m.cursor = len(m.items) - 1
		}
	case "down", "j":
		m.cursor++
		if m.cursor >= len(m.items) {
			m.cursor = 0
		}
	case "enter":
		m.chosen = m.cursor
		return m, tea.Quit
	default:
		for _, action := range m.actions {
			if key.String() != action.Key {
				continue
			}
			m.items = action.Run(m.cursor, m.items)
			if len(m.items) == 0 {
				m.chosen = -1
				return m, tea.Quit
			}
			if m.cursor >= len(m.items) {
				m.cursor = len(m.items) - 1
			}
		}
	}
	return m, nil
}

func (m menuModel) View() string {
	s := m.title + "\n"
	for i, item := range m.items {
		if i == m.cursor {
			s += menuSelectedStyle.Render(" ❯ "+item) + "\n"
		} else {
			s += "   " + item + "\n"
		}
	}
	return s
}

// SelectFrom shows a navigable menu and returns the chosen index. The second
// return is false when the user quit without choosing.
func SelectFrom(title string, items []string, actions ...MenuAction) (int, bool) {
	if len(items) == 0 {
		return 0, false
	}
	p := tea.NewProgram(menuModel{title: title, items: items, chosen: -1, actions: actions})
	final, err := p.Run()
	if err != nil {
		return 0, false
	}
	m, ok := final.(menuModel)
	if !ok || m.chosen < 0 {
		return 0, false
	}
	return m.chosen, true
}

type nameModel struct {
	input     textinput.Model
	confirmed bool
}

func (m nameModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m nameModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.confirmed = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.confirmed = false
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m nameModel) View() string {
	return m.input.View()
}

// ChatName prompts for a new chat name. A blank name means an anonymous
// chat; the second return is false when the prompt was cancelled.
func ChatName(prompt string) (string, bool) {
	input := textinput.New()
	input.Prompt = prompt
	input.Focus()

	p := tea.NewProgram(nameModel{input: input})
	final, err := p.Run()
	if err != nil {
		return "", false
	}
	m, ok := final.(nameModel)
	if !ok || !m.confirmed {
		return "", false
	}
	return m.input.Value(), true
}
