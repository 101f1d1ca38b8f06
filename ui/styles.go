// Package ui implements the terminal presentation layer: styles, markdown
// rendering, live stream output, confirmation prompts and selection menus.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"chatterm/config"
)

// ansiColors maps the color names users put in the config file to ANSI codes.
// Anything else is passed to lipgloss verbatim, so hex values work too.
var ansiColors = map[string]string{
	"black":   "0",
	"red":     "1",
	"green":   "2",
	"yellow":  "3",
	"blue":    "4",
	"magenta": "5",
	"cyan":    "6",
	"white":   "7",
	"grey":    "8",
	"gray":    "8",
}

func color(name string) lipgloss.Color {
	if code, ok := ansiColors[strings.ToLower(name)]; ok {
		return lipgloss.Color(code)
	}
	return lipgloss.Color(name)
}

// Styles holds the rendered lipgloss styles for one configuration.
type Styles struct {
	User       lipgloss.Style
	Assistant  lipgloss.Style
	System     lipgloss.Style
	SystemBold lipgloss.Style
	Thinking   lipgloss.Style
	Error      lipgloss.Style

	userBanner      lipgloss.Style
	assistantBanner lipgloss.Style
	systemBanner    lipgloss.Style
}

// NewStyles builds the style set from the configured colors.
func NewStyles(colors config.ColorConfig) *Styles {
	return &Styles{
		User:       lipgloss.NewStyle().Foreground(color(colors.User)),
		Assistant:  lipgloss.NewStyle().Foreground(color(colors.Assistant)),
		System:     lipgloss.NewStyle().Foreground(color(colors.System)),
		SystemBold: lipgloss.NewStyle().Foreground(color(colors.System)).Bold(true),
		Thinking:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true),
		Error:      lipgloss.NewStyle().Foreground(lipgloss.Color("1")),

		userBanner: lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(color(colors.User)).
			Bold(true),
		assistantBanner: lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(color(colors.Assistant)).
			Bold(true),
		systemBanner: lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(color(colors.System)).
			Bold(true),
	}
}

// UserBanner renders the banner line shown above user input.
func (s *Styles) UserBanner(label string) string {
	return s.userBanner.Render(" " + label + " ")
}

// AssistantBanner renders the banner line shown above assistant output.
func (s *Styles) AssistantBanner(label string) string {
	return s.assistantBanner.Render(" " + label + " ")
}

// TitleBanner renders the conversation-start banner.
func (s *Styles) TitleBanner(label string) string {
	return s.systemBanner.Render(" " + label + " ")
}
