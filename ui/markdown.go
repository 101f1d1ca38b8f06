package ui

import (
	"github.com/charmbracelet/glamour"
)

// Markdown renders settled assistant messages for the terminal.
type Markdown struct {
	renderer *glamour.TermRenderer
}

// NewMarkdown creates a renderer wrapped at the given width.
func NewMarkdown(width int) (*Markdown, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &Markdown{renderer: r}, nil
}

// Render converts markdown to terminal output. Falls back to the raw content
// if rendering fails, so a malformed message is still readable.
func (m *Markdown) Render(content string) string {
	if m == nil || m.renderer == nil {
		return content
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return out
}
