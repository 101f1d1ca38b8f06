package ui_test

import (
	"testing"

	"chatterm/config"
	"chatterm/ui"
)

func testColors() config.ColorConfig {
	return config.ColorConfig{User: "cyan", Assistant: "grey", System: "yellow"}
}

func TestNewStylesAcceptsNamedAndRawColors(t *testing.T) {
	// Named ANSI colors and raw lipgloss values both have to work, since the
	// config file takes either.
	for _, colors := range []config.ColorConfig{
		testColors(),
		{User: "#00ffff", Assistant: "240", System: "#ffcc00"},
	} {
		s := ui.NewStyles(colors)
		if s == nil {
			t.Fatalf("NewStyles(%+v) returned nil", colors)
		}
		if s.UserBanner("user") == "" {
			t.Error("empty user banner")
		}
	}
}
