package ui_test

import (
	"strings"
	"testing"

	"chatterm/llm"
	"chatterm/ui"
)

func TestStreamBufferDiscardsThinkingOnText(t *testing.T) {
	var b ui.StreamBuffer
	b.Token("\\<think>\n", llm.ChunkThinking)
	b.Token("a", llm.ChunkThinking)
	b.Token("b", llm.ChunkThinking)
	b.Token("c", llm.ChunkText)

	if got := b.String(); got != "c" {
		t.Errorf("buffer = %q, want %q", got, "c")
	}
}

func TestStreamBufferPlainText(t *testing.T) {
	var b ui.StreamBuffer
	b.Token("hello ", llm.ChunkText)
	b.Token("world", llm.ChunkText)

	if got := b.String(); got != "hello world" {
		t.Errorf("buffer = %q, want %q", got, "hello world")
	}

	b.Reset()
	if b.String() != "" {
		t.Error("buffer not empty after reset")
	}
}

func TestStreamBufferThinkingOnly(t *testing.T) {
	var b ui.StreamBuffer
	b.Token("\\<think>\n", llm.ChunkThinking)
	b.Token("pondering", llm.ChunkThinking)

	// With no text after it, the thinking stays visible.
	if got := b.String(); !strings.Contains(got, "pondering") {
		t.Errorf("thinking-only buffer = %q", got)
	}
}

func TestStreamerEndReturnsSettledContent(t *testing.T) {
	var out strings.Builder
	s := ui.NewStreamer(&out, ui.NewStyles(testColors()))

	s.Token("\\<think>\n", llm.ChunkThinking)
	s.Token("scratch", llm.ChunkThinking)
	s.Token("answer", llm.ChunkText)

	if got := s.End(); got != "answer" {
		t.Errorf("settled content = %q, want %q", got, "answer")
	}
	if !strings.Contains(out.String(), "answer") {
		t.Error("streamed text missing from terminal output")
	}
}

func TestStreamerToolPauseResetsBuffer(t *testing.T) {
	var out strings.Builder
	s := ui.NewStreamer(&out, ui.NewStyles(testColors()))

	s.Token("before", llm.ChunkText)
	s.Token("", llm.ChunkToolPause)
	s.Token("after", llm.ChunkText)

	if got := s.End(); got != "after" {
		t.Errorf("settled content = %q, want %q", got, "after")
	}
}
