package ui

import (
	"fmt"
	"io"
	"strings"

	"chatterm/llm"
)

// StreamBuffer accumulates the renderable text of one streaming response.
// Thinking content is shown while it arrives but discarded the moment the
// first text token lands, so the settled view holds only the answer.
type StreamBuffer struct {
	buf      strings.Builder
	thinking bool
}

// Token feeds one streamed token into the buffer.
func (b *StreamBuffer) Token(token string, kind llm.ChunkKind) {
	switch kind {
	case llm.ChunkThinking:
		b.thinking = true
		b.buf.WriteString(token)
	case llm.ChunkText:
		if b.thinking {
			b.thinking = false
			b.buf.Reset()
		}
		b.buf.WriteString(token)
	}
}

// String returns the current renderable content.
func (b *StreamBuffer) String() string {
	return b.buf.String()
}

// Reset clears the buffer for the next response.
func (b *StreamBuffer) Reset() {
	b.buf.Reset()
	b.thinking = false
}

// Streamer writes tokens to the terminal as they arrive and keeps a
// StreamBuffer in sync for the settled render.
type Streamer struct {
	out    io.Writer
	styles *Styles

	Buffer  StreamBuffer
	started bool
}

// NewStreamer creates a streamer writing to out.
func NewStreamer(out io.Writer, styles *Styles) *Streamer {
	return &Streamer{out: out, styles: styles}
}

// Token implements the engine's stream callback.
func (s *Streamer) Token(token string, kind llm.ChunkKind) {
	if kind == llm.ChunkToolPause {
		if s.started {
			fmt.Fprintln(s.out)
		}
		s.started = false
		s.Buffer.Reset()
		return
	}
	if !s.started {
		s.started = true
		fmt.Fprintln(s.out, s.styles.AssistantBanner("assistant"))
	}
	if kind == llm.ChunkThinking {
		fmt.Fprint(s.out, s.styles.Thinking.Render(token))
	} else {
		fmt.Fprint(s.out, token)
	}
	s.Buffer.Token(token, kind)
}

// End finishes the stream and returns the settled renderable content.
func (s *Streamer) End() string {
	if s.started {
		fmt.Fprintln(s.out)
	}
	s.started = false
	content := s.Buffer.String()
	s.Buffer.Reset()
	return content
}
