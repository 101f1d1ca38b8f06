package llm

import (
	"context"
	"slices"
)

// Scripted is an in-memory provider that replays queued event sequences, one
// per Stream call. It backs the "mock" provider for offline use and the
// engine tests.
type Scripted struct {
	turns [][]StreamEvent

	// Calls counts how many streams have been opened.
	Calls int
	// Seen records the message history passed to each call.
	Seen [][]Message
	// Opts records the options passed to each call.
	Opts []StreamOptions
}

// NewScripted returns a provider with no queued turns; unqueued calls answer
// with a canned text response.
func NewScripted() *Scripted {
	return &Scripted{}
}

// Enqueue appends one turn's worth of events to the script.
func (s *Scripted) Enqueue(events ...StreamEvent) {
	s.turns = append(s.turns, events)
}

// Stream implements Provider.
func (s *Scripted) Stream(ctx context.Context, msgs []Message, opts StreamOptions) <-chan StreamEvent {
	s.Calls++
	s.Seen = append(s.Seen, slices.Clone(msgs))
	s.Opts = append(s.Opts, opts)

	var events []StreamEvent
	if len(s.turns) > 0 {
		events = s.turns[0]
		s.turns = s.turns[1:]
	} else {
		events = []StreamEvent{
			{Kind: ChunkText, Content: "This is the mock provider; no model was called."},
			{Done: true},
		}
	}

	out := make(chan StreamEvent, 8)
	go func() {
		defer close(out)
		for _, ev := range events {
			select {
			case out <- ev:
			case <-ctx.Done():
				out <- StreamEvent{Err: ctx.Err()}
				return
			}
		}
	}()
	return out
}
