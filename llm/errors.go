package llm

import "errors"

// ErrToolChainTooLong is returned when a turn requests more sequential tool
// calls than the engine's configured cap. A misbehaving model could otherwise
// chain tool calls forever.
var ErrToolChainTooLong = errors.New("tool chain too long")

// StreamError wraps a provider failure that aborted a turn mid-stream. The
// turn's history is left unmodified beyond prior commits and the request is
// never retried.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return "stream: " + e.Err.Error()
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
