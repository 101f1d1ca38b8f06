package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"chatterm/tool"
)

// ChunkKind classifies renderable stream content handed to the presentation
// callback. The values match the chunk types the providers emit.
type ChunkKind string

const (
	ChunkText     ChunkKind = "text"
	ChunkThinking ChunkKind = "thinking"
	// ChunkToolPause tells the renderer to stop live output because a tool
	// confirmation prompt is about to be shown.
	ChunkToolPause ChunkKind = "prompt_tool"
)

// ToolFragment is one streamed piece of a tool call. Name and ID are fixed
// once first seen; Args fragments are appended in arrival order and must not
// be parsed until the stream ends.
type ToolFragment struct {
	Name string
	ID   string
	Args string
}

// StreamEvent is a single increment from a provider stream. Exactly one of
// Content (with Kind), Tool, Done, or Err is meaningful.
type StreamEvent struct {
	Kind    ChunkKind
	Content string
	Tool    *ToolFragment
	Done    bool
	Err     error
}

// StreamOptions carries per-turn parameters down to a provider.
type StreamOptions struct {
	// Think requests the provider's thinking variant. Providers without one
	// ignore the flag and run in their usual mode.
	Think bool
	// Tools are the declarations offered to the model for this turn.
	Tools []tool.Definition
}

// Provider streams one model turn for the given history. A Done or Err event
// is the last meaningful event of a stream and the channel must be closed
// shortly after emitting it.
type Provider interface {
	Stream(ctx context.Context, msgs []Message, opts StreamOptions) <-chan StreamEvent
}

// ToolCall is a fully assembled model-requested tool invocation.
type ToolCall struct {
	Name string `json:"name"`
	ID   string `json:"id"`
	Args string `json:"arguments"`
}

// toolCallEnvelope is how an assistant tool-call message is recorded in plain
// content, so it survives the flat transcript format unchanged.
type toolCallEnvelope struct {
	ToolCall ToolCall `json:"tool_call"`
}

// MarshalToolCall renders the assistant message content for a tool call.
func MarshalToolCall(call ToolCall) string {
	b, err := json.Marshal(toolCallEnvelope{ToolCall: call})
	if err != nil {
		// Only strings involved, cannot happen.
		return fmt.Sprintf(`{"tool_call":{"name":%q,"id":%q}}`, call.Name, call.ID)
	}
	return string(b)
}

// ParseToolCall recovers a tool call from assistant message content. The
// second return is false for ordinary text messages.
func ParseToolCall(content string) (ToolCall, bool) {
	if !gjson.Valid(content) {
		return ToolCall{}, false
	}
	tc := gjson.Get(content, "tool_call")
	if !tc.Exists() {
		return ToolCall{}, false
	}
	return ToolCall{
		Name: tc.Get("name").String(),
		ID:   tc.Get("id").String(),
		Args: tc.Get("arguments").String(),
	}, true
}

// New constructs a provider by name. Temperature <= 0 selects the provider
// default.
func New(provider, model, apiKey string, temperature float64) (Provider, error) {
	switch provider {
	case "anthropic":
		return NewAnthropic(model, apiKey, temperature), nil
	case "openai":
		return NewOpenAI(model, apiKey, temperature), nil
	case "mock":
		return NewScripted(), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}
