package llm

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"chatterm/logging"
	"chatterm/tool"
)

// thinkingOpen is the synthetic marker emitted before the first thinking
// token of a turn so the renderer can delimit the thinking block.
const thinkingOpen = "\\<think>\n"

// DefaultMaxToolChain caps how many tool calls a single user input may chain
// before the turn fails with ErrToolChainTooLong.
const DefaultMaxToolChain = 8

// StreamFunc receives renderable tokens as they arrive. Tool-call fragments
// are never forwarded through it.
type StreamFunc func(token string, kind ChunkKind)

// ConfirmFunc presents a blocking yes/no prompt for a tool invocation.
type ConfirmFunc func(prompt string) bool

// TranscriptStore persists a session's full message list. Implemented by
// the store package; kept as an interface here so engine tests can observe
// commits.
type TranscriptStore interface {
	Save(chatID string, msgs []Message) error
}

// TurnOptions carries the per-turn flags of one engine run. Both Think and
// Save are single-turn scoped; the caller resets them after every turn.
type TurnOptions struct {
	// Think requests the provider's thinking variant for the first stream of
	// the turn. Continuations after a tool result never think.
	Think bool
	// Save controls whether the turn's messages join the long-lived history
	// and are committed to the transcript store.
	Save bool
	// ChatID is the session to commit to. Empty means anonymous: nothing is
	// ever written to disk.
	ChatID string
}

// Engine drives one model turn: it consumes the provider stream, classifies
// events, assembles tool calls and runs the confirm/execute/continue loop.
type Engine struct {
	provider Provider
	tools    *tool.Registry
	store    TranscriptStore
	confirm  ConfirmFunc
	log      *logging.Logger

	// MaxToolChain bounds sequential tool calls within one turn.
	MaxToolChain int
}

// NewEngine creates an engine. store may be nil for purely anonymous use;
// confirm must be non-nil when tools are registered.
func NewEngine(provider Provider, tools *tool.Registry, store TranscriptStore, confirm ConfirmFunc, log *logging.Logger) *Engine {
	if tools == nil {
		tools = tool.NewRegistry()
	}
	if log == nil {
		log = logging.FromEnv()
	}
	return &Engine{
		provider:     provider,
		tools:        tools,
		store:        store,
		confirm:      confirm,
		log:          log,
		MaxToolChain: DefaultMaxToolChain,
	}
}

// SetProvider swaps the provider, e.g. after a model change.
func (e *Engine) SetProvider(p Provider) {
	e.provider = p
}

// Tools returns the engine's tool registry.
func (e *Engine) Tools() *tool.Registry {
	return e.tools
}

// SetTools replaces the registry offered to the model, e.g. when agent mode
// is toggled. An empty registry means no tool declarations go out.
func (e *Engine) SetTools(tools *tool.Registry) {
	if tools == nil {
		tools = tool.NewRegistry()
	}
	e.tools = tools
}

// pendingCall accumulates tool-call fragments until the stream ends. The
// args JSON must not be parsed before that.
type pendingCall struct {
	name string
	id   string
	args strings.Builder
}

// RunTurn runs one complete turn: append input (if any), stream the response,
// and settle either on an assistant message or on a tool refusal. Confirmed
// tool calls loop back into a fresh stream with the tool result in context.
//
// The updated history is returned. With opts.Save unset the turn runs on a
// private copy and the original history comes back untouched; the caller's
// slice is never mutated either way. An error aborts the turn but keeps what
// was already appended before it: the user message goes to disk before the
// first stream opens, and completed tool exchanges stay in the returned
// history.
func (e *Engine) RunTurn(ctx context.Context, history []Message, input string, opts TurnOptions, stream StreamFunc) ([]Message, error) {
	msgs := slices.Clone(history)

	// On failure a saved turn keeps everything appended so far; a no-save
	// turn stays private and hands back the original history.
	fail := func(err error) ([]Message, error) {
		if !opts.Save {
			return history, err
		}
		return msgs, err
	}

	if input != "" {
		msgs = append(msgs, Message{Role: RoleUser, Content: input})
		// Commit the question before opening the stream so an aborted turn
		// never loses it.
		if err := e.commit(opts, msgs); err != nil {
			return fail(err)
		}
	}

	think := opts.Think
	for turn := 0; ; turn++ {
		if turn >= e.maxToolChain() {
			return fail(fmt.Errorf("%w: %d sequential tool calls", ErrToolChainTooLong, turn))
		}

		response, pending, err := e.consumeStream(ctx, msgs, think, stream)
		if err != nil {
			return fail(err)
		}
		think = false

		if pending == nil {
			msgs = append(msgs, Message{Role: RoleAssistant, Content: response})
			break
		}

		args := pending.args.String()
		if !gjson.Valid(args) || strings.TrimSpace(args) == "" {
			args = "{}"
		}
		call := ToolCall{Name: pending.name, ID: pending.id, Args: args}
		callMsg := Message{Role: RoleAssistant, Content: MarshalToolCall(call)}

		stream("", ChunkToolPause)
		if !e.confirm(fmt.Sprintf("Use tool %s with %s:", call.Name, call.Args)) {
			e.log.Debug("tool refused", "tool", call.Name)
			msgs = append(msgs, callMsg, Message{
				Role:       RoleTool,
				Content:    tool.Refusal,
				ToolCallID: call.ID,
			})
			break
		}

		result, err := e.tools.Invoke(ctx, call.Name, []byte(call.Args))
		if err != nil {
			// The failed call is not appended; earlier exchanges stay.
			return fail(err)
		}
		e.log.Debug("tool executed", "tool", call.Name, "turn", turn)
		msgs = append(msgs, callMsg, Message{
			Role:       RoleTool,
			Content:    result,
			ToolCallID: call.ID,
		})
	}

	if !opts.Save {
		return history, nil
	}
	if err := e.commit(opts, msgs); err != nil {
		// In-memory state stays authoritative for the rest of the
		// process; the caller decides how loudly to report this.
		return msgs, err
	}
	return msgs, nil
}

// commit writes the transcript for a saved, named session; it is a no-op for
// no-save turns and anonymous chats.
func (e *Engine) commit(opts TurnOptions, msgs []Message) error {
	if !opts.Save || opts.ChatID == "" || e.store == nil {
		return nil
	}
	if err := e.store.Save(opts.ChatID, msgs); err != nil {
		return fmt.Errorf("persist transcript: %w", err)
	}
	return nil
}

// consumeStream exhausts one provider stream. It forwards text and thinking
// tokens to the callback, keeps the durable response accumulator (text
// content only) and assembles tool-call fragments.
func (e *Engine) consumeStream(ctx context.Context, msgs []Message, think bool, stream StreamFunc) (string, *pendingCall, error) {
	events := e.provider.Stream(ctx, msgs, StreamOptions{
		Think: think,
		Tools: e.tools.All(),
	})

	var response strings.Builder
	var pending *pendingCall
	thinking := false

	for ev := range events {
		switch {
		case ev.Err != nil:
			// Drain so a provider that keeps sending cannot block forever
			// on the channel buffer.
			for range events {
			}
			return "", nil, &StreamError{Err: ev.Err}

		case ev.Done:
			// Drain until the provider closes the channel.

		case ev.Tool != nil:
			if pending == nil {
				pending = &pendingCall{}
			}
			if pending.name == "" {
				pending.name = ev.Tool.Name
			}
			if pending.id == "" {
				pending.id = ev.Tool.ID
			}
			pending.args.WriteString(ev.Tool.Args)

		case ev.Kind == ChunkThinking:
			if !thinking {
				thinking = true
				stream(thinkingOpen, ChunkThinking)
			}
			stream(ev.Content, ChunkThinking)

		default:
			// The renderer discards its thinking buffer on this transition;
			// the durable accumulator below never saw it in the first place.
			thinking = false
			stream(ev.Content, ChunkText)
			response.WriteString(ev.Content)
		}
	}

	if pending != nil && pending.id == "" {
		pending.id = uuid.NewString()
	}
	return response.String(), pending, nil
}

func (e *Engine) maxToolChain() int {
	if e.MaxToolChain > 0 {
		return e.MaxToolChain
	}
	return DefaultMaxToolChain
}
