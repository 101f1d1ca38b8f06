package chat

import (
	"context"
	"strings"
	"testing"

	"chatterm/config"
	"chatterm/llm"
	"chatterm/store"
	"chatterm/tool"
)

func scriptedController(t *testing.T, provider *llm.Scripted, chatID string, input string) (*Controller, *store.Store, *strings.Builder) {
	t.Helper()
	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	engine := llm.NewEngine(provider, tool.NewRegistry(), st, func(string) bool { return false }, nil)

	var out strings.Builder
	c := New(Options{
		Config: config.Default(),
		Store:  st,
		Engine: engine,
		Tools:  tool.NewRegistry(),
		Model:  config.ModelConfig{Provider: "mock", Name: "mock"},
		ChatID: chatID,
		In:     strings.NewReader(input),
		Out:    &out,
	})
	return c, st, &out
}

func TestTmpTurnIsNotPersisted(t *testing.T) {
	provider := llm.NewScripted()
	provider.Enqueue(
		llm.StreamEvent{Kind: llm.ChunkText, Content: "ephemeral answer"},
		llm.StreamEvent{Done: true},
	)
	provider.Enqueue(
		llm.StreamEvent{Kind: llm.ChunkText, Content: "durable answer"},
		llm.StreamEvent{Done: true},
	)

	c, st, _ := scriptedController(t, provider, "session", ":tmp secret question\nkeep this\nexit\n")
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	msgs, err := st.Load("session")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var all strings.Builder
	for _, m := range msgs {
		all.WriteString(m.Content)
		all.WriteString("\n")
	}
	if strings.Contains(all.String(), "secret question") || strings.Contains(all.String(), "ephemeral answer") {
		t.Errorf("tmp turn leaked into the transcript:\n%s", all.String())
	}
	if !strings.Contains(all.String(), "keep this") || !strings.Contains(all.String(), "durable answer") {
		t.Errorf("following turn missing from the transcript:\n%s", all.String())
	}
	// The provider still saw the ephemeral exchange.
	if len(provider.Seen) != 2 || !strings.Contains(provider.Seen[0][len(provider.Seen[0])-1].Content, "secret question") {
		t.Error("provider did not receive the ephemeral message")
	}
}

func TestThinkFlagIsSingleTurn(t *testing.T) {
	provider := llm.NewScripted()
	provider.Enqueue(llm.StreamEvent{Kind: llm.ChunkText, Content: "a"}, llm.StreamEvent{Done: true})
	provider.Enqueue(llm.StreamEvent{Kind: llm.ChunkText, Content: "b"}, llm.StreamEvent{Done: true})

	c, _, _ := scriptedController(t, provider, "s", ":think deep question\nnormal question\nexit\n")
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(provider.Opts) != 2 {
		t.Fatalf("got %d turns, want 2", len(provider.Opts))
	}
	if !provider.Opts[0].Think {
		t.Error("first turn should think")
	}
	if provider.Opts[1].Think {
		t.Error("think flag leaked into the second turn")
	}
}

func TestSystemPromptInsertedOnLoad(t *testing.T) {
	provider := llm.NewScripted()
	c, st, _ := scriptedController(t, provider, "fresh", "exit\n")
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(c.history) == 0 || c.history[0].Role != llm.RoleSystem {
		t.Errorf("history does not start with the system prompt: %+v", c.history)
	}
	// The insertion is itself a transcript mutation, so a fresh named chat
	// gets its file created right away.
	if !st.Exists("fresh") {
		t.Fatal("system-prompt insertion was not persisted for a fresh named chat")
	}
	msgs, err := st.Load("fresh")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(msgs) == 0 || msgs[0].Role != llm.RoleSystem {
		t.Errorf("persisted transcript does not start with the system prompt: %+v", msgs)
	}
}

func TestFailedStreamKeepsQuestionOnDisk(t *testing.T) {
	provider := llm.NewScripted()
	provider.Enqueue(llm.StreamEvent{Err: context.DeadlineExceeded})

	c, st, _ := scriptedController(t, provider, "errchat", "my question\nexit\n")
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var sawQuestion bool
	for _, m := range c.history {
		if m.Role == llm.RoleUser && m.Content == "my question" {
			sawQuestion = true
		}
	}
	if !sawQuestion {
		t.Errorf("user message dropped from live history after stream error: %+v", c.history)
	}

	msgs, err := st.Load("errchat")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sawQuestion = false
	for _, m := range msgs {
		if m.Role == llm.RoleUser && m.Content == "my question" {
			sawQuestion = true
		}
	}
	if !sawQuestion {
		t.Errorf("user message not persisted before the failed stream: %+v", msgs)
	}
}

func TestHelpAndInfoDoNotOpenStreams(t *testing.T) {
	provider := llm.NewScripted()
	c, _, out := scriptedController(t, provider, "s", ":help\n:info\nexit\n")
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if provider.Calls != 0 {
		t.Errorf("commands opened %d streams", provider.Calls)
	}
	if !strings.Contains(out.String(), "Available commands") {
		t.Error(":help output missing")
	}
	if !strings.Contains(out.String(), "Selected chat: s") {
		t.Error(":info output missing")
	}
}

func TestAgentToggle(t *testing.T) {
	provider := llm.NewScripted()
	provider.Enqueue(llm.StreamEvent{Kind: llm.ChunkText, Content: "a"}, llm.StreamEvent{Done: true})
	provider.Enqueue(llm.StreamEvent{Kind: llm.ChunkText, Content: "b"}, llm.StreamEvent{Done: true})

	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	tools := tool.Builtin()
	engine := llm.NewEngine(provider, tools, st, func(string) bool { return false }, nil)

	var out strings.Builder
	c := New(Options{
		Config: config.Default(),
		Store:  st,
		Engine: engine,
		Tools:  tools,
		Model:  config.ModelConfig{Provider: "mock", Name: "mock"},
		ChatID: "s",
		Agent:  false,
		In:     strings.NewReader("no tools here\n:agent on\nwith tools\nexit\n"),
		Out:    &out,
	})
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(provider.Opts) != 2 {
		t.Fatalf("got %d turns, want 2", len(provider.Opts))
	}
	if len(provider.Opts[0].Tools) != 0 {
		t.Error("tools offered while agent mode off")
	}
	if len(provider.Opts[1].Tools) == 0 {
		t.Error("no tools offered after :agent on")
	}
}
