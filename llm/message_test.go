package llm_test

import (
	"testing"

	"chatterm/llm"
)

func TestEnsureSystemPromptInserts(t *testing.T) {
	history := []llm.Message{{Role: llm.RoleUser, Content: "hi"}}

	msgs, inserted := llm.EnsureSystemPrompt(history, "be helpful")
	if !inserted {
		t.Fatal("expected insertion")
	}
	if msgs[0].Role != llm.RoleSystem || msgs[0].Content != "be helpful" {
		t.Errorf("system prompt not at index 0: %+v", msgs[0])
	}
	if len(history) != 1 {
		t.Error("caller's slice was mutated")
	}
}

func TestEnsureSystemPromptIdempotent(t *testing.T) {
	msgs, _ := llm.EnsureSystemPrompt(nil, "be helpful")
	again, inserted := llm.EnsureSystemPrompt(msgs, "be helpful")
	if inserted {
		t.Error("second call reported an insertion")
	}
	count := 0
	for _, m := range again {
		if m.Role == llm.RoleSystem {
			count++
		}
	}
	if count != 1 {
		t.Errorf("got %d system messages, want 1", count)
	}
}

func TestToolCallRoundTrip(t *testing.T) {
	call := llm.ToolCall{Name: "cat", ID: "abc", Args: `{"arguments":"a b"}`}
	content := llm.MarshalToolCall(call)

	got, ok := llm.ParseToolCall(content)
	if !ok {
		t.Fatal("marshaled tool call not recognized")
	}
	if got != call {
		t.Errorf("round trip changed the call: %+v != %+v", got, call)
	}

	if _, ok := llm.ParseToolCall("just some prose {with} braces"); ok {
		t.Error("prose misread as a tool call")
	}
	if _, ok := llm.ParseToolCall(`{"success":true}`); ok {
		t.Error("tool result misread as a tool call")
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []llm.Role{llm.RoleSystem, llm.RoleUser, llm.RoleAssistant, llm.RoleTool} {
		if !r.Valid() {
			t.Errorf("%q should be valid", r)
		}
	}
	if llm.Role("narrator").Valid() {
		t.Error("unknown role accepted")
	}
}
