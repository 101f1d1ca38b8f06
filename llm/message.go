package llm

import "slices"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// Message is one entry in a conversation transcript. Ordering is conversation
// order and is exactly what gets sent to the provider.
type Message struct {
	Role    Role
	Content string
	// ToolCallID correlates a tool message to the assistant tool call that
	// requested it. Empty for every other role.
	ToolCallID string
}

// EnsureSystemPrompt inserts a system message with the given prompt at the
// front of msgs if no system message is present. It returns the resulting
// slice and whether it had to insert one; callers persist on insertion.
// Calling it twice never inserts twice.
func EnsureSystemPrompt(msgs []Message, prompt string) ([]Message, bool) {
	for _, m := range msgs {
		if m.Role == RoleSystem {
			return msgs, false
		}
	}
	return slices.Insert(msgs, 0, Message{Role: RoleSystem, Content: prompt}), true
}
