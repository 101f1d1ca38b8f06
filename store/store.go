// Package store persists chat transcripts as flat text files, one per
// session, keyed by chat id.
package store

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"chatterm/llm"
)

// Delimiter marks transcript header lines. By convention it does not appear
// in ordinary user or assistant text.
const Delimiter = "▒▒▒▒▒▒▒▒▒▒▒▒▒▒▒▒▒▒▒▒▒▒▒▒▒▒▒▒▒▒▒▒▒▒▒▒▒"

// PersistenceError reports a failed transcript write. In-memory history
// remains authoritative for the rest of the process.
type PersistenceError struct {
	ChatID string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist chat %q: %v", e.ChatID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Store reads and writes transcripts under a single directory.
type Store struct {
	dir string
}

// New returns a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Path returns the transcript file for a chat id. The id is URL-escaped so
// arbitrary names map to safe filenames.
func (s *Store) Path(chatID string) string {
	return filepath.Join(s.dir, url.QueryEscape(chatID)+".txt")
}

// Exists reports whether a transcript exists for the chat id.
func (s *Store) Exists(chatID string) bool {
	_, err := os.Stat(s.Path(chatID))
	return err == nil
}

// Save writes the full message list for a chat. The write is atomic: an
// interrupt mid-write cannot leave a corrupt transcript behind.
func (s *Store) Save(chatID string, msgs []llm.Message) error {
	data := EncodeTranscript(msgs)
	tmp, err := os.CreateTemp(s.dir, ".chat-*")
	if err != nil {
		return &PersistenceError{ChatID: chatID, Err: err}
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &PersistenceError{ChatID: chatID, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &PersistenceError{ChatID: chatID, Err: err}
	}
	if err := os.Rename(tmp.Name(), s.Path(chatID)); err != nil {
		os.Remove(tmp.Name())
		return &PersistenceError{ChatID: chatID, Err: err}
	}
	return nil
}

// Load reads a chat's messages. A missing transcript is an empty history,
// not an error.
func (s *Store) Load(chatID string) ([]llm.Message, error) {
	data, err := os.ReadFile(s.Path(chatID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return DecodeTranscript(data), nil
}

// Delete removes a chat's persisted record entirely.
func (s *Store) Delete(chatID string) error {
	return os.Remove(s.Path(chatID))
}

// List returns all chat ids, most recently modified first.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	type chatInfo struct {
		id  string
		mod int64
	}
	var chats []chatInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".txt") {
			continue
		}
		id, err := url.QueryUnescape(strings.TrimSuffix(name, ".txt"))
		if err != nil || id == "" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		chats = append(chats, chatInfo{id: id, mod: info.ModTime().UnixNano()})
	}

	sort.Slice(chats, func(i, j int) bool { return chats[i].mod > chats[j].mod })

	ids := make([]string, len(chats))
	for i, c := range chats {
		ids[i] = c.id
	}
	return ids, nil
}

// EncodeTranscript renders messages in the flat transcript format: a header
// line per message followed by its raw content. Role labels are centered to
// the widest label in the transcript; tool messages carry their correlation
// id inside the label as tool[<id>].
func EncodeTranscript(msgs []llm.Message) []byte {
	labels := make([]string, len(msgs))
	width := 0
	for i, m := range msgs {
		labels[i] = roleLabel(m)
		if len(labels[i]) > width {
			width = len(labels[i])
		}
	}

	var b strings.Builder
	for i, m := range msgs {
		pad := width - len(labels[i])
		left := pad / 2
		right := pad - left
		b.WriteString(Delimiter)
		b.WriteString(" ")
		b.WriteString(strings.Repeat(" ", left))
		b.WriteString(labels[i])
		b.WriteString(strings.Repeat(" ", right))
		b.WriteString(" ")
		b.WriteString(Delimiter)
		b.WriteString("\n")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return []byte(b.String())
}

// DecodeTranscript parses the flat transcript format back into messages.
// A line is a header iff it starts and ends with the delimiter; everything
// between headers is content, with the trailing blank stripped per message.
func DecodeTranscript(data []byte) []llm.Message {
	lines := strings.Split(string(data), "\n")

	var msgs []llm.Message
	var cur *llm.Message
	var content []string

	flush := func() {
		if cur == nil {
			return
		}
		cur.Content = strings.TrimRight(strings.Join(content, "\n"), "\n ")
		msgs = append(msgs, *cur)
		cur = nil
		content = nil
	}

	for _, line := range lines {
		if isHeader(line) {
			flush()
			role, callID := parseRoleLabel(strings.TrimSpace(line[len(Delimiter) : len(line)-len(Delimiter)]))
			cur = &llm.Message{Role: role, ToolCallID: callID}
			continue
		}
		if cur != nil {
			content = append(content, line)
		}
	}
	flush()
	return msgs
}

func isHeader(line string) bool {
	return len(line) > 2*len(Delimiter) &&
		strings.HasPrefix(line, Delimiter) &&
		strings.HasSuffix(line, Delimiter)
}

func roleLabel(m llm.Message) string {
	if m.Role == llm.RoleTool && m.ToolCallID != "" {
		return fmt.Sprintf("tool[%s]", m.ToolCallID)
	}
	return string(m.Role)
}

func parseRoleLabel(label string) (llm.Role, string) {
	if rest, ok := strings.CutPrefix(label, "tool["); ok {
		if id, ok := strings.CutSuffix(rest, "]"); ok {
			return llm.RoleTool, id
		}
	}
	return llm.Role(label), ""
}
