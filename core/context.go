package core

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Role is the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the three roles a context entry may carry.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// ContextEntry is one role-tagged turn of conversation history.
type ContextEntry struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// UnmarshalJSON requires a valid role and a string content; a missing or
// null content is rejected.
func (e *ContextEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    *Role   `json:"role"`
		Content *string `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil || raw.Role == nil || raw.Content == nil {
		return NewValidationError(msgInvalidContextEntry)
	}
	if !raw.Role.Valid() {
		return NewValidationError(msgInvalidContextEntry)
	}
	e.Role = *raw.Role
	e.Content = *raw.Content
	return nil
}

// UnmarshalYAML applies the same rules as UnmarshalJSON to YAML mappings.
func (e *ContextEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return NewValidationError(msgInvalidContextEntry)
	}
	var role, content *yaml.Node
	for i := 0; i+1 < len(node.Content); i += 2 {
		switch node.Content[i].Value {
		case "role":
			role = node.Content[i+1]
		case "content":
			content = node.Content[i+1]
		}
	}
	if role == nil || content == nil || content.Kind != yaml.ScalarNode || content.ShortTag() != "!!str" {
		return NewValidationError(msgInvalidContextEntry)
	}
	if r := Role(role.Value); !r.Valid() {
		return NewValidationError(msgInvalidContextEntry)
	}
	e.Role = Role(role.Value)
	e.Content = content.Value
	return nil
}

// ContextBuffer holds the conversation history that is prepended to every
// chat request of the client that owns it.
//
// ContextBuffer does no locking. Mutating it while another goroutine is
// building a chat request from the same client is a data race.
type ContextBuffer struct {
	entries []ContextEntry
}

// NewContextBuffer returns an empty buffer.
func NewContextBuffer() *ContextBuffer {
	return &ContextBuffer{}
}

// Append validates e and adds it to the end of the buffer. An invalid entry
// leaves the buffer unchanged.
func (b *ContextBuffer) Append(e ContextEntry) error {
	if !e.Role.Valid() {
		return NewValidationError(msgInvalidContextEntry)
	}
	b.entries = append(b.entries, e)
	return nil
}

// AppendBatch appends entries in order. A nil slice is rejected. When an
// entry fails validation the error is returned and the entries before it
// stay appended.
func (b *ContextBuffer) AppendBatch(entries []ContextEntry) error {
	if entries == nil {
		return NewValidationError(msgInvalidContextBatch)
	}
	for _, e := range entries {
		if err := b.Append(e); err != nil {
			return err
		}
	}
	return nil
}

// AppendJSON decodes a JSON array of entries and appends them one at a time
// with the same partial-success policy as AppendBatch.
func (b *ContextBuffer) AppendJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil || items == nil {
		return NewValidationError(msgInvalidContextBatch)
	}
	for _, item := range items {
		var e ContextEntry
		if err := json.Unmarshal(item, &e); err != nil {
			return NewValidationError(msgInvalidContextEntry)
		}
		if err := b.Append(e); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot returns a copy of the entries in insertion order.
func (b *ContextBuffer) Snapshot() []ContextEntry {
	out := make([]ContextEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len returns the number of entries.
func (b *ContextBuffer) Len() int {
	return len(b.entries)
}

// Clear empties the buffer.
func (b *ContextBuffer) Clear() {
	b.entries = nil
}
