package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// ChatMessage represents a single chat message. It is treated as immutable
// once constructed.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserMessage builds a user-authored message.
func UserMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleUser, Content: content}
}

// CompletionRequest is the unit the mediator caches and the client sends.
// Two requests with equal model, messages and max tokens are the same request.
type CompletionRequest struct {
	Model     string        `json:"model"`
	Messages  []ChatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

// NewCompletionRequest copies messages so later mutation of the caller's
// slice cannot change the request.
func NewCompletionRequest(model string, messages []ChatMessage, maxTokens int) *CompletionRequest {
	msgs := make([]ChatMessage, len(messages))
	copy(msgs, messages)
	return &CompletionRequest{
		Model:     model,
		Messages:  msgs,
		MaxTokens: maxTokens,
	}
}

// Key returns a digest of the request's wire form. Invalid UTF-8 bytes
// count as U+FFFD, which is what the provider receives for them, so Key and
// Equal agree on requests that differ only in such bytes.
func (r *CompletionRequest) Key() string {
	// Field order is fixed by the struct, so the encoding is canonical.
	data, err := json.Marshal(r.wireForm())
	if err != nil {
		// Only strings and ints are encoded; Marshal cannot fail here.
		panic(err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (r *CompletionRequest) wireForm() *CompletionRequest {
	msgs := make([]ChatMessage, len(r.Messages))
	for i, m := range r.Messages {
		msgs[i] = ChatMessage{Role: Role(wireString(string(m.Role))), Content: wireString(m.Content)}
	}
	return &CompletionRequest{Model: wireString(r.Model), Messages: msgs, MaxTokens: r.MaxTokens}
}

// Equal reports whether two requests have the same wire form.
func (r *CompletionRequest) Equal(other *CompletionRequest) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.MaxTokens != other.MaxTokens || len(r.Messages) != len(other.Messages) ||
		wireString(r.Model) != wireString(other.Model) {
		return false
	}
	for i, m := range r.Messages {
		o := other.Messages[i]
		if wireString(string(m.Role)) != wireString(string(o.Role)) ||
			wireString(m.Content) != wireString(o.Content) {
			return false
		}
	}
	return true
}

// wireString replaces each invalid UTF-8 byte with U+FFFD, as encoding/json
// does when the request is sent.
func wireString(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		b.WriteRune(r)
	}
	return b.String()
}

// Model describes a selectable model.
type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
