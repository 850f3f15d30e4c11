// Package domain contains the core business entities and value objects.
// These structs are framework-agnostic and represent the heart of the application.
package domain

import (
	"log/slog"
	"strconv"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid reports whether the role is one of the supported roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Message is a single conversation turn. Conversations are ordered oldest first.
type Message struct {
	Role    Role   `json:"role" binding:"required,oneof=system user assistant"`
	Content string `json:"content"`
}

// LogValue renders the message as a group so log handlers can inspect the content.
func (m Message) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("role", string(m.Role)),
		slog.String("content", m.Content),
	)
}

// Conversation is a message list that logs as one group per message, keyed by index.
type Conversation []Message

// LogValue implements slog.LogValuer.
func (c Conversation) LogValue() slog.Value {
	attrs := make([]slog.Attr, len(c))
	for i, m := range c {
		attrs[i] = slog.Any(strconv.Itoa(i), m)
	}
	return slog.GroupValue(attrs...)
}

// ModelSpec describes the upstream model and its context window.
type ModelSpec struct {
	// ID is the upstream model identifier (e.g. "gpt-3.5-turbo").
	ID string `json:"id" mapstructure:"id" binding:"required"`

	// Name is a display name. Optional.
	Name string `json:"name,omitempty" mapstructure:"name"`

	// TokenLimit is the maximum context size in tokens.
	TokenLimit int `json:"tokenLimit" mapstructure:"token_limit" binding:"required,gt=0"`

	// MaxLength is the client's character limit for a single message. Informational only.
	MaxLength int `json:"maxLength,omitempty" mapstructure:"max_length"`
}

// ChatRequest is the inbound chat body.
type ChatRequest struct {
	Model       ModelSpec `json:"model" binding:"required"`
	Messages    []Message `json:"messages" binding:"dive"`
	Key         string    `json:"key,omitempty"`
	Prompt      string    `json:"prompt,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// SelectionResult is the outcome of fitting a conversation into a token budget.
type SelectionResult struct {
	// SystemPrompt is always carried through, even when it alone exceeds the budget.
	SystemPrompt string

	// Messages is a contiguous trailing run of the input, oldest first.
	Messages []Message

	// TokenCount is the prompt tokens plus the tokens of every kept message.
	TokenCount int

	// Dropped is how many older messages did not fit.
	Dropped int
}
