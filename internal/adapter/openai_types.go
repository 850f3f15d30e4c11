// Package adapter provides implementations for external AI provider integrations.
package adapter

// Wire types for the OpenAI-compatible chat completion endpoint.

// ChatCompletionRequest is the outbound request body.
type ChatCompletionRequest struct {
	// Model is only sent to the direct OpenAI variant; deployments imply the model.
	Model string `json:"model,omitempty"`

	// Messages is the system message followed by the selected conversation.
	Messages []ChatMessage `json:"messages"`

	// MaxTokens caps the completion length.
	MaxTokens int `json:"max_tokens"`

	// Temperature controls randomness.
	Temperature float64 `json:"temperature"`

	// Stream is always false; the full completion is collected before replying.
	Stream bool `json:"stream"`
}

// ChatMessage is one message on the wire. Content is always present, even when empty.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
