// Package adapter provides implementations for external AI provider integrations.
// It uses the Adapter pattern to abstract provider-specific APIs behind a common interface.
package adapter

import (
	"context"

	"github.com/hpn/hpn-chat-gateway/internal/domain"
)

// CompletionProvider issues one completion request upstream.
type CompletionProvider interface {
	// Forward sends the system prompt and messages to the provider and returns
	// the completion text. Failures are *UpstreamError values or, for
	// connection-level problems, plain wrapped errors.
	Forward(
		ctx context.Context,
		model domain.ModelSpec,
		systemPrompt string,
		temperature float64,
		credential string,
		messages []domain.Message,
	) (string, error)

	// Name returns the provider's identifier string.
	Name() string
}
