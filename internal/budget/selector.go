// Package budget fits a conversation into a model's context window.
//
// The selector walks the conversation from the newest message backwards and
// keeps messages while the running count plus a fixed completion reserve stays
// within the model's token limit. The first message that does not fit ends the
// walk, so the kept messages are always a contiguous trailing run of the input.
//
// The system prompt is always kept. When the prompt alone exceeds
// tokenLimit-reserve the result holds zero messages and a TokenCount above
// that bound; the caller decides whether to send it anyway.
package budget

import (
	"github.com/hpn/hpn-chat-gateway/internal/domain"
	"github.com/hpn/hpn-chat-gateway/internal/tokenizer"
)

// DefaultReserve is the headroom left for the model's own completion tokens.
const DefaultReserve = 1000

// Selector trims conversations to a token budget.
type Selector struct {
	tokenizer tokenizer.Tokenizer
	reserve   int
}

// SelectorOption is a functional option for configuring Selector.
type SelectorOption func(*Selector)

// WithReserve overrides the completion reserve. Negative values are ignored.
func WithReserve(reserve int) SelectorOption {
	return func(s *Selector) {
		if reserve >= 0 {
			s.reserve = reserve
		}
	}
}

// NewSelector creates a Selector counting with tok.
func NewSelector(tok tokenizer.Tokenizer, opts ...SelectorOption) *Selector {
	s := &Selector{
		tokenizer: tok,
		reserve:   DefaultReserve,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reserve returns the configured completion reserve.
func (s *Selector) Reserve() int {
	return s.reserve
}

// Select returns the longest trailing run of messages that fits tokenLimit.
// It never fails.
func (s *Selector) Select(systemPrompt string, messages []domain.Message, tokenLimit int) domain.SelectionResult {
	session := s.tokenizer.Acquire()
	defer session.Release()

	tokenCount := session.Count(systemPrompt)

	start := len(messages)
	for i := len(messages) - 1; i >= 0; i-- {
		n := session.Count(messages[i].Content)
		if tokenCount+n+s.reserve > tokenLimit {
			break
		}
		tokenCount += n
		start = i
	}

	selected := make([]domain.Message, len(messages)-start)
	copy(selected, messages[start:])

	return domain.SelectionResult{
		SystemPrompt: systemPrompt,
		Messages:     selected,
		TokenCount:   tokenCount,
		Dropped:      start,
	}
}
