// Package tokenizer provides the token-counting capability used to budget prompts.
//
// Counting happens through a Session acquired from a Tokenizer. A session is
// owned by one caller for the duration of one operation and must be released
// when that operation ends; implementations recycle the underlying encoder.
package tokenizer

import "fmt"

// EncodingEstimate selects the dependency-free word heuristic instead of a BPE encoding.
const EncodingEstimate = "estimate"

// DefaultEncoding matches the encoding of the gpt-3.5/gpt-4 chat models.
const DefaultEncoding = "cl100k_base"

// Session counts tokens. It is not safe for concurrent use.
type Session interface {
	// Count returns the number of tokens in text. Identical input yields identical output.
	Count(text string) int

	// Release hands the session back. Count must not be called afterwards.
	Release()
}

// Tokenizer hands out counting sessions. Implementations are safe for concurrent use.
type Tokenizer interface {
	Acquire() Session
}

// New returns the tokenizer for the named encoding.
func New(encoding string) (Tokenizer, error) {
	switch encoding {
	case EncodingEstimate:
		return Estimator, nil
	case "":
		return NewBPE(DefaultEncoding)
	default:
		t, err := NewBPE(encoding)
		if err != nil {
			return nil, fmt.Errorf("tokenizer %q: %w", encoding, err)
		}
		return t, nil
	}
}

// CountFunc adapts a plain counting function into a Tokenizer whose sessions
// hold no resources.
type CountFunc func(text string) int

// Acquire implements Tokenizer.
func (f CountFunc) Acquire() Session {
	return funcSession(f)
}

type funcSession CountFunc

func (s funcSession) Count(text string) int { return s(text) }

func (s funcSession) Release() {}
