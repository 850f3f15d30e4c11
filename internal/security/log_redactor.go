// Package security provides data leakage prevention utilities.
package security

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// Redaction placeholder for sensitive data.
const RedactedPlaceholder = "[REDACTED]"

// sensitivePatterns contains regex patterns for credential formats that can
// show up in upstream bodies, headers and error strings.
var sensitivePatterns = []*regexp.Regexp{
	// Bearer tokens, including JWTs
	regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._~+/=-]{8,}`),
	// OpenAI keys: sk-..., sk-proj-...
	regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`),
	// Bare JWTs: header.payload.signature
	regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`),
	// api-key header values echoed in dumps
	regexp.MustCompile(`(?i)api-key:\s*[a-zA-Z0-9]{16,}`),
	// Credentials in query params
	regexp.MustCompile(`(?i)(api[_-]?)?key=[a-zA-Z0-9_-]{16,}`),
	// Azure keys: 32 hex characters
	regexp.MustCompile(`\b[a-f0-9]{32}\b`),
}

// sensitiveKeys are attribute names whose values are always replaced.
var sensitiveKeys = map[string]struct{}{
	"authorization": {},
	"api_key":       {},
	"apikey":        {},
	"api-key":       {},
	"key":           {},
	"secret":        {},
	"jwt_secret":    {},
	"password":      {},
	"token":         {},
	"bearer":        {},
	"credential":    {},
	"credentials":   {},
}

// Redact scans a string for sensitive patterns and replaces them.
// This is the primary function for sanitizing log output.
func Redact(s string) string {
	result := s
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedPlaceholder)
	}
	return result
}

// RedactedHandler wraps an slog.Handler and redacts sensitive data from log records.
type RedactedHandler struct {
	inner slog.Handler
}

// NewRedactedHandler creates a new handler that wraps an existing handler
// and redacts sensitive data from all log output.
func NewRedactedHandler(inner slog.Handler) *RedactedHandler {
	return &RedactedHandler{inner: inner}
}

// Enabled reports whether the handler handles records at the given level.
func (h *RedactedHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle processes a log record, redacting sensitive data.
func (h *RedactedHandler) Handle(ctx context.Context, r slog.Record) error {
	redacted := slog.NewRecord(r.Time, r.Level, Redact(r.Message), r.PC)

	r.Attrs(func(a slog.Attr) bool {
		redacted.AddAttrs(redactAttr(a))
		return true
	})

	return h.inner.Handle(ctx, redacted)
}

// WithAttrs returns a new handler with the given attributes added.
func (h *RedactedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = redactAttr(a)
	}
	return &RedactedHandler{inner: h.inner.WithAttrs(redacted)}
}

// WithGroup returns a new handler with the given group name.
func (h *RedactedHandler) WithGroup(name string) slog.Handler {
	return &RedactedHandler{inner: h.inner.WithGroup(name)}
}

// redactAttr redacts sensitive data from a single attribute, descending into groups.
func redactAttr(a slog.Attr) slog.Attr {
	if IsSensitiveKey(a.Key) {
		return slog.String(a.Key, RedactedPlaceholder)
	}

	value := a.Value.Resolve()

	switch value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, Redact(value.String()))
	case slog.KindGroup:
		group := value.Group()
		redacted := make([]any, len(group))
		for i, ga := range group {
			redacted[i] = redactAttr(ga)
		}
		return slog.Group(a.Key, redacted...)
	case slog.KindAny:
		switch v := value.Any().(type) {
		case []string:
			redacted := make([]string, len(v))
			for i, s := range v {
				redacted[i] = Redact(s)
			}
			return slog.Any(a.Key, redacted)
		case error:
			return slog.String(a.Key, Redact(v.Error()))
		}
	}

	return slog.Attr{Key: a.Key, Value: value}
}

// IsSensitiveKey reports whether an attribute or header name carries a secret.
// Names like "token_count" or "prompt_tokens" are not sensitive.
func IsSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	if _, ok := sensitiveKeys[key]; ok {
		return true
	}
	return strings.HasSuffix(key, "_key") ||
		strings.HasSuffix(key, "_secret") ||
		strings.HasSuffix(key, "_token") ||
		strings.HasSuffix(key, "_password")
}

// MaskKey returns a short masked version of a credential for logs and the console.
// Format: xxxx...xxxx
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 12 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
