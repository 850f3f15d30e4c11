// Package adapter provides implementations for external AI provider integrations.
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/hpn/hpn-chat-gateway/internal/domain"
)

const (
	// DefaultMaxTokens is the completion ceiling sent upstream.
	DefaultMaxTokens = 5000

	// DefaultCompletionField is where the completion text sits in a success body.
	DefaultCompletionField = "response"

	// DefaultCompletionPath is appended to the base URL for the openai variant.
	DefaultCompletionPath = "/v1/chat/completions"
)

var controlChars = strings.NewReplacer("\r", "", "\n", "", "\t", "")

// Sanitize strips carriage returns, line feeds and tabs, then trims surrounding
// whitespace. Applying it twice gives the same result as applying it once.
func Sanitize(content string) string {
	return strings.TrimSpace(controlChars.Replace(content))
}

// Forwarder implements CompletionProvider for OpenAI-compatible endpoints,
// both the direct API and deployment-scoped gateways.
type Forwarder struct {
	upstream   domain.Upstream
	httpClient *http.Client
	logger     *slog.Logger
}

// ForwarderOption is a functional option for configuring Forwarder.
type ForwarderOption func(*Forwarder)

// WithBaseURL overrides the upstream base URL.
func WithBaseURL(u string) ForwarderOption {
	return func(f *Forwarder) {
		f.upstream.BaseURL = strings.TrimSuffix(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ForwarderOption {
	return func(f *Forwarder) {
		f.httpClient = client
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ForwarderOption {
	return func(f *Forwarder) {
		f.logger = logger
	}
}

// NewForwarder creates a Forwarder for the given upstream settings.
// Zero values fall back to the package defaults.
func NewForwarder(upstream domain.Upstream, opts ...ForwarderOption) *Forwarder {
	if upstream.Variant == "" {
		upstream.Variant = domain.VariantOpenAI
	}
	if upstream.MaxTokens <= 0 {
		upstream.MaxTokens = DefaultMaxTokens
	}
	if upstream.CompletionField == "" {
		upstream.CompletionField = DefaultCompletionField
	}
	if upstream.CompletionPath == "" {
		upstream.CompletionPath = DefaultCompletionPath
	}
	upstream.BaseURL = strings.TrimSuffix(upstream.BaseURL, "/")

	f := &Forwarder{
		upstream:   upstream,
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Name returns the provider variant.
func (f *Forwarder) Name() string {
	return string(f.upstream.Variant)
}

// Forward performs exactly one POST and returns the completion text.
// The call is bound to ctx; there are no retries.
func (f *Forwarder) Forward(
	ctx context.Context,
	model domain.ModelSpec,
	systemPrompt string,
	temperature float64,
	credential string,
	messages []domain.Message,
) (string, error) {
	body, err := json.Marshal(f.buildRequest(model, systemPrompt, temperature, messages))
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	if f.upstream.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(f.upstream.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	f.setAuth(httpReq.Header, credential)

	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to execute completion request: %w", err)
	}
	defer resp.Body.Close()

	// The raw body is read before any parsing so every failure can carry it.
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read completion response: %w", err)
	}

	f.logger.Debug("upstream response",
		slog.String("variant", f.Name()),
		slog.Int("status", resp.StatusCode),
		slog.String("body", string(raw)),
	)

	return classify(resp.StatusCode, statusText(resp), raw, f.upstream.CompletionField)
}

// buildRequest assembles the outbound body.
func (f *Forwarder) buildRequest(
	model domain.ModelSpec,
	systemPrompt string,
	temperature float64,
	messages []domain.Message,
) ChatCompletionRequest {
	wire := make([]ChatMessage, 0, len(messages)+1)
	wire = append(wire, ChatMessage{Role: string(domain.RoleSystem), Content: systemPrompt})
	for _, msg := range messages {
		wire = append(wire, ChatMessage{Role: string(msg.Role), Content: Sanitize(msg.Content)})
	}

	req := ChatCompletionRequest{
		Messages:    wire,
		MaxTokens:   f.upstream.MaxTokens,
		Temperature: temperature,
		Stream:      false,
	}
	if f.upstream.Variant == domain.VariantOpenAI {
		req.Model = model.ID
	}
	return req
}

// Endpoint returns the completion URL for the configured variant.
func (f *Forwarder) Endpoint() string {
	if f.upstream.Variant == domain.VariantAzure {
		return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
			f.upstream.BaseURL,
			url.PathEscape(f.upstream.DeploymentID),
			url.QueryEscape(f.upstream.APIVersion),
		)
	}
	return f.upstream.BaseURL + f.upstream.CompletionPath
}

// setAuth adds the variant's credential headers.
func (f *Forwarder) setAuth(h http.Header, credential string) {
	switch f.upstream.Variant {
	case domain.VariantAzure:
		h.Set("api-key", credential)
	default:
		h.Set("Authorization", "Bearer "+credential)
		if f.upstream.Organization != "" {
			h.Set("OpenAI-Organization", f.upstream.Organization)
		}
	}
}

// classify turns a status and raw body into the completion text or an *UpstreamError.
func classify(statusCode int, status string, raw []byte, field string) (string, error) {
	body := string(raw)

	if statusCode < 200 || statusCode > 299 {
		if api := parseAPIError(raw); api != nil {
			return "", &UpstreamError{Kind: KindAPI, StatusCode: statusCode, Status: status, Body: body, API: api}
		}
		return "", &UpstreamError{Kind: KindTransport, StatusCode: statusCode, Status: status, Body: body}
	}

	if !gjson.ValidBytes(raw) {
		return "", &UpstreamError{Kind: KindParse, StatusCode: statusCode, Status: status, Body: body}
	}

	if api := parseAPIError(raw); api != nil {
		return "", &UpstreamError{Kind: KindAPI, StatusCode: statusCode, Status: status, Body: body, API: api}
	}

	result := gjson.GetBytes(raw, field)
	if !result.Exists() {
		return "", &UpstreamError{
			Kind:       KindParse,
			StatusCode: statusCode,
			Status:     status,
			Body:       body,
			Err:        fmt.Errorf("completion field %q missing", field),
		}
	}
	switch result.Type {
	case gjson.String:
		return result.Str, nil
	case gjson.Null:
		return "", nil
	default:
		return result.Raw, nil
	}
}

// parseAPIError extracts a provider error object. It accepts
// {"error": {"message": ...}} and the bare {"error": "message"} form.
func parseAPIError(raw []byte) *APIErrorDetail {
	if !gjson.ValidBytes(raw) {
		return nil
	}

	e := gjson.GetBytes(raw, "error")
	switch {
	case e.IsObject():
		msg := e.Get("message")
		if !msg.Exists() {
			return nil
		}
		return &APIErrorDetail{
			Message: msg.String(),
			Type:    e.Get("type").String(),
			Param:   e.Get("param").Value(),
			Code:    e.Get("code").Value(),
		}
	case e.Type == gjson.String && e.Str != "":
		return &APIErrorDetail{Message: e.Str}
	default:
		return nil
	}
}

// statusText returns the reason phrase without the leading code.
func statusText(resp *http.Response) string {
	return strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" ")
}
