// Package handler provides HTTP handlers for the chat gateway.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hpn/hpn-chat-gateway/internal/adapter"
	"github.com/hpn/hpn-chat-gateway/internal/domain"
	"github.com/hpn/hpn-chat-gateway/internal/security"
	"github.com/hpn/hpn-chat-gateway/internal/ui"
)

// Gin context keys shared with the middleware.
const (
	ctxKeyHint   = "key_hint"
	ctxSelection = "selection"
	ctxRequestID = "request_id"
	ctxSubject   = "subject"
)

// internalErrorMessage is the only detail clients see for non-API failures.
const internalErrorMessage = "Internal server error"

// ConversationSelector fits a conversation into a token budget.
type ConversationSelector interface {
	Select(systemPrompt string, messages []domain.Message, tokenLimit int) domain.SelectionResult
}

// ChatHandler runs one budget selection and one upstream call per request.
type ChatHandler struct {
	selector    ConversationSelector
	provider    adapter.CompletionProvider
	credentials *domain.CredentialPool
	logger      *slog.Logger

	systemPrompt string
	temperature  float64
	models       []domain.ModelSpec
	cooldown     time.Duration
	console      bool
}

// ChatHandlerOption is a functional option for configuring ChatHandler.
type ChatHandlerOption func(*ChatHandler)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ChatHandlerOption {
	return func(h *ChatHandler) {
		h.logger = logger
	}
}

// WithDefaults sets the system prompt and temperature used when a request omits them.
func WithDefaults(systemPrompt string, temperature float64) ChatHandlerOption {
	return func(h *ChatHandler) {
		h.systemPrompt = systemPrompt
		h.temperature = temperature
	}
}

// WithModels sets the catalog served by HandleModels.
func WithModels(models []domain.ModelSpec) ChatHandlerOption {
	return func(h *ChatHandler) {
		h.models = models
	}
}

// WithCooldown records the credential cooldown for console output.
func WithCooldown(cooldown time.Duration) ChatHandlerOption {
	return func(h *ChatHandler) {
		h.cooldown = cooldown
	}
}

// WithConsole enables colored console lines for credential events.
func WithConsole(enabled bool) ChatHandlerOption {
	return func(h *ChatHandler) {
		h.console = enabled
	}
}

// NewChatHandler creates a new ChatHandler. A nil pool means callers must
// always send their own key.
func NewChatHandler(
	selector ConversationSelector,
	provider adapter.CompletionProvider,
	credentials *domain.CredentialPool,
	opts ...ChatHandlerOption,
) *ChatHandler {
	if credentials == nil {
		credentials = domain.NewCredentialPool(nil, 0)
	}

	h := &ChatHandler{
		selector:    selector,
		provider:    provider,
		credentials: credentials,
		logger:      slog.Default(),
		temperature: 1,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// HandleChat handles POST /api/chat.
// The reply is the completion as text/plain, or {"error": "..."} on failure.
func (h *ChatHandler) HandleChat(c *gin.Context) {
	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	systemPrompt := req.Prompt
	if systemPrompt == "" {
		systemPrompt = h.systemPrompt
	}

	temperature := h.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	result := h.selector.Select(systemPrompt, req.Messages, req.Model.TokenLimit)
	c.Set(ctxSelection, result)

	logger := h.logger.With(slog.String("request_id", c.GetString(ctxRequestID)))

	logger.Info("conversation selected",
		slog.String("model", req.Model.ID),
		slog.Int("token_limit", req.Model.TokenLimit),
		slog.Int("token_count", result.TokenCount),
		slog.Int("kept", len(result.Messages)),
		slog.Int("dropped", result.Dropped),
	)
	logger.Debug("selection detail",
		slog.String("prompt", result.SystemPrompt),
		slog.Any("messages", domain.Conversation(result.Messages)),
	)

	credential, fromPool, err := h.credentials.Resolve(req.Key)
	if err != nil {
		logger.Warn("no credential for upstream call", slog.String("error", err.Error()))
		sendError(c, http.StatusUnauthorized, err.Error())
		return
	}
	c.Set(ctxKeyHint, security.MaskKey(credential))

	completion, err := h.provider.Forward(
		c.Request.Context(),
		req.Model,
		result.SystemPrompt,
		temperature,
		credential,
		result.Messages,
	)
	if err != nil {
		h.handleForwardError(c, logger, err, credential, fromPool)
		return
	}

	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(completion))
}

// handleForwardError maps an upstream failure to a response.
// Provider error objects are relayed with their message; everything else is
// logged and reported as an internal error.
func (h *ChatHandler) handleForwardError(
	c *gin.Context,
	logger *slog.Logger,
	err error,
	credential string,
	fromPool bool,
) {
	upErr, ok := adapter.AsUpstreamError(err)
	if !ok || upErr.Kind != adapter.KindAPI {
		attrs := []any{slog.String("error", err.Error())}
		if ok {
			attrs = append(attrs,
				slog.String("kind", upErr.Kind.String()),
				slog.Int("upstream_status", upErr.StatusCode),
			)
		}
		if ctxErr := c.Request.Context().Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			logger.Warn("upstream call abandoned", attrs...)
		} else {
			logger.Error("upstream call failed", attrs...)
		}
		sendError(c, http.StatusInternalServerError, internalErrorMessage)
		return
	}

	status := upErr.StatusCode
	if status < http.StatusBadRequest {
		status = http.StatusBadGateway
	}

	logger.Warn("upstream rejected request",
		slog.Int("upstream_status", upErr.StatusCode),
		slog.String("type", upErr.API.Type),
		slog.Any("code", upErr.API.Code),
		slog.String("message", upErr.API.Message),
	)

	if fromPool && isCredentialRejection(upErr.StatusCode) {
		h.credentials.Suspend(credential)
		logger.Warn("fallback credential suspended",
			slog.String("key_hint", security.MaskKey(credential)),
			slog.Int("active", h.credentials.ActiveCount()),
		)
		if h.console {
			ui.PrintSuspended(credential, upErr.StatusCode, h.cooldown)
		}
	}

	sendError(c, status, upErr.API.Message)
}

// isCredentialRejection reports whether a status means the key itself was refused.
func isCredentialRejection(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// sendError writes the gateway's error body.
func sendError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// HandleModels handles GET /api/models.
// Returns the configured model catalog.
func (h *ChatHandler) HandleModels(c *gin.Context) {
	models := h.models
	if models == nil {
		models = []domain.ModelSpec{}
	}
	c.JSON(http.StatusOK, gin.H{"models": models})
}

// HandleHealth handles GET /health
// Returns server health status.
func (h *ChatHandler) HandleHealth(c *gin.Context) {
	active := h.credentials.ActiveCount()
	total := h.credentials.TotalCount()

	status := "healthy"
	if total > 0 && active == 0 {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         status,
		"provider":       h.provider.Name(),
		"active_keys":    active,
		"suspended_keys": h.credentials.SuspendedCount(),
		"total_keys":     total,
	})
}
