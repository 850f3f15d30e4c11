// Package main is the entry point for the hpn-chat-gateway server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hpn/hpn-chat-gateway/internal/adapter"
	"github.com/hpn/hpn-chat-gateway/internal/budget"
	"github.com/hpn/hpn-chat-gateway/internal/config"
	"github.com/hpn/hpn-chat-gateway/internal/domain"
	"github.com/hpn/hpn-chat-gateway/internal/handler"
	"github.com/hpn/hpn-chat-gateway/internal/security"
	"github.com/hpn/hpn-chat-gateway/internal/tokenizer"
	"github.com/hpn/hpn-chat-gateway/internal/ui"
)

const version = "v1.0.0"

// limiterSweep is how often idle rate-limit buckets are evicted, and how long
// a client must be idle before its bucket goes.
const limiterSweep = 5 * time.Minute

func main() {
	// =========================================================================
	// 1. Load configuration (Singleton, .env + env + config.yaml)
	// =========================================================================
	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// =========================================================================
	// 2. Setup structured logger (JSON format, secrets redacted)
	// =========================================================================
	logger, closeLog, err := setupLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if cfg.Logging.Console {
		ui.PrintBanner(version)
	}

	logger.Info("starting hpn-chat-gateway",
		slog.String("version", version),
		slog.String("variant", string(cfg.Upstream.Variant)),
		slog.String("base_url", cfg.Upstream.BaseURL),
		slog.String("encoding", cfg.Tokenizer.Encoding),
		slog.Int("reserve_tokens", cfg.Budget.ReserveTokens),
		slog.Int("fallback_keys", len(cfg.Credentials.Keys)),
	)

	// =========================================================================
	// 3. Build the pipeline and router
	// =========================================================================
	app, err := newApp(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if app.limiter != nil {
		go app.limiter.RunCleanup(ctx, limiterSweep, limiterSweep)
	}

	// =========================================================================
	// 4. Start HTTP server with graceful shutdown
	// =========================================================================
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      app.router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("address", addr))
		if cfg.Logging.Console {
			ui.PrintStartupInfo(ui.StartupInfo{
				Host:         cfg.Server.Host,
				Port:         cfg.Server.Port,
				Variant:      string(cfg.Upstream.Variant),
				Endpoint:     app.forwarder.Endpoint(),
				Encoding:     cfg.Tokenizer.Encoding,
				Reserve:      cfg.Budget.ReserveTokens,
				FallbackKeys: app.credentials.TotalCount(),
				AuthEnabled:  cfg.Auth.Enabled(),
				RateLimit:    cfg.RateLimit.RequestsPerSecond,
			})
		}

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// =========================================================================
	// 5. Graceful shutdown on SIGTERM/SIGINT
	// =========================================================================
	select {
	case err := <-serverErr:
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	if cfg.Logging.Console {
		ui.PrintShutdown()
	}

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
	if cfg.Logging.Console {
		ui.PrintGoodbye()
	}
}

// app holds the wired components behind the router.
type app struct {
	router      *gin.Engine
	forwarder   *adapter.Forwarder
	credentials *domain.CredentialPool
	limiter     *handler.ClientLimiter
}

// newApp wires tokenizer, selector, forwarder and credential pool into a router.
func newApp(cfg *config.Configuration, logger *slog.Logger) (*app, error) {
	tok, err := tokenizer.New(cfg.Tokenizer.Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer: %w", err)
	}

	selector := budget.NewSelector(tok, budget.WithReserve(cfg.Budget.ReserveTokens))

	forwarder := adapter.NewForwarder(cfg.Upstream, adapter.WithLogger(logger))

	credentials := domain.NewCredentialPool(cfg.Credentials.Keys, cfg.Credentials.Cooldown())
	logger.Info("credential pool initialized",
		slog.Int("total_keys", credentials.TotalCount()),
		slog.Duration("cooldown", cfg.Credentials.Cooldown()),
	)

	chatHandler := handler.NewChatHandler(
		selector,
		forwarder,
		credentials,
		handler.WithLogger(logger),
		handler.WithDefaults(cfg.Defaults.SystemPrompt, cfg.Defaults.Temperature),
		handler.WithModels(cfg.Models),
		handler.WithCooldown(cfg.Credentials.Cooldown()),
		handler.WithConsole(cfg.Logging.Console),
	)

	a := &app{
		forwarder:   forwarder,
		credentials: credentials,
	}
	if cfg.RateLimit.Enabled() {
		a.limiter = handler.NewClientLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	a.router = setupRouter(cfg, chatHandler, a.limiter, logger)
	return a, nil
}

// setupRouter registers middleware and routes.
func setupRouter(
	cfg *config.Configuration,
	chatHandler *handler.ChatHandler,
	limiter *handler.ClientLimiter,
	logger *slog.Logger,
) *gin.Engine {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Apply middleware
	router.Use(handler.RequestIDMiddleware())
	router.Use(handler.RecoveryMiddleware(logger))
	router.Use(handler.CORSMiddleware())
	router.Use(handler.LoggingMiddleware(logger, cfg.Logging.Console))

	router.GET("/health", chatHandler.HandleHealth)

	api := router.Group("/")
	if limiter != nil {
		api.Use(handler.RateLimitMiddleware(limiter))
	}
	if cfg.Auth.Enabled() {
		api.Use(handler.JWTAuthMiddleware(cfg.Auth.JWTSecret))
	}

	api.POST("/api/chat", chatHandler.HandleChat)
	api.GET("/api/models", chatHandler.HandleModels)

	// Also support a versioned path
	api.POST("/v1/chat", chatHandler.HandleChat)

	return router
}

// setupLogger creates a structured logger that redacts credentials.
// The returned func closes the log file, if one was opened.
func setupLogger(cfg config.LoggingConfig) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var w io.Writer = os.Stdout
	closeFn := func() {}
	if cfg.OutputPath != "" {
		f, err := os.OpenFile(cfg.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var base slog.Handler
	if cfg.Format == "text" {
		base = slog.NewTextHandler(w, opts)
	} else {
		base = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(security.NewRedactedHandler(base))

	// Set as default logger
	slog.SetDefault(logger)

	return logger, closeFn, nil
}
