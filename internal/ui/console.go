// Package ui provides styled console output for the chat gateway.
// Colorized request lines, status badges and the startup summary go to stdout
// alongside the structured JSON log.
package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/hpn/hpn-chat-gateway/internal/security"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR DEFINITIONS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// Badge colors
	successBadge = color.New(color.BgGreen, color.FgBlack, color.Bold)
	warningBadge = color.New(color.FgYellow, color.Bold)
	errorBadge   = color.New(color.BgRed, color.FgWhite, color.Bold)
	infoBadge    = color.New(color.FgCyan, color.Bold)
	debugBadge   = color.New(color.FgMagenta)

	// Text colors
	successText = color.New(color.FgGreen, color.Bold)
	warningText = color.New(color.FgYellow)
	errorText   = color.New(color.FgRed)
	infoText    = color.New(color.FgCyan)
	mutedText   = color.New(color.FgHiBlack)
	accentText  = color.New(color.FgMagenta, color.Bold)
	neonBlue    = color.New(color.FgHiCyan, color.Bold)

	// Method colors
	methodPOST   = color.New(color.BgHiMagenta, color.FgBlack, color.Bold)
	methodGET    = color.New(color.BgHiCyan, color.FgBlack, color.Bold)
	methodPUT    = color.New(color.BgHiYellow, color.FgBlack, color.Bold)
	methodDELETE = color.New(color.BgHiRed, color.FgBlack, color.Bold)
)

var (
	out   io.Writer = color.Output
	outMu sync.Mutex
)

// SetOutput redirects console output. Lines from concurrent requests are
// serialized so they never interleave.
func SetOutput(w io.Writer) {
	outMu.Lock()
	defer outMu.Unlock()
	out = w
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS BADGES
// ══════════════════════════════════════════════════════════════════════════════

// PrintSuspended logs a fallback credential taken out of rotation.
// Format: [SUSPENDED] xxxx...xxxx rejected with 401, back in 60s
func PrintSuspended(key string, status int, cooldown time.Duration) {
	outMu.Lock()
	defer outMu.Unlock()

	errorBadge.Fprint(out, " SUSPENDED ")
	fmt.Fprint(out, " ")
	errorText.Fprint(out, security.MaskKey(key))
	if cooldown > 0 {
		mutedText.Fprintf(out, " rejected with %d, back in %s\n", status, cooldown)
	} else {
		mutedText.Fprintf(out, " rejected with %d\n", status)
	}
}

// PrintGatewayInfo logs general gateway information.
// Format: [GATEWAY] message
func PrintGatewayInfo(msg string) {
	outMu.Lock()
	defer outMu.Unlock()

	infoBadge.Fprint(out, "[GATEWAY]")
	fmt.Fprint(out, " ")
	infoText.Fprintln(out, msg)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST LOGGING
// ══════════════════════════════════════════════════════════════════════════════

// RequestLine is one finished request as shown on the console.
type RequestLine struct {
	Method  string
	Path    string
	Status  int
	Latency time.Duration

	// KeyHint is the masked credential, empty when none was used.
	KeyHint string

	// Kept, Dropped and Tokens describe the budget selection. Tokens < 0 means
	// the request never reached selection.
	Kept    int
	Dropped int
	Tokens  int
}

// PrintRequest logs a request with styled output.
// Color-codes status, method, and latency for quick visual parsing.
func PrintRequest(line RequestLine) {
	outMu.Lock()
	defer outMu.Unlock()

	mutedText.Fprintf(out, "%s ", time.Now().Format("15:04:05"))

	printMethodBadge(line.Method)
	fmt.Fprint(out, " ")

	fmt.Fprintf(out, "%-20s ", truncatePath(line.Path, 20))

	printStatusBadge(line.Status)
	fmt.Fprint(out, " ")

	printLatency(line.Latency)

	if line.Tokens >= 0 {
		fmt.Fprint(out, " ")
		accentText.Fprintf(out, "%d tok", line.Tokens)
		mutedText.Fprintf(out, " kept:%d dropped:%d", line.Kept, line.Dropped)
	}

	if line.KeyHint != "" {
		mutedText.Fprintf(out, " key:%s", line.KeyHint)
	}

	fmt.Fprintln(out)
}

// printMethodBadge prints the HTTP method with appropriate color.
func printMethodBadge(method string) {
	switch method {
	case "POST":
		methodPOST.Fprintf(out, " %s ", method)
	case "GET":
		methodGET.Fprintf(out, " %s ", method)
	case "PUT":
		methodPUT.Fprintf(out, " %s ", method)
	case "DELETE":
		methodDELETE.Fprintf(out, " %s ", method)
	default:
		debugBadge.Fprintf(out, " %s ", method)
	}
}

// printStatusBadge prints the status code with appropriate color.
func printStatusBadge(status int) {
	switch {
	case status >= 200 && status < 300:
		successBadge.Fprintf(out, " %d ", status)
	case status >= 300 && status < 400:
		infoBadge.Fprintf(out, " %d ", status)
	case status >= 400 && status < 500:
		warningBadge.Fprintf(out, " %d ", status)
	default:
		errorBadge.Fprintf(out, " %d ", status)
	}
}

// printLatency prints latency with color gradient.
// Completions are slow, so the bands are wider than for a plain API.
// Green: < 2s, Yellow: < 10s, Red: >= 10s
func printLatency(latency time.Duration) {
	ms := latency.Milliseconds()
	latencyStr := fmt.Sprintf("%6dms", ms)

	switch {
	case latency < 2*time.Second:
		successText.Fprint(out, latencyStr)
	case latency < 10*time.Second:
		warningText.Fprint(out, latencyStr)
	default:
		errorText.Fprint(out, latencyStr)
	}
}

// truncatePath truncates a path to maxLen characters.
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	return path[:maxLen-3] + "..."
}

// ══════════════════════════════════════════════════════════════════════════════
// STARTUP MESSAGES
// ══════════════════════════════════════════════════════════════════════════════

// StartupInfo summarizes the running configuration.
type StartupInfo struct {
	Host         string
	Port         int
	Variant      string
	Endpoint     string
	Encoding     string
	Reserve      int
	FallbackKeys int
	AuthEnabled  bool
	RateLimit    float64
}

// PrintStartupInfo prints styled server startup information.
func PrintStartupInfo(info StartupInfo) {
	outMu.Lock()
	defer outMu.Unlock()

	fmt.Fprintln(out)
	infoBadge.Fprint(out, "[GATEWAY]")
	fmt.Fprint(out, " Server starting on ")
	neonBlue.Fprintf(out, "http://%s:%d\n", info.Host, info.Port)

	infoBadge.Fprint(out, "[GATEWAY]")
	fmt.Fprint(out, " Upstream: ")
	accentText.Fprint(out, info.Variant)
	mutedText.Fprintf(out, " %s\n", info.Endpoint)

	infoBadge.Fprint(out, "[GATEWAY]")
	fmt.Fprint(out, " Tokenizer: ")
	accentText.Fprint(out, info.Encoding)
	fmt.Fprint(out, " | Reserve: ")
	accentText.Fprintf(out, "%d", info.Reserve)
	fmt.Fprint(out, " | Fallback keys: ")
	if info.FallbackKeys > 0 {
		successText.Fprintf(out, "%d\n", info.FallbackKeys)
	} else {
		warningText.Fprintln(out, "none (callers must send a key)")
	}

	infoBadge.Fprint(out, "[GATEWAY]")
	fmt.Fprint(out, " JWT auth: ")
	printToggle(info.AuthEnabled)
	fmt.Fprint(out, " | Rate limit: ")
	if info.RateLimit > 0 {
		successText.Fprintf(out, "%.1f req/s per client\n", info.RateLimit)
	} else {
		mutedText.Fprintln(out, "off")
	}

	fmt.Fprintln(out)
	printEndpoints()
}

func printToggle(on bool) {
	if on {
		successText.Fprint(out, "on")
		return
	}
	mutedText.Fprint(out, "off")
}

// printEndpoints prints the available API endpoints.
func printEndpoints() {
	mutedText.Fprintln(out, "  ┌──────────────────────────────────────────────────────┐")
	printEndpoint(methodPOST, " POST ", "/api/chat       ", "Chat completion (text reply) ")
	printEndpoint(methodGET, " GET  ", "/api/models     ", "Configured model catalog     ")
	printEndpoint(methodGET, " GET  ", "/health         ", "Health check                 ")
	mutedText.Fprintln(out, "  └──────────────────────────────────────────────────────┘")
	fmt.Fprintln(out)
}

func printEndpoint(badge *color.Color, method, path, desc string) {
	mutedText.Fprint(out, "  │ ")
	badge.Fprint(out, method)
	fmt.Fprintf(out, " %s ", path)
	mutedText.Fprint(out, desc)
	mutedText.Fprintln(out, "│")
}

// PrintShutdown prints a styled shutdown message.
func PrintShutdown() {
	outMu.Lock()
	defer outMu.Unlock()

	fmt.Fprintln(out)
	warningBadge.Fprint(out, "[SHUTDOWN]")
	warningText.Fprintln(out, " Graceful shutdown initiated...")
}

// PrintGoodbye prints a styled goodbye message.
func PrintGoodbye() {
	outMu.Lock()
	defer outMu.Unlock()

	successBadge.Fprint(out, " OK ")
	fmt.Fprint(out, " ")
	successText.Fprintln(out, "Server stopped.")
}
