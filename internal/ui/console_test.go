package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()

	noColor := color.NoColor
	color.NoColor = true

	var buf bytes.Buffer
	SetOutput(&buf)

	t.Cleanup(func() {
		color.NoColor = noColor
		SetOutput(color.Output)
	})
	return &buf
}

func TestPrintRequest(t *testing.T) {
	buf := captureOutput(t)

	PrintRequest(RequestLine{
		Method:  "POST",
		Path:    "/api/chat",
		Status:  200,
		Latency: 1500 * time.Millisecond,
		KeyHint: "sk-1...cdef",
		Kept:    2,
		Dropped: 1,
		Tokens:  960,
	})

	got := buf.String()
	for _, want := range []string{" POST ", "/api/chat", " 200 ", "1500ms", "960 tok", "kept:2 dropped:1", "key:sk-1...cdef"} {
		if !strings.Contains(got, want) {
			t.Errorf("PrintRequest output %q missing %q", got, want)
		}
	}
}

func TestPrintRequest_NoSelection(t *testing.T) {
	buf := captureOutput(t)

	PrintRequest(RequestLine{Method: "GET", Path: "/health", Status: 200, Tokens: -1})

	got := buf.String()
	if strings.Contains(got, "tok") || strings.Contains(got, "key:") {
		t.Errorf("PrintRequest output %q should omit selection and key", got)
	}
}

func TestPrintSuspended(t *testing.T) {
	buf := captureOutput(t)

	PrintSuspended("sk-1234567890abcdef", 401, time.Minute)

	got := buf.String()
	if strings.Contains(got, "234567890ab") {
		t.Errorf("PrintSuspended leaked the key: %q", got)
	}
	if !strings.Contains(got, "rejected with 401, back in 1m0s") {
		t.Errorf("PrintSuspended output %q missing reason", got)
	}
}

func TestPrintStartupInfo(t *testing.T) {
	buf := captureOutput(t)

	PrintStartupInfo(StartupInfo{
		Host:     "0.0.0.0",
		Port:     8080,
		Variant:  "openai",
		Endpoint: "https://api.openai.com/v1/chat/completions",
		Encoding: "cl100k_base",
		Reserve:  1000,
	})

	got := buf.String()
	for _, want := range []string{"http://0.0.0.0:8080", "openai", "cl100k_base", "none (callers must send a key)", "/api/chat"} {
		if !strings.Contains(got, want) {
			t.Errorf("PrintStartupInfo output missing %q", want)
		}
	}
}

func TestTruncatePath(t *testing.T) {
	if got := truncatePath("/short", 20); got != "/short" {
		t.Errorf("truncatePath() = %q", got)
	}
	if got := truncatePath("/a/very/long/path/that/overflows", 10); got != "/a/very..." {
		t.Errorf("truncatePath() = %q", got)
	}
}
