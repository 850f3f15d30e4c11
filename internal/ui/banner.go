package ui

import (
	"fmt"

	"github.com/fatih/color"
)

// ══════════════════════════════════════════════════════════════════════════════
// ASCII ART BANNER
// ══════════════════════════════════════════════════════════════════════════════

// PrintBanner displays the startup banner.
func PrintBanner(version string) {
	outMu.Lock()
	defer outMu.Unlock()

	cyan := color.New(color.FgCyan, color.Bold)
	hiCyan := color.New(color.FgHiCyan)
	magenta := color.New(color.FgMagenta, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	white := color.New(color.FgWhite)
	dim := color.New(color.FgHiBlack)

	art := []string{
		" ██████╗██╗  ██╗ █████╗ ████████╗",
		"██╔════╝██║  ██║██╔══██╗╚══██╔══╝",
		"██║     ███████║███████║   ██║   ",
		"██║     ██╔══██║██╔══██║   ██║   ",
		"╚██████╗██║  ██║██║  ██║   ██║   ",
		" ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝   ",
	}

	fmt.Fprintln(out)
	cyan.Fprintln(out, "╔════════════════════════════════════════════════════╗")
	for i, line := range art {
		cyan.Fprint(out, "║  ")
		if i%2 == 0 {
			hiCyan.Fprint(out, line)
		} else {
			magenta.Fprint(out, line)
		}
		dim.Fprint(out, "                 ")
		cyan.Fprintln(out, "║")
	}
	cyan.Fprintln(out, "╠════════════════════════════════════════════════════╣")

	cyan.Fprint(out, "║  ")
	yellow.Fprint(out, "HPN CHAT GATEWAY")
	dim.Fprint(out, "  │  ")
	white.Fprintf(out, "%-27s", version)
	cyan.Fprintln(out, "║")

	cyan.Fprintln(out, "╚════════════════════════════════════════════════════╝")
	fmt.Fprintln(out)
}
