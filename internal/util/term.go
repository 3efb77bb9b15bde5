package util

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// IsTerminal checks if stdout is a terminal
func IsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ShouldUseColors honours NO_COLOR (https://no-color.org/), FORCE_COLOR and
// SWITCHBACK_FORCE_COLORS before falling back to terminal detection
func ShouldUseColors() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	if force := os.Getenv("FORCE_COLOR"); force != "" {
		return force != "0"
	}

	if force := os.Getenv("SWITCHBACK_FORCE_COLORS"); force != "" {
		return strings.EqualFold(force, "true")
	}

	return IsTerminal()
}
