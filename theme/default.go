package theme

import (
	"github.com/pterm/pterm"
)

// Theme defines the colour scheme used by the styled logger and splash
type Theme struct {
	Debug *pterm.Style
	Info  *pterm.Style
	Warn  *pterm.Style
	Error *pterm.Style

	Muted        *pterm.Style
	Counts       *pterm.Style
	Numbers      *pterm.Style
	Upstream     *pterm.Style
	VirtualModel *pterm.Style
	Entry        *pterm.Style
	Reason       *pterm.Style
	Good         *pterm.Style
	Bad          *pterm.Style
}

// Default returns the default application theme
func Default() *Theme {
	return &Theme{
		Debug: pterm.NewStyle(pterm.FgLightBlue),
		Info:  pterm.NewStyle(pterm.FgGreen),
		Warn:  pterm.NewStyle(pterm.FgYellow, pterm.Bold),
		Error: pterm.NewStyle(pterm.FgRed, pterm.Bold),

		Muted:        pterm.NewStyle(pterm.FgGray),
		Counts:       pterm.NewStyle(pterm.FgLightCyan),
		Numbers:      pterm.NewStyle(pterm.FgLightYellow),
		Upstream:     pterm.NewStyle(pterm.FgCyan, pterm.Bold),
		VirtualModel: pterm.NewStyle(pterm.FgMagenta, pterm.Bold),
		Entry:        pterm.NewStyle(pterm.FgLightMagenta),
		Reason:       pterm.NewStyle(pterm.FgYellow),
		Good:         pterm.NewStyle(pterm.FgGreen, pterm.Bold),
		Bad:          pterm.NewStyle(pterm.FgRed, pterm.Bold),
	}
}

// Dark returns a dark theme variant
func Dark() *Theme {
	return &Theme{
		Debug: pterm.NewStyle(pterm.FgLightBlue),
		Info:  pterm.NewStyle(pterm.FgLightGreen),
		Warn:  pterm.NewStyle(pterm.FgLightYellow, pterm.Bold),
		Error: pterm.NewStyle(pterm.FgLightRed, pterm.Bold),

		Muted:        pterm.NewStyle(pterm.FgGray),
		Counts:       pterm.NewStyle(pterm.FgLightCyan),
		Numbers:      pterm.NewStyle(pterm.FgLightYellow),
		Upstream:     pterm.NewStyle(pterm.FgLightCyan, pterm.Bold),
		VirtualModel: pterm.NewStyle(pterm.FgLightMagenta, pterm.Bold),
		Entry:        pterm.NewStyle(pterm.FgLightMagenta),
		Reason:       pterm.NewStyle(pterm.FgLightYellow),
		Good:         pterm.NewStyle(pterm.FgLightGreen, pterm.Bold),
		Bad:          pterm.NewStyle(pterm.FgLightRed, pterm.Bold),
	}
}

// Light returns a light theme variant
func Light() *Theme {
	return &Theme{
		Debug: pterm.NewStyle(pterm.FgBlue),
		Info:  pterm.NewStyle(pterm.FgBlack),
		Warn:  pterm.NewStyle(pterm.FgRed, pterm.Bold),
		Error: pterm.NewStyle(pterm.FgRed, pterm.Bold),

		Muted:        pterm.NewStyle(pterm.FgGray),
		Counts:       pterm.NewStyle(pterm.FgBlue),
		Numbers:      pterm.NewStyle(pterm.FgBlue),
		Upstream:     pterm.NewStyle(pterm.FgBlue, pterm.Bold),
		VirtualModel: pterm.NewStyle(pterm.FgMagenta, pterm.Bold),
		Entry:        pterm.NewStyle(pterm.FgMagenta),
		Reason:       pterm.NewStyle(pterm.FgRed),
		Good:         pterm.NewStyle(pterm.FgGreen, pterm.Bold),
		Bad:          pterm.NewStyle(pterm.FgRed, pterm.Bold),
	}
}

// GetTheme returns the named theme, falling back to the default
func GetTheme(name string) *Theme {
	switch name {
	case "dark":
		return Dark()
	case "light":
		return Light()
	default:
		return Default()
	}
}

// ColourSplash colours the splash banner
func ColourSplash(message ...any) string {
	return pterm.LightCyan(message...)
}

// ColourVersion colours version numbers on the splash
func ColourVersion(message ...any) string {
	return pterm.LightYellow(message...)
}

// StyleUrl colours URLs and hyperlinks
func StyleUrl(message ...any) string {
	return pterm.LightBlue(message...)
}

// Hyperlink creates a hyperlink in the terminal
func Hyperlink(uri string, text string) string {
	return "\x1b]8;;" + uri + "\x07" + text + "\x1b]8;;\x07" + "\u001b[0m"
}
