package version

import (
	"fmt"
	"log"
	"runtime"
	"strings"

	"github.com/thushan/switchback/theme"
)

var (
	Name        = "switchback"
	Authors     = "Thushan Fernando"
	Description = "Virtual model fallback relay for local LLM aggregators"
	Version     = "v0.0.1"
	Commit      = "none"
	Date        = "nowish"
	User        = "local"
	Runtime     = runtime.Version()
)

const (
	GithubHomeText  = "github.com/thushan/switchback"
	GithubHomeUri   = "https://github.com/thushan/switchback"
	GithubLatestUri = "https://github.com/thushan/switchback/releases/latest"
)

func PrintVersionInfo(extendedInfo bool, vlog *log.Logger) {
	githubUri := theme.Hyperlink(GithubHomeUri, GithubHomeText)
	latestUri := theme.Hyperlink(GithubLatestUri, Version)
	padLatest := fmt.Sprintf("%*s", max(1, 12-len(Version)), "")

	var b strings.Builder

	b.WriteString(theme.ColourSplash(`
╔──────────────────────────────────────────────────╗
│   ___      _ _      _    _             _         │
│  / __|_ __(_) |_ __| |_ | |__  __ _ __| |__      │
│  \__ \ V  V / |  _/ _| ' \| '_ \/ _' / _| / /     │
│  |___/\_/\_/|_|\__\__|_||_|_.__/\__,_\__|_\_\     │` + "\n"))

	b.WriteString(theme.ColourSplash("│ "))
	b.WriteString(theme.StyleUrl(githubUri))
	b.WriteString(padLatest)
	b.WriteString(theme.ColourVersion(latestUri))
	b.WriteString(theme.ColourSplash("     │\n"))
	b.WriteString(theme.ColourSplash("╚──────────────────────────────────────────────────╝"))

	if extendedInfo {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf(" Commit: %s\n", Commit))
		b.WriteString(fmt.Sprintf("  Built: %s\n", Date))
		b.WriteString(fmt.Sprintf("  Using: %s\n", User))
		b.WriteString(fmt.Sprintf("     Go: %s\n", Runtime))
	}

	vlog.Println(b.String())
}
