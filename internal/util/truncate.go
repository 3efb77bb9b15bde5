package util

import "fmt"

// TruncateLog shortens s to at most max bytes for diagnostics, noting the original size
func TruncateLog(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + fmt.Sprintf("...[truncated, %d bytes total]", len(s))
}
