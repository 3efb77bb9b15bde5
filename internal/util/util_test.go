package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateLog(t *testing.T) {
	assert.Equal(t, "short", TruncateLog("short", 10))
	assert.Equal(t, "abc...[truncated, 6 bytes total]", TruncateLog("abcdef", 3))
	assert.Equal(t, "abcdef", TruncateLog("abcdef", 0))
}

func TestShouldUseColors(t *testing.T) {
	t.Run("no_color wins", func(t *testing.T) {
		t.Setenv("NO_COLOR", "1")
		t.Setenv("FORCE_COLOR", "1")
		assert.False(t, ShouldUseColors())
	})
	t.Run("force_color", func(t *testing.T) {
		t.Setenv("NO_COLOR", "")
		t.Setenv("FORCE_COLOR", "1")
		assert.True(t, ShouldUseColors())
	})
	t.Run("force_color zero", func(t *testing.T) {
		t.Setenv("NO_COLOR", "")
		t.Setenv("FORCE_COLOR", "0")
		assert.False(t, ShouldUseColors())
	})
	t.Run("app override", func(t *testing.T) {
		t.Setenv("NO_COLOR", "")
		t.Setenv("FORCE_COLOR", "")
		t.Setenv("SWITCHBACK_FORCE_COLORS", "TRUE")
		assert.True(t, ShouldUseColors())
	})
}

func TestGenerateConnID(t *testing.T) {
	id := GenerateConnID()
	assert.Regexp(t, `^[a-z]+_[a-z]+_[0-9a-f]{4}$`, id)
}
