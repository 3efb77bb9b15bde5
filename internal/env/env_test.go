package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("SWITCHBACK_TEST_STR", " debug ")
	t.Setenv("SWITCHBACK_TEST_BOOL", "false")
	t.Setenv("SWITCHBACK_TEST_INT", "42")
	t.Setenv("SWITCHBACK_TEST_BAD_INT", "forty")

	assert.Equal(t, "debug", GetEnvOrDefault("SWITCHBACK_TEST_STR", "info"))
	assert.Equal(t, "info", GetEnvOrDefault("SWITCHBACK_TEST_MISSING", "info"))
	assert.False(t, GetEnvBoolOrDefault("SWITCHBACK_TEST_BOOL", true))
	assert.True(t, GetEnvBoolOrDefault("SWITCHBACK_TEST_MISSING", true))
	assert.Equal(t, 42, GetEnvIntOrDefault("SWITCHBACK_TEST_INT", 1))
	assert.Equal(t, 1, GetEnvIntOrDefault("SWITCHBACK_TEST_BAD_INT", 1))
}
