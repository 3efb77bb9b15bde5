package routestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/switchback/internal/core/domain"
)

const sampleSettings = `
enabled: true
virtual_models:
  - name: auto
    entries:
      - provider: claude
        model: claude-opus-4
        priority: 1
      - id: backup
        provider: gemini
        model: gemini-2.5-pro
        priority: 2
  - name: parked
    enabled: false
    entries:
      - provider: codex
        model: gpt-5
        priority: 1
`

func TestParseSettings(t *testing.T) {
	snap, err := ParseSettings([]byte(sampleSettings))
	require.NoError(t, err)

	assert.True(t, snap.Enabled)
	require.Len(t, snap.VirtualModels, 2)

	auto := snap.VirtualModels[0]
	assert.True(t, auto.Enabled, "enabled defaults to true")
	require.Len(t, auto.Entries, 2)
	assert.Equal(t, "claude:claude-opus-4", auto.Entries[0].ID)
	assert.Equal(t, domain.ProviderClaude, auto.Entries[0].Provider)
	assert.Equal(t, "backup", auto.Entries[1].ID)

	assert.False(t, snap.VirtualModels[1].Enabled)

	_, ok := snap.Lookup("parked")
	assert.False(t, ok)
	_, ok = snap.Lookup("auto")
	assert.True(t, ok)
}

func TestParseSettings_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing name", "virtual_models:\n  - entries: []\n", "name is required"},
		{"duplicate name", "virtual_models:\n  - name: a\n  - name: a\n", "defined twice"},
		{"unknown provider", "virtual_models:\n  - name: a\n    entries:\n      - provider: nope\n        model: x\n", "unknown provider"},
		{"missing model", "virtual_models:\n  - name: a\n    entries:\n      - provider: claude\n", "model is required"},
		{"duplicate id", "virtual_models:\n  - name: a\n    entries:\n      - {provider: claude, model: x}\n      - {provider: claude, model: x}\n", "duplicate entry id"},
		{"unknown field", "enabeld: true\n", "parse settings"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSettings([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseSettings_EmptyDocument(t *testing.T) {
	snap, err := ParseSettings(nil)
	require.NoError(t, err)
	assert.False(t, snap.Enabled)
	assert.Empty(t, snap.VirtualModels)
}

func TestLoadSettings_MissingFile(t *testing.T) {
	snap, err := LoadSettings(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.False(t, snap.Enabled)
}

func TestLoadSettings_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "virtual-models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSettings), 0o600))

	snap, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Len(t, snap.VirtualModels, 2)
}
