package routestore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/thushan/switchback/internal/core/domain"
)

// settingsFile is the on-disk shape of the virtual model settings
type settingsFile struct {
	VirtualModels []virtualModelFile `yaml:"virtual_models"`
	Enabled       bool               `yaml:"enabled"`
}

type virtualModelFile struct {
	Enabled *bool       `yaml:"enabled"`
	Name    string      `yaml:"name"`
	Entries []entryFile `yaml:"entries"`
}

type entryFile struct {
	ID       string `yaml:"id"`
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	Priority int    `yaml:"priority"`
}

// ParseSettings decodes and validates a settings document. Virtual models are
// enabled unless they say otherwise; entries without an id get provider:model.
func ParseSettings(data []byte) (domain.FallbackSnapshot, error) {
	var file settingsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return domain.FallbackSnapshot{}, fmt.Errorf("parse settings: %w", err)
	}

	snapshot := domain.FallbackSnapshot{
		Enabled:       file.Enabled,
		VirtualModels: make([]domain.VirtualModel, 0, len(file.VirtualModels)),
	}

	names := make(map[string]struct{}, len(file.VirtualModels))
	for i, vmf := range file.VirtualModels {
		if vmf.Name == "" {
			return domain.FallbackSnapshot{}, fmt.Errorf("virtual_models[%d]: name is required", i)
		}
		if _, dup := names[vmf.Name]; dup {
			return domain.FallbackSnapshot{}, fmt.Errorf("virtual model %q defined twice", vmf.Name)
		}
		names[vmf.Name] = struct{}{}

		vm := domain.VirtualModel{
			Name:    vmf.Name,
			Enabled: vmf.Enabled == nil || *vmf.Enabled,
			Entries: make([]domain.FallbackEntry, 0, len(vmf.Entries)),
		}

		ids := make(map[string]struct{}, len(vmf.Entries))
		for j, ef := range vmf.Entries {
			entry, err := parseEntry(ef)
			if err != nil {
				return domain.FallbackSnapshot{}, fmt.Errorf("virtual model %q entries[%d]: %w", vmf.Name, j, err)
			}
			if _, dup := ids[entry.ID]; dup {
				return domain.FallbackSnapshot{}, fmt.Errorf("virtual model %q: duplicate entry id %q", vmf.Name, entry.ID)
			}
			ids[entry.ID] = struct{}{}
			vm.Entries = append(vm.Entries, entry)
		}
		snapshot.VirtualModels = append(snapshot.VirtualModels, vm)
	}

	return snapshot, nil
}

func parseEntry(ef entryFile) (domain.FallbackEntry, error) {
	if ef.Model == "" {
		return domain.FallbackEntry{}, errors.New("model is required")
	}
	provider, ok := domain.ParseProvider(ef.Provider)
	if !ok {
		return domain.FallbackEntry{}, fmt.Errorf("unknown provider %q", ef.Provider)
	}
	id := ef.ID
	if id == "" {
		id = provider.String() + ":" + ef.Model
	}
	return domain.FallbackEntry{
		ID:       id,
		Provider: provider,
		ModelID:  ef.Model,
		Priority: ef.Priority,
	}, nil
}

// LoadSettings reads path. A missing file is not an error, it yields a disabled
// snapshot so the relay runs as a plain pass-through.
func LoadSettings(path string) (domain.FallbackSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.FallbackSnapshot{}, nil
		}
		return domain.FallbackSnapshot{}, fmt.Errorf("read settings: %w", err)
	}
	return ParseSettings(data)
}
