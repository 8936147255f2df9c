package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/eugenenazirov/lintconf/internal/ruleset"
)

var (
	// ErrPresetNotFound indicates no preset is registered under the requested name.
	ErrPresetNotFound = errors.New("preset not found")
	// ErrInvalidPreset indicates the preset name or contents violate validation rules.
	ErrInvalidPreset = errors.New("invalid preset")
)

// Storage provides access to named presets.
type Storage interface {
	LoadPreset(name string) (ruleset.EffectiveConfig, error)
	SetPreset(name string, cfg ruleset.EffectiveConfig) error
	Presets() []string
}

// MemoryStorage keeps presets in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu      sync.RWMutex
	presets map[string]ruleset.EffectiveConfig
}

// NewMemoryStorage initialises an empty preset registry.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		presets: make(map[string]ruleset.EffectiveConfig),
	}
}

// LoadPreset returns a defensive copy of the preset registered under name.
func (s *MemoryStorage) LoadPreset(name string) (ruleset.EffectiveConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.presets[name]
	if !ok {
		return ruleset.EffectiveConfig{}, fmt.Errorf("%w: %q", ErrPresetNotFound, name)
	}
	return cfg.Clone(), nil
}

// SetPreset validates and stores a copy of cfg under name, replacing any
// previous preset with the same name.
func (s *MemoryStorage) SetPreset(name string, cfg ruleset.EffectiveConfig) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidPreset)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPreset, err)
	}

	clone := cfg.Clone()

	s.mu.Lock()
	s.presets[name] = clone
	s.mu.Unlock()

	return nil
}

// Presets returns the registered preset names in sorted order.
func (s *MemoryStorage) Presets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.presets))
	for name := range s.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
