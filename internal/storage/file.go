package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/eugenenazirov/lintconf/internal/resolver"
	"github.com/eugenenazirov/lintconf/internal/ruleset"
)

// ErrPresetCycle indicates presets extend each other in a loop.
var ErrPresetCycle = errors.New("preset extends itself")

// PresetFileError reports a failure resolving a preset file that exists, such
// as a reference inside it that cannot be found.
type PresetFileError struct {
	Path string
	Err  error
}

func (e *PresetFileError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Path, e.Err)
}

func (e *PresetFileError) Unwrap() error {
	return e.Err
}

// FileLoader loads presets from configuration documents on disk. References
// are paths relative to the base directory; references found inside a preset
// file resolve relative to that file.
type FileLoader struct {
	baseDir string
	next    resolver.PresetLoader
}

// FileLoaderOption configures FileLoader behaviour.
type FileLoaderOption func(*FileLoader)

// WithFallback sets the loader consulted for references that are not found
// on disk, such as presets registered by name.
func WithFallback(loader resolver.PresetLoader) FileLoaderOption {
	return func(l *FileLoader) {
		l.next = loader
	}
}

// NewFileLoader creates a loader resolving relative references against baseDir.
func NewFileLoader(baseDir string, opts ...FileLoaderOption) *FileLoader {
	l := &FileLoader{baseDir: baseDir}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadPreset reads the document referenced by ref and resolves its own
// presets before returning it.
func (l *FileLoader) LoadPreset(ref string) (ruleset.EffectiveConfig, error) {
	return (&fileSession{loader: l, dir: l.baseDir}).LoadPreset(ref)
}

// fileSession tracks the chain of files being loaded so that cycles are
// reported instead of recursing forever.
type fileSession struct {
	loader   *FileLoader
	dir      string
	visiting []string
}

func (s *fileSession) LoadPreset(ref string) (ruleset.EffectiveConfig, error) {
	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.dir, ref)
	}
	path = filepath.Clean(path)

	for _, seen := range s.visiting {
		if seen == path {
			return ruleset.EffectiveConfig{}, fmt.Errorf("%w: %s", ErrPresetCycle, strings.Join(append(s.visiting, path), " -> "))
		}
	}

	doc, err := readDocument(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if s.loader.next != nil {
				return s.loader.next.LoadPreset(ref)
			}
			return ruleset.EffectiveConfig{}, fmt.Errorf("%w: %q", ErrPresetNotFound, ref)
		}
		return ruleset.EffectiveConfig{}, err
	}

	child := &fileSession{
		loader:   s.loader,
		dir:      filepath.Dir(path),
		visiting: append(append([]string{}, s.visiting...), path),
	}
	cfg, err := resolver.New(child).ResolveDocument(doc)
	if err != nil {
		return ruleset.EffectiveConfig{}, &PresetFileError{Path: path, Err: err}
	}
	return cfg, nil
}

func readDocument(path string) (ruleset.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return ruleset.Document{}, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return ruleset.Document{}, fmt.Errorf("read %s: %w", path, err)
	}

	doc, err := ruleset.ParseDocument(content)
	if err != nil {
		return ruleset.Document{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// Chain tries each loader in order and returns the first preset found. Only a
// miss of ref itself moves on to the next loader; any other error, including
// a missing reference inside a preset file, stops the search.
type Chain []resolver.PresetLoader

// LoadPreset implements resolver.PresetLoader.
func (c Chain) LoadPreset(ref string) (ruleset.EffectiveConfig, error) {
	for _, loader := range c {
		cfg, err := loader.LoadPreset(ref)
		if err == nil {
			return cfg, nil
		}
		var fileErr *PresetFileError
		if errors.As(err, &fileErr) || !errors.Is(err, ErrPresetNotFound) {
			return ruleset.EffectiveConfig{}, err
		}
	}
	return ruleset.EffectiveConfig{}, fmt.Errorf("%w: %q", ErrPresetNotFound, ref)
}
