package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/eugenenazirov/lintconf/internal/resolver"
	"github.com/eugenenazirov/lintconf/internal/ruleset"
)

// ErrNoConfig is returned when no configuration file exists in the directory
// or any of its ancestors.
var ErrNoConfig = errors.New("no configuration file found")

// FileNames lists the configuration file names looked up in each directory,
// in order of preference.
var FileNames = []string{".lintconf.yaml", ".lintconf.yml", ".lintconf.json"}

// Source is a configuration document together with the file it came from.
type Source struct {
	Path     string
	Document ruleset.Document
}

// Find collects configuration documents from dir upwards, nearest first. The
// walk stops after a document declaring root: true or at the filesystem root.
func Find(dir string) ([]Source, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve directory: %w", err)
	}

	var sources []Source
	for {
		path, found, err := lookup(dir)
		if err != nil {
			return nil, err
		}
		if found {
			doc, err := ruleset.LoadDocument(path)
			if err != nil {
				return nil, err
			}
			sources = append(sources, Source{Path: path, Document: doc})
			if doc.Root != nil && *doc.Root {
				break
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if len(sources) == 0 {
		return nil, ErrNoConfig
	}
	return sources, nil
}

// Resolve cascades the sources returned by Find: the farthest document is
// resolved first and every nearer document is merged on top of it. Preset
// references are resolved by newLoader, which receives the directory of the
// document being resolved.
func Resolve(sources []Source, newLoader func(dir string) resolver.PresetLoader) (ruleset.EffectiveConfig, error) {
	if len(sources) == 0 {
		return ruleset.EffectiveConfig{}, ErrNoConfig
	}

	var (
		parent    ruleset.EffectiveConfig
		hasParent bool
	)
	for i := len(sources) - 1; i >= 0; i-- {
		src := sources[i]
		loader := newLoader(filepath.Dir(src.Path))

		refs := src.Document.Extends
		if hasParent {
			loader = withParent(parent, src.Path, loader)
			refs = append([]string{parentRef}, refs...)
		}

		cfg, err := resolver.New(loader).Resolve(refs, src.Document.Overrides)
		if err != nil {
			return ruleset.EffectiveConfig{}, fmt.Errorf("resolve %s: %w", src.Path, err)
		}
		parent, hasParent = cfg, true
	}

	return parent, nil
}

// Discover finds and resolves the configuration that applies to dir.
func Discover(dir string, newLoader func(dir string) resolver.PresetLoader) (ruleset.EffectiveConfig, []Source, error) {
	sources, err := Find(dir)
	if err != nil {
		return ruleset.EffectiveConfig{}, nil, err
	}
	cfg, err := Resolve(sources, newLoader)
	if err != nil {
		return ruleset.EffectiveConfig{}, nil, err
	}
	return cfg, sources, nil
}

// parentRef names the ancestor configuration among a document's presets.
const parentRef = "\x00parent"

func withParent(parent ruleset.EffectiveConfig, path string, next resolver.PresetLoader) resolver.PresetLoader {
	return resolver.LoaderFunc(func(ref string) (ruleset.EffectiveConfig, error) {
		if ref == parentRef {
			return parent.Clone(), nil
		}
		if next == nil {
			return ruleset.EffectiveConfig{}, fmt.Errorf("no loader for %q referenced from %s", ref, path)
		}
		return next.LoadPreset(ref)
	})
}

func lookup(dir string) (string, bool, error) {
	for _, name := range FileNames {
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("stat %s: %w", candidate, err)
		}
	}
	return "", false, nil
}
