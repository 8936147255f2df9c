package resolver

import "github.com/eugenenazirov/lintconf/internal/ruleset"

// PresetLoader resolves a preset reference to a validated configuration.
type PresetLoader interface {
	LoadPreset(ref string) (ruleset.EffectiveConfig, error)
}

// LoaderFunc adapts a plain function to PresetLoader.
type LoaderFunc func(ref string) (ruleset.EffectiveConfig, error)

// LoadPreset calls f(ref).
func (f LoaderFunc) LoadPreset(ref string) (ruleset.EffectiveConfig, error) {
	return f(ref)
}

// Resolver describes the behaviour required from a configuration resolver.
type Resolver interface {
	Resolve(refs []string, overrides ruleset.Overrides) (ruleset.EffectiveConfig, error)
	ResolveDocument(doc ruleset.Document) (ruleset.EffectiveConfig, error)
}
