package resolver

import (
	"fmt"

	"github.com/eugenenazirov/lintconf/internal/ruleset"
)

type presetResolver struct {
	loader PresetLoader
}

// New creates a Resolver that loads presets through loader. A nil loader is
// allowed; any preset reference then fails as unresolvable.
func New(loader PresetLoader) Resolver {
	return &presetResolver{loader: loader}
}

func (r *presetResolver) ResolveDocument(doc ruleset.Document) (ruleset.EffectiveConfig, error) {
	return r.Resolve(doc.Extends, doc.Overrides)
}

func (r *presetResolver) Resolve(refs []string, overrides ruleset.Overrides) (ruleset.EffectiveConfig, error) {
	if err := overrides.Validate(); err != nil {
		return ruleset.EffectiveConfig{}, err
	}

	presets := make([]ruleset.EffectiveConfig, 0, len(refs))
	for _, ref := range refs {
		preset, err := r.load(ref)
		if err != nil {
			return ruleset.EffectiveConfig{}, err
		}
		presets = append(presets, preset)
	}

	out := ruleset.NewEffectiveConfig()

	for _, preset := range presets {
		for name, setting := range preset.Rules {
			out.Rules[name] = setting.Clone()
		}
		out.Env = out.Env.Union(preset.Env)
	}

	for name, setting := range overrides.Rules {
		out.Rules[name] = setting.Clone()
	}
	out.Env = out.Env.Union(overrides.Env)

	if overrides.Root != nil {
		out.Root = *overrides.Root
	}

	return out, nil
}

func (r *presetResolver) load(ref string) (ruleset.EffectiveConfig, error) {
	if r.loader == nil {
		return ruleset.EffectiveConfig{}, &UnresolvablePresetError{Ref: ref, Err: fmt.Errorf("no preset loader configured")}
	}

	preset, err := r.loader.LoadPreset(ref)
	if err != nil {
		return ruleset.EffectiveConfig{}, &UnresolvablePresetError{Ref: ref, Err: err}
	}
	if err := preset.Validate(); err != nil {
		return ruleset.EffectiveConfig{}, fmt.Errorf("preset %q: %w", ref, err)
	}

	return preset, nil
}
