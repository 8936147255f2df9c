package resolver

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/eugenenazirov/lintconf/internal/ruleset"
)

var propertyRuleNames = []string{"indent", "semi", "quotes", "eqeqeq", "no-extra-parens", "func-call-spacing"}

var propertyEnvNames = []string{"node", "browser", "es6", "mocha"}

func genSeverity() gopter.Gen {
	return gen.OneConstOf(ruleset.SeverityOff, ruleset.SeverityWarn, ruleset.SeverityError)
}

func genRuleSetting() gopter.Gen {
	return gopter.CombineGens(
		genSeverity(),
		gen.SliceOfN(2, gen.OneGenOf(
			gen.IntRange(0, 8).Map(func(v int) any { return v }),
			gen.AlphaString().Map(func(v string) any { return v }),
			gen.Bool().Map(func(v bool) any { return map[string]any{"allowNewlines": v} }),
		)),
	).Map(func(vals []interface{}) ruleset.RuleSetting {
		return ruleset.NewRuleSetting(vals[0].(ruleset.Severity), vals[1].([]any)...)
	})
}

func genRules() gopter.Gen {
	return gen.SliceOfN(len(propertyRuleNames), gopter.CombineGens(gen.Bool(), genRuleSetting())).
		Map(func(entries [][]interface{}) map[string]ruleset.RuleSetting {
			rules := make(map[string]ruleset.RuleSetting)
			for i, entry := range entries {
				if entry[0].(bool) {
					rules[propertyRuleNames[i]] = entry[1].(ruleset.RuleSetting)
				}
			}
			return rules
		})
}

func genEnv() gopter.Gen {
	return gen.SliceOfN(len(propertyEnvNames), gen.IntRange(0, 2)).
		Map(func(states []int) ruleset.Environment {
			env := ruleset.Environment{}
			for i, state := range states {
				switch state {
				case 1:
					env[propertyEnvNames[i]] = false
				case 2:
					env[propertyEnvNames[i]] = true
				}
			}
			return env
		})
}

func genPreset() gopter.Gen {
	return gopter.CombineGens(genEnv(), genRules()).
		Map(func(vals []interface{}) ruleset.EffectiveConfig {
			return presetConfig(vals[0].(ruleset.Environment), vals[1].(map[string]ruleset.RuleSetting))
		})
}

func genOverrides() gopter.Gen {
	return gopter.CombineGens(gen.IntRange(0, 2), genEnv(), genRules()).
		Map(func(vals []interface{}) ruleset.Overrides {
			overrides := ruleset.Overrides{
				Env:   vals[1].(ruleset.Environment),
				Rules: vals[2].(map[string]ruleset.RuleSetting),
			}
			switch vals[0].(int) {
			case 1:
				overrides.Root = boolPtr(false)
			case 2:
				overrides.Root = boolPtr(true)
			}
			return overrides
		})
}

// resolveScenario resolves three generated presets, referenced in order, under
// the generated overrides.
func resolveScenario(presets []ruleset.EffectiveConfig, overrides ruleset.Overrides) (ruleset.EffectiveConfig, []string, error) {
	named := make(map[string]ruleset.EffectiveConfig, len(presets))
	refs := make([]string, len(presets))
	for i, preset := range presets {
		ref := string(rune('a' + i))
		named[ref] = preset
		refs[i] = ref
	}
	cfg, err := New(presetLoader(named)).Resolve(refs, overrides)
	return cfg, refs, err
}

func propertyParameters() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	return parameters
}

func TestPropertyResolveIsDeterministic(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("identical inputs encode to identical bytes", prop.ForAll(
		func(presets []ruleset.EffectiveConfig, overrides ruleset.Overrides) bool {
			first, _, err := resolveScenario(presets, overrides)
			if err != nil {
				t.Logf("Resolve failed: %v", err)
				return false
			}
			second, _, err := resolveScenario(presets, overrides)
			if err != nil {
				t.Logf("Resolve failed: %v", err)
				return false
			}

			a, err := first.Encode()
			if err != nil {
				return false
			}
			b, err := second.Encode()
			if err != nil {
				return false
			}
			return bytes.Equal(a, b)
		},
		gen.SliceOfN(3, genPreset()),
		genOverrides(),
	))

	properties.TestingRun(t)
}

func TestPropertyLocalOverridesWin(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("local rule settings replace preset settings", prop.ForAll(
		func(presets []ruleset.EffectiveConfig, overrides ruleset.Overrides) bool {
			cfg, _, err := resolveScenario(presets, overrides)
			if err != nil {
				return false
			}
			for name, setting := range overrides.Rules {
				if !reflect.DeepEqual(cfg.Rules[name], setting) {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(3, genPreset()),
		genOverrides(),
	))

	properties.Property("result holds the union of all rule names", prop.ForAll(
		func(presets []ruleset.EffectiveConfig, overrides ruleset.Overrides) bool {
			cfg, _, err := resolveScenario(presets, overrides)
			if err != nil {
				return false
			}
			seen := make(map[string]struct{})
			for _, preset := range presets {
				for name := range preset.Rules {
					seen[name] = struct{}{}
				}
			}
			for name := range overrides.Rules {
				seen[name] = struct{}{}
			}
			if len(seen) != len(cfg.Rules) {
				return false
			}
			for name := range seen {
				if _, ok := cfg.Rules[name]; !ok {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(3, genPreset()),
		genOverrides(),
	))

	properties.TestingRun(t)
}

func TestPropertyEnvironmentUnionWins(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("a flag is enabled iff some source enables it", prop.ForAll(
		func(presets []ruleset.EffectiveConfig, overrides ruleset.Overrides) bool {
			cfg, _, err := resolveScenario(presets, overrides)
			if err != nil {
				return false
			}
			sources := make([]ruleset.Environment, 0, len(presets)+1)
			for _, preset := range presets {
				sources = append(sources, preset.Env)
			}
			sources = append(sources, overrides.Env)

			for _, name := range propertyEnvNames {
				present, enabled := false, false
				for _, env := range sources {
					if v, ok := env[name]; ok {
						present = true
						enabled = enabled || v
					}
				}
				got, ok := cfg.Env[name]
				if ok != present || got != enabled {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(3, genPreset()),
		genOverrides(),
	))

	properties.TestingRun(t)
}

func TestPropertyResolveIsIdempotent(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("re-resolving a result as overrides without presets keeps it", prop.ForAll(
		func(presets []ruleset.EffectiveConfig, overrides ruleset.Overrides) bool {
			cfg, _, err := resolveScenario(presets, overrides)
			if err != nil {
				return false
			}
			again, err := New(nil).Resolve(nil, cfg.Overrides())
			if err != nil {
				return false
			}
			first, err := cfg.Encode()
			if err != nil {
				return false
			}
			second, err := again.Encode()
			if err != nil {
				return false
			}
			return reflect.DeepEqual(again, cfg) && bytes.Equal(first, second)
		},
		gen.SliceOfN(3, genPreset()),
		genOverrides(),
	))

	properties.Property("resolving the encoded result as a document is the identity", prop.ForAll(
		func(presets []ruleset.EffectiveConfig, overrides ruleset.Overrides) bool {
			cfg, _, err := resolveScenario(presets, overrides)
			if err != nil {
				return false
			}
			encoded, err := cfg.Encode()
			if err != nil {
				return false
			}
			doc, err := ruleset.ParseDocument(encoded)
			if err != nil {
				return false
			}
			again, err := New(nil).ResolveDocument(doc)
			if err != nil {
				return false
			}
			reencoded, err := again.Encode()
			if err != nil {
				return false
			}
			return bytes.Equal(encoded, reencoded)
		},
		gen.SliceOfN(3, genPreset()),
		genOverrides(),
	))

	properties.TestingRun(t)
}
