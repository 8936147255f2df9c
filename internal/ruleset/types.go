package ruleset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Severity is the enforcement level of a rule.
type Severity string

const (
	SeverityOff   Severity = "off"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Valid reports whether s is one of the recognised severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityOff, SeverityWarn, SeverityError:
		return true
	default:
		return false
	}
}

// RuleSetting is the severity and rule-specific options of a single rule.
// Options are opaque to the resolver and handed to the rule engine as-is.
type RuleSetting struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Options  []any    `json:"options" yaml:"options"`
}

// NewRuleSetting builds a setting with a non-nil options slice.
func NewRuleSetting(severity Severity, options ...any) RuleSetting {
	return RuleSetting{Severity: severity, Options: cloneOptions(options)}
}

// Clone returns a deep copy of the setting.
func (r RuleSetting) Clone() RuleSetting {
	return RuleSetting{Severity: r.Severity, Options: cloneOptions(r.Options)}
}

// Environment maps runtime environment names to their enablement.
type Environment map[string]bool

// Union returns a new environment holding the flags of e and other. A flag
// enabled in either source is enabled in the result.
func (e Environment) Union(other Environment) Environment {
	out := make(Environment, len(e)+len(other))
	for name, enabled := range e {
		out[name] = enabled
	}
	for name, enabled := range other {
		out[name] = out[name] || enabled
	}
	return out
}

// Overrides are the local entries applied on top of the resolved presets.
// A nil Root leaves the root flag at its default of false.
type Overrides struct {
	Root  *bool
	Env   Environment
	Rules map[string]RuleSetting
}

// Validate checks every rule severity, visiting rules in name order.
func (o Overrides) Validate() error {
	return validateRules(o.Rules)
}

// Document is a parsed configuration document: presets to extend plus the
// local overrides declared next to them.
type Document struct {
	Extends []string
	Overrides
}

// EffectiveConfig is the resolved configuration handed to the rule engine.
// Values are treated as immutable once returned by a resolver. Extends is
// empty after resolution since every reference has been merged in.
type EffectiveConfig struct {
	Root    bool                   `json:"root" yaml:"root"`
	Extends []string               `json:"extends" yaml:"extends"`
	Env     Environment            `json:"env" yaml:"env"`
	Rules   map[string]RuleSetting `json:"rules" yaml:"rules"`
}

// NewEffectiveConfig returns an empty configuration with initialised collections.
func NewEffectiveConfig() EffectiveConfig {
	return EffectiveConfig{
		Extends: []string{},
		Env:     Environment{},
		Rules:   map[string]RuleSetting{},
	}
}

// Clone returns a deep copy of the configuration.
func (c EffectiveConfig) Clone() EffectiveConfig {
	out := EffectiveConfig{
		Root:    c.Root,
		Extends: append([]string{}, c.Extends...),
		Env:     Environment{}.Union(c.Env),
		Rules:   make(map[string]RuleSetting, len(c.Rules)),
	}
	for name, setting := range c.Rules {
		out.Rules[name] = setting.Clone()
	}
	return out
}

// Overrides expresses the configuration as local overrides, so that it can be
// fed back into a resolver.
func (c EffectiveConfig) Overrides() Overrides {
	root := c.Root
	clone := c.Clone()
	return Overrides{
		Root:  &root,
		Env:   clone.Env,
		Rules: clone.Rules,
	}
}

// Validate checks every rule severity of the configuration.
func (c EffectiveConfig) Validate() error {
	return validateRules(c.Rules)
}

// RuleNames returns the configured rule names in sorted order.
func (c EffectiveConfig) RuleNames() []string {
	return sortedKeys(c.Rules)
}

// Encode renders the configuration as canonical JSON. Map keys are sorted,
// so equal configurations always encode to identical bytes.
func (c EffectiveConfig) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c.Clone()); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeYAML renders the configuration as YAML in the canonical mapping form
// accepted by ParseDocument.
func (c EffectiveConfig) EncodeYAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c.Clone()); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

func validateRules(rules map[string]RuleSetting) error {
	for _, name := range sortedKeys(rules) {
		if severity := rules[name].Severity; !severity.Valid() {
			return &InvalidSeverityError{Rule: name, Value: string(severity)}
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneOptions(options []any) []any {
	out := make([]any, len(options))
	for i, opt := range options {
		out[i] = cloneValue(opt)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case []any:
		return cloneOptions(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}
