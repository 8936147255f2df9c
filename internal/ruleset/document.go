package ruleset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// documentFile mirrors the top-level keys of a configuration document.
type documentFile struct {
	Root    *bool                `yaml:"root"`
	Extends yaml.Node            `yaml:"extends"`
	Env     map[string]yaml.Node `yaml:"env"`
	Rules   map[string]yaml.Node `yaml:"rules"`
}

// ParseDocument parses a configuration document in YAML or JSON form.
// Rule entries may be a bare severity, a sequence whose first element is the
// severity followed by options, or a mapping with severity and options keys.
func ParseDocument(content []byte) (Document, error) {
	var df documentFile
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&df); err != nil && !errors.Is(err, io.EOF) {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	extends, err := parseExtends(&df.Extends)
	if err != nil {
		return Document{}, err
	}

	env, err := parseEnv(df.Env)
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		Extends: extends,
		Overrides: Overrides{
			Root:  df.Root,
			Env:   env,
			Rules: make(map[string]RuleSetting, len(df.Rules)),
		},
	}

	for _, name := range sortedKeys(df.Rules) {
		node := df.Rules[name]
		setting, err := parseRule(name, &node)
		if err != nil {
			return Document{}, err
		}
		doc.Rules[name] = setting
	}

	return doc, nil
}

// LoadDocument reads and parses the configuration document at path.
func LoadDocument(path string) (Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read document: %w", err)
	}

	doc, err := ParseDocument(content)
	if err != nil {
		return Document{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func parseExtends(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case 0:
		return []string{}, nil
	case yaml.ScalarNode:
		if node.ShortTag() == "!!null" {
			return []string{}, nil
		}
		if node.Value == "" {
			return nil, fmt.Errorf("%w: extends: empty preset reference", ErrInvalidDocument)
		}
		return []string{node.Value}, nil
	case yaml.SequenceNode:
		refs := make([]string, 0, len(node.Content))
		for i, item := range node.Content {
			if item.Kind != yaml.ScalarNode || item.Value == "" {
				return nil, fmt.Errorf("%w: extends[%d]: preset reference must be a non-empty string", ErrInvalidDocument, i)
			}
			refs = append(refs, item.Value)
		}
		return refs, nil
	default:
		return nil, fmt.Errorf("%w: extends must be a string or a list of strings", ErrInvalidDocument)
	}
}

func parseEnv(raw map[string]yaml.Node) (Environment, error) {
	env := make(Environment, len(raw))
	for _, name := range sortedKeys(raw) {
		node := raw[name]
		var enabled bool
		if node.Kind != yaml.ScalarNode || node.ShortTag() != "!!bool" {
			return nil, fmt.Errorf("%w: env %q must be a boolean", ErrInvalidDocument, name)
		}
		if err := node.Decode(&enabled); err != nil {
			return nil, fmt.Errorf("%w: env %q: %v", ErrInvalidDocument, name, err)
		}
		env[name] = enabled
	}
	return env, nil
}

func parseRule(name string, node *yaml.Node) (RuleSetting, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		severity, err := parseSeverity(name, node)
		if err != nil {
			return RuleSetting{}, err
		}
		return NewRuleSetting(severity), nil

	case yaml.SequenceNode:
		if len(node.Content) == 0 {
			return RuleSetting{}, fmt.Errorf("%w: rule %q: empty setting", ErrInvalidDocument, name)
		}
		severity, err := parseSeverity(name, node.Content[0])
		if err != nil {
			return RuleSetting{}, err
		}
		options, err := parseOptions(name, node.Content[1:])
		if err != nil {
			return RuleSetting{}, err
		}
		return RuleSetting{Severity: severity, Options: options}, nil

	case yaml.MappingNode:
		return parseRuleMapping(name, node)

	default:
		return RuleSetting{}, fmt.Errorf("%w: rule %q: unsupported setting", ErrInvalidDocument, name)
	}
}

// parseRuleMapping reads the canonical {severity, options} form. Any other
// key is rejected.
func parseRuleMapping(name string, node *yaml.Node) (RuleSetting, error) {
	var (
		severityNode *yaml.Node
		optionNodes  []*yaml.Node
	)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "severity":
			severityNode = value
		case "options":
			if value.Kind != yaml.SequenceNode {
				return RuleSetting{}, fmt.Errorf("%w: rule %q: options must be a sequence", ErrInvalidDocument, name)
			}
			optionNodes = value.Content
		default:
			return RuleSetting{}, fmt.Errorf("%w: rule %q: unknown field %q", ErrInvalidDocument, name, key.Value)
		}
	}
	if severityNode == nil {
		return RuleSetting{}, fmt.Errorf("%w: rule %q: missing severity", ErrInvalidDocument, name)
	}

	severity, err := parseSeverity(name, severityNode)
	if err != nil {
		return RuleSetting{}, err
	}
	options, err := parseOptions(name, optionNodes)
	if err != nil {
		return RuleSetting{}, err
	}
	return RuleSetting{Severity: severity, Options: options}, nil
}

func parseOptions(name string, nodes []*yaml.Node) ([]any, error) {
	options := make([]any, 0, len(nodes))
	for _, item := range nodes {
		var opt any
		if err := item.Decode(&opt); err != nil {
			return nil, fmt.Errorf("%w: rule %q: %v", ErrInvalidDocument, name, err)
		}
		normalized, err := normalizeValue(opt)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %q: %v", ErrInvalidDocument, name, err)
		}
		options = append(options, normalized)
	}
	return options, nil
}

func parseSeverity(rule string, node *yaml.Node) (Severity, error) {
	if node.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("%w: rule %q: severity must be a scalar", ErrInvalidDocument, rule)
	}
	severity := Severity(node.Value)
	if !severity.Valid() {
		return "", &InvalidSeverityError{Rule: rule, Value: node.Value}
	}
	return severity, nil
}

// normalizeValue converts mappings with non-string keys, which yaml.v3
// produces for keys such as numbers, into string-keyed maps. Infinite and NaN
// floats have no JSON form and are rejected.
func normalizeValue(v any) (any, error) {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			normalized, err := normalizeValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = normalized
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			normalized, err := normalizeValue(item)
			if err != nil {
				return nil, err
			}
			out[k] = normalized
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			normalized, err := normalizeValue(item)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(k)] = normalized
		}
		return out, nil
	case float64:
		if math.IsInf(val, 0) || math.IsNaN(val) {
			return nil, fmt.Errorf("option value %v is not a finite number", val)
		}
		return val, nil
	default:
		return val, nil
	}
}
