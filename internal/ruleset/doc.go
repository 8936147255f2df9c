// Package ruleset defines the rule-configuration data model (severities, rule
// settings, environments, effective configurations) and the codec reading
// configuration documents in YAML or JSON form and writing resolved
// configurations in a canonical, byte-stable encoding.
package ruleset
