// Package resolver merges base presets and local overrides into one
// effective rule configuration. Presets are folded left to right, local rule
// entries always win, environment flags are unioned, and resolution either
// returns a complete configuration or an error.
package resolver
