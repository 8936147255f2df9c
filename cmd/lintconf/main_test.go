package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/lintconf/internal/config"
	"github.com/eugenenazirov/lintconf/internal/ruleset"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestPrintConfig(t *testing.T) {
	dir := t.TempDir()
	presets := filepath.Join(dir, "presets")
	if err := os.MkdirAll(filepath.Join(dir, "project"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.MkdirAll(presets, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(presets, "es6.yaml"), "env: {es6: true}\nrules: {indent: error, no-extra-parens: error}\n")
	writeFile(t, filepath.Join(dir, "project", ".lintconf.yaml"), "root: true\nextends: sanctuary\nenv: {node: true}\nrules: {no-extra-parens: [off]}\n")

	cfg := config.Config{
		PresetDir: presets,
		Presets:   map[string]string{"sanctuary": "es6.yaml"},
		LogLevel:  "debug",
	}

	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		if err := printConfig(&out, cfg, filepath.Join(dir, "project"), "json", zaptest.NewLogger(t)); err != nil {
			t.Fatalf("printConfig returned error: %v", err)
		}

		var got ruleset.EffectiveConfig
		if err := json.Unmarshal(out.Bytes(), &got); err != nil {
			t.Fatalf("decode output: %v\n%s", err, out.String())
		}
		if !got.Root || !got.Env["node"] || !got.Env["es6"] {
			t.Fatalf("unexpected config %#v", got)
		}
		if got.Rules["no-extra-parens"].Severity != ruleset.SeverityOff || got.Rules["indent"].Severity != ruleset.SeverityError {
			t.Fatalf("unexpected rules %#v", got.Rules)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		var out bytes.Buffer
		if err := printConfig(&out, cfg, filepath.Join(dir, "project"), "yaml", zaptest.NewLogger(t)); err != nil {
			t.Fatalf("printConfig returned error: %v", err)
		}

		doc, err := ruleset.ParseDocument(out.Bytes())
		if err != nil {
			t.Fatalf("output does not parse back: %v\n%s", err, out.String())
		}
		if len(doc.Rules) != 2 {
			t.Fatalf("expected 2 rules, got %v", doc.Rules)
		}
	})

	t.Run("unresolvable preset", func(t *testing.T) {
		broken := cfg
		broken.Presets = map[string]string{}
		var out bytes.Buffer
		if err := printConfig(&out, broken, filepath.Join(dir, "project"), "json", zaptest.NewLogger(t)); err == nil {
			t.Fatalf("expected error for unknown preset")
		}
		if out.Len() != 0 {
			t.Fatalf("expected no partial output, got %s", out.String())
		}
	})
}
