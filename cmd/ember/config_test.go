package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, configName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveConfigWalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
[run]
main = "src/main.em"

[vm]
stack_max = 4096

[gc]
grow_factor = 4
stress = true

[trace]
level = "phase"
`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o700); err != nil {
		t.Fatal(err)
	}

	cfg, err := resolveConfig("", nested)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.VM.StackMax != 4096 || cfg.GC.GrowFactor != 4 || !cfg.GC.Stress || cfg.Trace.Level != "phase" {
		t.Fatalf("cfg = %+v", cfg)
	}
	main, ok := cfg.mainScript()
	if !ok || main != filepath.Join(root, "src", "main.em") {
		t.Fatalf("main = %q, %v", main, ok)
	}
}

func TestResolveConfigMissingIsZero(t *testing.T) {
	cfg, err := resolveConfig("", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := cfg.mainScript(); ok || cfg.Path != "" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadConfigRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown key", "[vm]\nstack = 1\n", "unknown keys: vm.stack"},
		{"negative limit", "[vm]\nframes_max = -1\n", "must not be negative"},
		{"grow factor", "[gc]\ngrow_factor = 1\n", "grow_factor"},
		{"syntax", "[vm\n", "failed to parse TOML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.body)
			_, err := loadConfig(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeAuto, "ON": uiModeOn, " off ": uiModeOff} {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Errorf("readUIMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := readUIMode("sometimes"); err == nil {
		t.Error("expected an error")
	}
}
