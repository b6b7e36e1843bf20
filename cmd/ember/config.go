package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const configName = "ember.toml"

// projectConfig is the contents of ember.toml. Flags override every field.
type projectConfig struct {
	Run   runConfig   `toml:"run"`
	VM    vmConfig    `toml:"vm"`
	GC    gcConfig    `toml:"gc"`
	Trace traceConfig `toml:"trace"`

	// Path is where the file was found; relative paths resolve against its directory.
	Path string `toml:"-"`
}

type runConfig struct {
	Main string `toml:"main"`
}

type vmConfig struct {
	StackMax  int `toml:"stack_max"`
	FramesMax int `toml:"frames_max"`
}

type gcConfig struct {
	InitialThreshold int  `toml:"initial_threshold"`
	GrowFactor       int  `toml:"grow_factor"`
	Stress           bool `toml:"stress"`
}

type traceConfig struct {
	Level  string `toml:"level"`
	Output string `toml:"output"`
}

func findConfig(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, configName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

func loadConfig(path string) (projectConfig, error) {
	var cfg projectConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return projectConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return projectConfig{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if cfg.VM.StackMax < 0 || cfg.VM.FramesMax < 0 {
		return projectConfig{}, fmt.Errorf("%s: [vm] limits must not be negative", path)
	}
	if meta.IsDefined("gc", "grow_factor") && cfg.GC.GrowFactor < 2 {
		return projectConfig{}, fmt.Errorf("%s: [gc].grow_factor must be at least 2", path)
	}
	cfg.Path = path
	return cfg, nil
}

// resolveConfig loads explicit, or the nearest ember.toml above startDir. A
// missing file yields the zero config.
func resolveConfig(explicit, startDir string) (projectConfig, error) {
	if explicit != "" {
		return loadConfig(explicit)
	}
	path, ok, err := findConfig(startDir)
	if err != nil || !ok {
		return projectConfig{}, err
	}
	return loadConfig(path)
}

// mainScript returns [run].main resolved against the config directory.
func (c projectConfig) mainScript() (string, bool) {
	main := strings.TrimSpace(c.Run.Main)
	if main == "" || c.Path == "" {
		return "", false
	}
	return filepath.Join(filepath.Dir(c.Path), filepath.FromSlash(main)), true
}
