// Package config loads the optional .stackscript.yaml project file that
// supplies default FFI library search paths and a default VM instruction
// budget, both overridable by CLI flags.
package config

import (
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

const fileName = ".stackscript.yaml"

// Config is the parsed shape of .stackscript.yaml. Zero value means "no
// config found" — every field is optional; Merge combines it with flags.
type Config struct {
	LibPaths []string `yaml:"lib_paths"`
	Budget   int      `yaml:"budget"`
}

// Load discovers .stackscript.yaml next to scriptPath first, then in the
// user's home directory, parsing the first one found. It returns a zero
// Config, no error, if neither location has the file.
func Load(scriptPath string) (Config, error) {
	candidates := make([]string, 0, 2)
	if scriptPath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(scriptPath), fileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, fileName))
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Config{}, err
		}
		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}

	return Config{}, nil
}

// Merge combines flag-provided values with the config file's defaults. The
// returned lib paths are the config file's paths followed by flagLibPaths.
// A flagBudget of exactly zero means "use the config file's value"; any
// other flagBudget, negative ones included, is returned as given. Cobra
// flags that were never set carry their zero value, which is
// indistinguishable from "explicitly set to zero".
func (c Config) Merge(flagLibPaths []string, flagBudget int) (libPaths []string, budget int) {
	libPaths = append(append([]string{}, c.LibPaths...), flagLibPaths...)
	budget = flagBudget
	if budget == 0 {
		budget = c.Budget
	}
	return libPaths, budget
}
