package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	configFile = "config.toml"
	defaultMax = 50
)

// Env vars consulted when no connection string is given on the command line.
var connStringEnvVars = []string{
	"SERVICEBUS_CONNECTION_STRING",
	"AZURE_SERVICEBUS_CONNECTION_STRING",
}

// FileConfig is the TOML file structure.
type FileConfig struct {
	Max      int                `toml:"max"`
	Proto    string             `toml:"proto"`
	DBPath   string             `toml:"db"`
	Profiles map[string]Profile `toml:"profiles"`
}

// Profile is a named namespace connection profile.
type Profile struct {
	ConnectionString string `toml:"connection_string"`
	Queue            string `toml:"queue"`
	Proto            string `toml:"proto"`
}

// Config is the resolved runtime config after profile selection.
type Config struct {
	ConnectionString string
	Queue            string
	ProtoPath        string
	DBPath           string
	Max              int

	ConfigDir string
}

// LoadFileConfig loads config.toml from configDir.
// Returns a zero-value FileConfig (no error) if the file doesn't exist.
func LoadFileConfig(configDir string) (*FileConfig, error) {
	path := filepath.Join(configDir, configFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &FileConfig{}, nil
		}
		return nil, err
	}

	var cfg FileConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Resolve merges a profile (by name) with global config and env vars into a
// runtime Config. If profileName is empty or not found, only global/env
// settings are used. Command-line values override the result at the CLI
// layer; this only establishes defaults.
func (fc FileConfig) Resolve(profileName string, configDir string) Config {
	cfg := Config{
		ProtoPath: fc.Proto,
		DBPath:    fc.DBPath,
		ConfigDir: configDir,
	}

	cfg.Max = fc.Max
	if cfg.Max <= 0 {
		cfg.Max = defaultMax
	}

	if p, ok := fc.Profiles[profileName]; ok {
		cfg.ConnectionString = p.ConnectionString
		cfg.Queue = p.Queue
		if p.Proto != "" {
			cfg.ProtoPath = p.Proto
		}
	}

	// Fall back to env vars for the connection string if no profile set one
	if cfg.ConnectionString == "" {
		for _, name := range connStringEnvVars {
			if v := os.Getenv(name); v != "" {
				cfg.ConnectionString = v
				break
			}
		}
	}

	return cfg
}

// ProfileNames returns a sorted list of profile names.
func (fc FileConfig) ProfileNames() []string {
	names := make([]string, 0, len(fc.Profiles))
	for name := range fc.Profiles {
		names = append(names, name)
	}
	sortStrings(names)
	return names
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
