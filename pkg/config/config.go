// Package config loads server configuration from defaults, a config file,
// environment variables, and command-line flags.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds all configuration for the server
type Config struct {
	DBPath    string `koanf:"db"`
	Port      int    `koanf:"port"`
	Verbosity string `koanf:"verbosity"`
	JSONLogs  bool   `koanf:"json-logs"`
	TraceFile string `koanf:"trace-file"`
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	defaults := map[string]interface{}{
		"db":         "socialgraph.db",
		"port":       8080,
		"verbosity":  "info",
		"json-logs":  false,
		"trace-file": "",
	}
	if err := k.Load(makeMapProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional) - socialgraph.toml
	// Errors are ignored as the file might not exist
	_ = k.Load(file.Provider("socialgraph.toml"), toml.Parser())

	// 3. Environment Variables
	// Prefix: SOCIALGRAPH_ (e.g., SOCIALGRAPH_PORT=9090)
	if err := k.Load(env.Provider("SOCIALGRAPH_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, "SOCIALGRAPH_")), "_", "-")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Helper to use a map as a koanf provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
