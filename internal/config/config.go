// Package config loads CLI configuration for frameset. It is decoupled
// from command wiring so other entry points can reuse it.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "frameset.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "frameset.yml"

// EnvPrefix is the prefix of environment variables the loader reads.
// FRAMESET_FORMAT=parquet sets the "format" key.
const EnvPrefix = "FRAMESET_"

// Config holds all CLI configuration options.
type Config struct {
	// Format is the table format used when writing an entityset.
	Format string `koanf:"format"`
	// Compression is passed to the table codec as a write param.
	Compression string `koanf:"compression"`
	// Manifest selects the manifest encoding, "json" or "yaml".
	Manifest string `koanf:"manifest"`
	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`
}

// Defaults for every config key.
var defaults = map[string]any{
	"format":      "csv",
	"compression": "",
	"manifest":    "json",
	"verbose":     false,
}

// Load builds the effective configuration.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// An empty cfgFile means the well-known filenames in the current directory
// are tried; a missing well-known file is not an error.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	path := cfgFile
	if path == "" {
		path = findConfigFile(".")
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(key string) string {
		return strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

// findConfigFile finds the config file in the given directory.
// Returns empty string if not found.
func findConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		path := dir + string(os.PathSeparator) + name
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
