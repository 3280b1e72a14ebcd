// Helmsman - Media Server Companion Cache Layer
// Copyright 2026 Helmsman Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/helmsman-media/helmsman

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/helmsman/config.yaml",
	"/etc/helmsman/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "HELMSMAN_CONFIG"

// envPrefix namespaces Helmsman's environment variables.
const envPrefix = "HELMSMAN_"

// configSections maps env-var section prefixes to koanf paths. Longest
// prefixes are listed first so IMAGE_CACHE_DIR does not get swallowed by a
// shorter match.
var configSections = []string{
	"image_cache",
	"connectors",
	"server",
	"store",
	"cache",
	"log",
}

// Load builds the configuration from defaults, an optional YAML file, and
// HELMSMAN_* environment variables, then validates it. An empty path means
// "search the default locations"; a non-empty path must exist.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults.
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// Layer 2: optional config file.
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Layer 3: environment variables (highest priority).
	// HELMSMAN_LOG_LEVEL -> log.level
	// HELMSMAN_IMAGE_CACHE_GATE_CAPACITY -> image_cache.gate_capacity
	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envTransform converts HELMSMAN_SECTION_FIELD_NAME into section.field_name.
func envTransform(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	for _, section := range configSections {
		if strings.HasPrefix(lower, section+"_") {
			return section + "." + strings.TrimPrefix(lower, section+"_")
		}
	}
	return lower
}

// findConfigFile returns the first config file that exists, checking the
// HELMSMAN_CONFIG env var first and then the default paths.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
