// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

package config

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where a config file is searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/palinaria/config.yaml",
	"/etc/palinaria/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// envMappings translates flat environment variable names to koanf
// paths. Only listed variables are honoured; everything else in the
// environment is ignored.
var envMappings = map[string]string{
	"SERVER_HOST":             "server.host",
	"SERVER_PORT":             "server.port",
	"SERVER_TIMEOUT":          "server.timeout",
	"SERVER_SHUTDOWN_TIMEOUT": "server.shutdown_timeout",
	"DATABASE_PATH":           "database.path",
	"DATABASE_IN_MEMORY":      "database.in_memory",
	"UPLOADS_DIR":             "uploads.dir",
	"UPLOADS_MAX_FILE_SIZE":   "uploads.max_file_size",
	"CORS_ORIGINS":            "security.cors_origins",
	"RATE_LIMIT_REQS":         "security.rate_limit_reqs",
	"RATE_LIMIT_WINDOW":       "security.rate_limit_window",
	"RATE_LIMIT_DISABLED":     "security.rate_limit_disabled",
	"LOG_LEVEL":               "logging.level",
	"LOG_FORMAT":              "logging.format",
	"LOG_CALLER":              "logging.caller",
	"SERVER_URL":              "client.server_url",
	"RECONNECT_DELAY":         "client.reconnect_delay",
	"NOTIFICATION_TTL":        "client.notification_ttl",
	"NOTIFICATION_CAP":        "client.notification_cap",
}

// Load builds the configuration with precedence ENV > file > defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct.
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// Layer 2: optional YAML config file.
	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Layer 3: environment variables.
	envProvider := env.Provider("", ".", func(name string) string {
		return envMappings[name]
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
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
