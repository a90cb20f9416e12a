// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

// Package config loads layered configuration via koanf v2: built-in
// defaults, then an optional YAML file, then environment variables.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for both the server and the watcher.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Uploads  UploadsConfig  `koanf:"uploads"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
	Client   ClientConfig   `koanf:"client"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds BadgerDB settings.
type DatabaseConfig struct {
	// Path is the Badger directory. Ignored when InMemory is set.
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// UploadsConfig holds attachment storage settings.
type UploadsConfig struct {
	Dir         string `koanf:"dir"`
	MaxFileSize int64  `koanf:"max_file_size"`
}

// SecurityConfig holds CORS and rate limit settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// ClientConfig holds settings for the watcher client.
type ClientConfig struct {
	// ServerURL is the websocket endpoint of the article service.
	ServerURL string `koanf:"server_url"`

	// ReconnectDelay is the fixed delay before a reconnect attempt.
	ReconnectDelay time.Duration `koanf:"reconnect_delay"`

	// NotificationTTL is how long a notification stays displayed.
	NotificationTTL time.Duration `koanf:"notification_ttl"`

	// NotificationCap bounds the notification queue; the oldest entry
	// is dropped when the cap is exceeded. Zero means unbounded.
	NotificationCap int `koanf:"notification_cap"`
}

// defaultConfig returns a Config with all defaults applied. These are
// layered first, then overridden by file and environment values.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:     "data/articles",
			InMemory: false,
		},
		Uploads: UploadsConfig{
			Dir:         "uploads",
			MaxFileSize: 10 << 20, // 10 MB
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Client: ClientConfig{
			ServerURL:       "ws://localhost:3000/ws",
			ReconnectDelay:  3 * time.Second,
			NotificationTTL: 5 * time.Second,
			NotificationCap: 256,
		},
	}
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if !c.Database.InMemory && c.Database.Path == "" {
		return fmt.Errorf("database.path is required unless database.in_memory is set")
	}
	if c.Uploads.Dir == "" {
		return fmt.Errorf("uploads.dir is required")
	}
	if c.Uploads.MaxFileSize <= 0 {
		return fmt.Errorf("uploads.max_file_size must be positive, got %d", c.Uploads.MaxFileSize)
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs <= 0 {
			return fmt.Errorf("security.rate_limit_reqs must be positive, got %d", c.Security.RateLimitReqs)
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("security.rate_limit_window must be positive, got %s", c.Security.RateLimitWindow)
		}
	}
	if c.Client.ReconnectDelay <= 0 {
		return fmt.Errorf("client.reconnect_delay must be positive, got %s", c.Client.ReconnectDelay)
	}
	if c.Client.NotificationTTL <= 0 {
		return fmt.Errorf("client.notification_ttl must be positive, got %s", c.Client.NotificationTTL)
	}
	if c.Client.NotificationCap < 0 {
		return fmt.Errorf("client.notification_cap must not be negative, got %d", c.Client.NotificationCap)
	}
	return nil
}
