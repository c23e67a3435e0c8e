// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package config loads and validates a node's runtime configuration:
// which persistent store to use, where to listen, the trust and scoring
// parameters, and the ambient logging/metrics/health surface.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for a gossipwire node.
type Config struct {
	Environment string         `yaml:"environment" json:"environment"`
	Store       StoreConfig    `yaml:"store" json:"store"`
	Network     NetworkConfig  `yaml:"network" json:"network"`
	Trust       TrustConfig    `yaml:"trust" json:"trust"`
	Scoring     ScoringConfig  `yaml:"scoring" json:"scoring"`
	Logging     LoggingConfig  `yaml:"logging" json:"logging"`
	Metrics     MetricsConfig  `yaml:"metrics" json:"metrics"`
	Health      HealthConfig   `yaml:"health" json:"health"`
}

// StoreConfig selects and configures the persistent store backend.
type StoreConfig struct {
	// Type is "memory" or "postgres".
	Type     string         `yaml:"type" json:"type"`
	Path     string         `yaml:"path,omitempty" json:"path,omitempty"`
	Postgres PostgresConfig `yaml:"postgres,omitempty" json:"postgres,omitempty"`
}

// PostgresConfig holds connection parameters for the postgres store.
type PostgresConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	Database string `yaml:"database" json:"database"`
	SSLMode  string `yaml:"ssl_mode" json:"ssl_mode"`
}

// NetworkConfig configures the node's transport listener and initial
// peer set.
type NetworkConfig struct {
	ListenAddress  string   `yaml:"listen_address" json:"listen_address"`
	BootstrapPeers []string `yaml:"bootstrap_peers" json:"bootstrap_peers"`
}

// TrustConfig overrides the trust set's capacity bound. The floor
// (trust.MinPeers) is not operator-configurable: it protects against a
// node untrusting itself into isolation.
type TrustConfig struct {
	MaxPeers int `yaml:"max_peers" json:"max_peers"`
}

// ScoringConfig overrides the Elo rating parameters.
type ScoringConfig struct {
	KFactor        int `yaml:"k_factor" json:"k_factor"`
	DefaultRating  int `yaml:"default_rating" json:"default_rating"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// HealthConfig configures the health-check endpoint.
type HealthConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// LoadFromFile reads and parses a config file, trying YAML first and
// falling back to JSON, then applies defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("config: parse %s (tried yaml and json): %w", path, err)
		}
	}

	setDefaults(cfg)
	return cfg, nil
}

// SaveToFile writes cfg to path, choosing JSON or YAML by file extension.
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// setDefaults fills in zero-valued fields with the node's operating
// defaults, matching the values used when no config file is found at
// all.
func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Store.Type == "" {
		cfg.Store.Type = "memory"
	}
	if cfg.Store.Postgres.SSLMode == "" {
		cfg.Store.Postgres.SSLMode = "disable"
	}

	if cfg.Network.ListenAddress == "" {
		cfg.Network.ListenAddress = "0.0.0.0:7700"
	}

	if cfg.Trust.MaxPeers == 0 {
		cfg.Trust.MaxPeers = 32
	}

	if cfg.Scoring.KFactor == 0 {
		cfg.Scoring.KFactor = 32
	}
	if cfg.Scoring.DefaultRating == 0 {
		cfg.Scoring.DefaultRating = 1200
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9700
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Health.Port == 0 {
		cfg.Health.Port = 9701
	}
	if cfg.Health.Path == "" {
		cfg.Health.Path = "/healthz"
	}
}
