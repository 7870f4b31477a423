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

// Package config loads an agent's static configuration: identity seed,
// endpoints, Almanac registration policy, and logging, from a YAML file
// layered with environment variable overrides (§4.13).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for an agent process.
type Config struct {
	Environment  string             `yaml:"environment" json:"environment"`
	Identity     IdentityConfig     `yaml:"identity" json:"identity"`
	Network      NetworkConfig      `yaml:"network" json:"network"`
	Registration RegistrationConfig `yaml:"registration" json:"registration"`
	Logging      LoggingConfig      `yaml:"logging" json:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics" json:"metrics"`
}

// IdentityConfig derives the agent's KeyPair (§3, §6.1).
type IdentityConfig struct {
	Seed     string `yaml:"seed" json:"seed"`
	Index    uint32 `yaml:"index" json:"index"`
	KeyType  string `yaml:"key_type" json:"key_type"` // Ed25519, Secp256k1
	KeyStore string `yaml:"key_store" json:"key_store"`
	Testnet  bool   `yaml:"testnet" json:"testnet"`
}

// NetworkConfig is the agent's addressable surface and its resolver's
// upstream sources (§4.5/§6.2).
type NetworkConfig struct {
	Name              string   `yaml:"name" json:"name"`
	Port              int      `yaml:"port" json:"port"`
	Endpoints         []string `yaml:"endpoints" json:"endpoints"`
	ResolverREST      string   `yaml:"resolver_rest" json:"resolver_rest"`
	AlmanacRPC        string   `yaml:"almanac_rpc" json:"almanac_rpc"`
	AlmanacContract   string   `yaml:"almanac_contract" json:"almanac_contract"`
	NameServiceRPC    string   `yaml:"name_service_rpc" json:"name_service_rpc"`
	NameServiceAddr   string   `yaml:"name_service_contract" json:"name_service_contract"`
	MaxResolveResults int      `yaml:"max_resolve_results" json:"max_resolve_results"`
}

// RegistrationConfig controls the Almanac registration policy loop
// (§4.6, §4.13).
type RegistrationConfig struct {
	Mode             string        `yaml:"mode" json:"mode"` // ledger, agentverse
	CheckInterval    time.Duration `yaml:"check_interval" json:"check_interval"`
	MinSecondsLeft   time.Duration `yaml:"min_seconds_left" json:"min_seconds_left"`
	BroadcastRetries int           `yaml:"broadcast_retries" json:"broadcast_retries"`
	AgentverseURL    string        `yaml:"agentverse_url" json:"agentverse_url"`
}

// LoggingConfig mirrors internal/logger's level/output knobs.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Output string `yaml:"output" json:"output"` // stdout, stderr, file path
}

// MetricsConfig controls the /metrics endpoint (§4.13 ambient stack).
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// Default returns a Config with every field set to a usable default, so
// a caller only needs to override what matters for their deployment.
func Default() *Config {
	return &Config{
		Environment: "development",
		Identity: IdentityConfig{
			KeyType: "Ed25519",
		},
		Network: NetworkConfig{
			Name:              "agent",
			Port:              8000,
			MaxResolveResults: 10,
		},
		Registration: RegistrationConfig{
			Mode:             "ledger",
			CheckInterval:    60 * time.Second,
			MinSecondsLeft:   24 * time.Hour,
			BroadcastRetries: 7,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads path as YAML onto Default(), loads a .env file from the
// current working directory if present (godotenv), substitutes ${VAR}/${VAR:default} references, and
// applies the highest-priority explicit environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // optional: a missing .env file is not an error

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	substituteEnvVars(cfg)
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants Load and callers both rely on.
func (c *Config) Validate() error {
	if c.Identity.KeyType != "Ed25519" && c.Identity.KeyType != "Secp256k1" {
		return fmt.Errorf("config: identity.key_type must be Ed25519 or Secp256k1, got %q", c.Identity.KeyType)
	}
	if c.Network.Port < 0 || c.Network.Port > 65535 {
		return fmt.Errorf("config: network.port out of range: %d", c.Network.Port)
	}
	if c.Registration.Mode != "ledger" && c.Registration.Mode != "agentverse" {
		return fmt.Errorf("config: registration.mode must be ledger or agentverse, got %q", c.Registration.Mode)
	}
	return nil
}
