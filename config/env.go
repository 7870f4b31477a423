// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.

package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"
)

// envVarPattern matches ${VAR} or ${VAR:default}
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// SubstituteEnvVars replaces ${VAR} or ${VAR:default} with environment variable values.
func SubstituteEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// substituteEnvVars rewrites every string field of cfg that may carry a
// ${VAR}/${VAR:default} reference.
func substituteEnvVars(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Identity.Seed = SubstituteEnvVars(cfg.Identity.Seed)
	cfg.Identity.KeyStore = SubstituteEnvVars(cfg.Identity.KeyStore)

	cfg.Network.ResolverREST = SubstituteEnvVars(cfg.Network.ResolverREST)
	cfg.Network.AlmanacRPC = SubstituteEnvVars(cfg.Network.AlmanacRPC)
	cfg.Network.AlmanacContract = SubstituteEnvVars(cfg.Network.AlmanacContract)
	cfg.Network.NameServiceRPC = SubstituteEnvVars(cfg.Network.NameServiceRPC)
	cfg.Network.NameServiceAddr = SubstituteEnvVars(cfg.Network.NameServiceAddr)
	for i, ep := range cfg.Network.Endpoints {
		cfg.Network.Endpoints[i] = SubstituteEnvVars(ep)
	}

	cfg.Registration.AgentverseURL = SubstituteEnvVars(cfg.Registration.AgentverseURL)

	cfg.Logging.Level = SubstituteEnvVars(cfg.Logging.Level)
	cfg.Logging.Output = SubstituteEnvVars(cfg.Logging.Output)

	cfg.Metrics.Path = SubstituteEnvVars(cfg.Metrics.Path)
}

// applyEnvOverrides layers explicit environment variables over cfg, taking
// priority over both defaults and file contents (§4.13).
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	if v := os.Getenv("AGENT_SEED"); v != "" {
		cfg.Identity.Seed = v
	}
	if v := os.Getenv("AGENT_KEY_STORE"); v != "" {
		cfg.Identity.KeyStore = v
	}
	if v := os.Getenv("AGENT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Network.Port = port
		}
	}
	if v := os.Getenv("AGENT_ALMANAC_RPC"); v != "" {
		cfg.Network.AlmanacRPC = v
	}
	if v := os.Getenv("AGENT_ALMANAC_CONTRACT"); v != "" {
		cfg.Network.AlmanacContract = v
	}
	if v := os.Getenv("AGENT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("AGENT_LOG_OUTPUT"); v != "" {
		cfg.Logging.Output = v
	}
	if v := os.Getenv("AGENT_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = v == "true"
	}
}

// GetEnvironment returns the current environment from AGENT_ENV, falling
// back to ENVIRONMENT, then "development".
func GetEnvironment() string {
	env := os.Getenv("AGENT_ENV")
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" {
		env = "development"
	}
	return strings.ToLower(env)
}

// IsProduction returns true if GetEnvironment is "production".
func IsProduction() bool {
	return GetEnvironment() == "production"
}

// IsDevelopment returns true if GetEnvironment is "development" or "local".
func IsDevelopment() bool {
	env := GetEnvironment()
	return env == "development" || env == "local"
}
