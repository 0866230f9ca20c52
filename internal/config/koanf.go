// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/stac-api-server/config.yaml",
	"/etc/stac-api-server/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		API: APIConfig{
			Title:           "stac-api-server",
			Description:     "STAC API over Elasticsearch/OpenSearch",
			Version:         "2.1",
			RootPath:        "",
			DefaultPageSize: 10,
			MaxPageSize:     10000,
			OpenAPIURL:      "/api.html",
		},
		Search: SearchConfig{
			Backend:     "elasticsearch",
			Host:        "localhost",
			Port:        9200,
			UseSSL:      true,
			VerifyCerts: true,
			Timeout:     60,
			IndexPrefix: "",
		},
		Transactions: TransactionsConfig{
			Enabled: true,
		},
		RateLimit: RateLimitConfig{
			Spec: "",
		},
		Security: SecurityConfig{
			AuthMode:    "none",
			CORSOrigins: []string{"*"},
		},
		Journal: JournalConfig{
			Enabled: false,
			Path:    "/data/stac-journal",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
// defaults, then an optional YAML file, then environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file found, or "".
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

// sliceConfigPaths lists config paths parsed as comma-separated slices when
// they arrive as env var strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated strings to slices for known
// slice fields. Env vars come in as strings but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		// Already a slice (from YAML or defaults)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// It keeps the flat variable names of the original deployment (ES_HOST,
// STAC_FASTAPI_TITLE, ...) working against the nested structure.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Search engine (original ES_* contract)
		"es_backend":      "search.backend",
		"es_host":         "search.host",
		"es_port":         "search.port",
		"es_use_ssl":      "search.use_ssl",
		"es_verify_certs": "search.verify_certs",
		"es_api_key":      "search.api_key",
		"es_user":         "search.username",
		"es_pass":         "search.password",
		"es_timeout":      "search.timeout",
		"es_index_prefix": "search.index_prefix",
		"curl_ca_bundle":  "search.ca_bundle",

		// API document
		"stac_fastapi_title":       "api.title",
		"stac_fastapi_description": "api.description",
		"stac_fastapi_version":     "api.version",
		"stac_fastapi_root_path":   "api.root_path",
		"stac_fastapi_openapi_url": "api.openapi_url",
		"api_default_page_size":    "api.default_page_size",
		"api_max_page_size":        "api.max_page_size",

		// Feature toggles
		"stac_fastapi_enable_transactions": "transactions.enabled",
		"stac_fastapi_rate_limit":          "rate_limit.spec",

		// Server
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",
		"environment":  "server.environment",

		// Security
		"auth_mode":      "security.auth_mode",
		"jwt_secret":     "security.jwt_secret",
		"admin_username": "security.admin_username",
		"admin_password": "security.admin_password",
		"cors_origins":   "security.cors_origins",

		// Journal
		"journal_enabled": "journal.enabled",
		"journal_path":    "journal.path",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	// Unknown variables are ignored rather than mapped blindly; a generic
	// underscore-to-dot transform would let unrelated environment noise
	// (PATH, HOME) shadow config keys.
	return ""
}
