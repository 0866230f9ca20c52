// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

// Package config holds all application configuration, loaded with Koanf v2
// from layered sources (highest priority wins):
//
//  1. Built-in defaults
//  2. Optional YAML config file (config.yaml, or CONFIG_PATH)
//  3. Environment variables
//
// The search-engine section keeps the ES_* environment contract of the
// original deployment (ES_HOST, ES_PORT, ES_USE_SSL, ES_VERIFY_CERTS,
// ES_API_KEY, ES_USER/ES_PASS, ES_TIMEOUT, CURL_CA_BUNDLE), so existing
// manifests keep working unchanged.
//
// Config is immutable after Load() and safe for concurrent reads.
package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	API          APIConfig          `koanf:"api"`
	Search       SearchConfig       `koanf:"search"`
	Transactions TransactionsConfig `koanf:"transactions"`
	RateLimit    RateLimitConfig    `koanf:"rate_limit"`
	Security     SecurityConfig     `koanf:"security"`
	Journal      JournalConfig      `koanf:"journal"`
	Logging      LoggingConfig      `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the listen address. Default: 0.0.0.0
	Host string `koanf:"host" validate:"required"`

	// Port is the listen port. Default: 8080
	Port int `koanf:"port" validate:"gt=0,lte=65535"`

	// Timeout bounds request read/write handling.
	Timeout time.Duration `koanf:"timeout"`

	// Environment is development or production; production tightens
	// startup validation (e.g. refuses AUTH_MODE=none warnings silently).
	Environment string `koanf:"environment" validate:"oneof=development production"`
}

// APIConfig holds the STAC API document settings and paging limits.
type APIConfig struct {
	// Title appears in the landing page. Env: STAC_FASTAPI_TITLE
	Title string `koanf:"title"`

	// Description appears in the landing page. Env: STAC_FASTAPI_DESCRIPTION
	Description string `koanf:"description"`

	// Version is the advertised API version. Env: STAC_FASTAPI_VERSION
	Version string `koanf:"version"`

	// RootPath is prepended to all routes when the server sits behind a
	// path-rewriting proxy. Env: STAC_FASTAPI_ROOT_PATH
	RootPath string `koanf:"root_path"`

	// DefaultPageSize is the item page size when the client sends no limit.
	DefaultPageSize int `koanf:"default_page_size" validate:"gt=0"`

	// MaxPageSize caps the client-requested limit.
	MaxPageSize int `koanf:"max_page_size" validate:"gt=0"`

	// OpenAPIURL is the href advertised by the service-desc link.
	OpenAPIURL string `koanf:"openapi_url"`
}

// SearchConfig holds search-engine client settings.
//
// The address is assembled as {scheme}://{host}:{port}, where the scheme is
// https unless UseSSL is false.
type SearchConfig struct {
	// Backend selects the engine flavor: elasticsearch or opensearch.
	// Env: ES_BACKEND
	Backend string `koanf:"backend" validate:"oneof=elasticsearch opensearch"`

	// Host of the search engine. Env: ES_HOST
	Host string `koanf:"host" validate:"required"`

	// Port of the search engine. Env: ES_PORT
	Port int `koanf:"port" validate:"gt=0,lte=65535"`

	// UseSSL selects https. Default: true. Env: ES_USE_SSL
	UseSSL bool `koanf:"use_ssl"`

	// VerifyCerts controls TLS certificate verification. Default: true.
	// Env: ES_VERIFY_CERTS
	VerifyCerts bool `koanf:"verify_certs"`

	// CABundle is an optional CA certificate bundle path used when
	// verifying. Env: CURL_CA_BUNDLE
	CABundle string `koanf:"ca_bundle"`

	// APIKey is sent as the x-api-key header when set. Env: ES_API_KEY
	APIKey string `koanf:"api_key"`

	// Username and Password enable basic auth; both must be set together.
	// Env: ES_USER, ES_PASS
	Username string `koanf:"username"`
	Password string `koanf:"password"`

	// Timeout is the per-request timeout in seconds. Default: 60.
	// Env: ES_TIMEOUT
	Timeout int `koanf:"timeout" validate:"gt=0"`

	// IndexPrefix namespaces the items/collections/catalogs indices.
	// Env: ES_INDEX_PREFIX
	IndexPrefix string `koanf:"index_prefix"`
}

// TransactionsConfig toggles the write surface of the API.
type TransactionsConfig struct {
	// Enabled exposes the transaction routes and creates indices at
	// startup. Default: true. Env: STAC_FASTAPI_ENABLE_TRANSACTIONS
	Enabled bool `koanf:"enabled"`
}

// RateLimitConfig holds app-wide rate limiting.
type RateLimitConfig struct {
	// Spec is a "count/period" expression such as "500/minute".
	// Empty disables rate limiting. Env: STAC_FASTAPI_RATE_LIMIT
	Spec string `koanf:"spec"`
}

// SecurityConfig holds authentication settings for protected routes.
type SecurityConfig struct {
	// AuthMode is none, jwt or basic. Default: none. Env: AUTH_MODE
	AuthMode string `koanf:"auth_mode" validate:"oneof=none jwt basic"`

	// JWTSecret signs bearer tokens (jwt mode). Env: JWT_SECRET
	JWTSecret string `koanf:"jwt_secret"`

	// AdminUsername and AdminPassword are the basic-auth credentials.
	// Env: ADMIN_USERNAME, ADMIN_PASSWORD
	AdminUsername string `koanf:"admin_username"`
	AdminPassword string `koanf:"admin_password"`

	// CORSOrigins is the allowed origin list; "*" allows any origin.
	// Env: CORS_ORIGINS (comma-separated)
	CORSOrigins []string `koanf:"cors_origins"`
}

// JournalConfig holds the badger transaction journal settings.
type JournalConfig struct {
	// Enabled turns on the write-ahead journal for transactions.
	Enabled bool `koanf:"enabled"`

	// Path is the badger directory. Env: JOURNAL_PATH
	Path string `koanf:"path"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	// Level: trace, debug, info, warn, error. Env: LOG_LEVEL
	Level string `koanf:"level"`

	// Format: json or console. Env: LOG_FORMAT
	Format string `koanf:"format"`

	// Caller includes file:line in log entries. Env: LOG_CALLER
	Caller bool `koanf:"caller"`
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// Address returns the engine URL, e.g. https://search.example.com:9200.
func (s *SearchConfig) Address() string {
	scheme := "https"
	if !s.UseSSL {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, s.Host, s.Port)
}

// RequestTimeout returns the per-request timeout as a duration.
func (s *SearchConfig) RequestTimeout() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// Headers returns the default headers for engine requests. Elasticsearch
// gets the version-7 compatibility accept header; an API key rides on the
// x-api-key header, matching the original deployment's gateway contract.
func (s *SearchConfig) Headers() http.Header {
	h := http.Header{}
	if s.Backend == "elasticsearch" {
		h.Set("accept", "application/vnd.elasticsearch+json; compatible-with=7")
	}
	if s.APIKey != "" {
		h.Set("x-api-key", s.APIKey)
	}
	return h
}

// TLSConfig returns the TLS settings for the engine transport, or nil when
// SSL is disabled.
func (s *SearchConfig) TLSConfig() (*tls.Config, error) {
	if !s.UseSSL {
		return nil, nil
	}
	if !s.VerifyCerts {
		//nolint:gosec // explicit opt-out via ES_VERIFY_CERTS=false
		return &tls.Config{InsecureSkipVerify: true}, nil
	}
	cfg := &tls.Config{MinVersion: tls.VersionTLS13}
	if s.CABundle != "" {
		pem, err := os.ReadFile(s.CABundle)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA bundle %s: %w", s.CABundle, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates parsed from CA bundle %s", s.CABundle)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

// IndexName prefixes an index name with the configured namespace.
func (s *SearchConfig) IndexName(base string) string {
	if s.IndexPrefix == "" {
		return base
	}
	return s.IndexPrefix + "_" + base
}
