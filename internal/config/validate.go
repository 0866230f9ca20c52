// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Validation errors for cross-field rules the struct tags cannot express.
var (
	ErrJWTSecretRequired   = errors.New("AUTH_MODE=jwt requires JWT_SECRET of at least 32 characters")
	ErrBasicAuthIncomplete = errors.New("AUTH_MODE=basic requires both ADMIN_USERNAME and ADMIN_PASSWORD")
	ErrSearchAuthPartial   = errors.New("ES_USER and ES_PASS must be set together")
	ErrInvalidRateLimit    = errors.New("rate limit spec must look like 500/minute")
)

// validate is the shared validator instance. validator.Validate caches
// struct metadata, so a single instance is the intended usage.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags plus cross-field rules. Called by Load; fails
// fast so a misconfigured server never starts serving.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("invalid value for %s (rule %s)", first.Namespace(), first.Tag())
		}
		return err
	}

	switch c.Security.AuthMode {
	case "jwt":
		if len(c.Security.JWTSecret) < 32 {
			return ErrJWTSecretRequired
		}
	case "basic":
		if c.Security.AdminUsername == "" || c.Security.AdminPassword == "" {
			return ErrBasicAuthIncomplete
		}
	}

	if (c.Search.Username == "") != (c.Search.Password == "") {
		return ErrSearchAuthPartial
	}

	if c.RateLimit.Spec != "" {
		if _, _, err := ParseRateLimit(c.RateLimit.Spec); err != nil {
			return err
		}
	}

	return nil
}

// ParseRateLimit parses a "count/period" spec such as "500/minute" into a
// request count and window. Supported periods: second, minute, hour, day.
func ParseRateLimit(spec string) (int, time.Duration, error) {
	parts := strings.SplitN(strings.TrimSpace(spec), "/", 2)
	if len(parts) != 2 {
		return 0, 0, ErrInvalidRateLimit
	}
	count, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || count <= 0 {
		return 0, 0, ErrInvalidRateLimit
	}
	switch strings.ToLower(strings.TrimSpace(parts[1])) {
	case "second":
		return count, time.Second, nil
	case "minute":
		return count, time.Minute, nil
	case "hour":
		return count, time.Hour, nil
	case "day":
		return count, 24 * time.Hour, nil
	default:
		return 0, 0, ErrInvalidRateLimit
	}
}
