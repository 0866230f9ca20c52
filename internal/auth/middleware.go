// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/EO-DataHub/stac-api-server/internal/config"
	"github.com/EO-DataHub/stac-api-server/internal/logging"
)

// Guard produces the middleware protecting write routes for the
// configured auth mode. Mode "none" returns a passthrough.
func Guard(cfg *config.SecurityConfig) (func(http.Handler) http.Handler, error) {
	switch cfg.AuthMode {
	case "none":
		return func(next http.Handler) http.Handler { return next }, nil
	case "jwt":
		manager, err := NewJWTManager(cfg)
		if err != nil {
			return nil, err
		}
		return bearerGuard(manager), nil
	case "basic":
		verifier, err := NewBasicVerifier(cfg)
		if err != nil {
			return nil, err
		}
		return basicGuard(verifier), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.AuthMode)
	}
}

func bearerGuard(manager *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				unauthorized(w, r, `Bearer realm="stac"`)
				return
			}
			claims, err := manager.ValidateToken(token)
			if err != nil {
				logging.Ctx(r.Context()).Debug().Err(err).Msg("Token rejected")
				unauthorized(w, r, `Bearer realm="stac", error="invalid_token"`)
				return
			}
			logging.Ctx(r.Context()).Debug().Str("user", claims.Username).Msg("Write authorized")
			next.ServeHTTP(w, r)
		})
	}
}

func basicGuard(verifier *BasicVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok {
				unauthorized(w, r, `Basic realm="stac"`)
				return
			}
			if err := verifier.Verify(username, password); err != nil {
				logging.Ctx(r.Context()).Debug().Str("user", username).Msg("Credentials rejected")
				unauthorized(w, r, `Basic realm="stac"`)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, challenge string) {
	w.Header().Set("WWW-Authenticate", challenge)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":        "Unauthorized",
		"description": "valid credentials are required for write operations",
	})
}
