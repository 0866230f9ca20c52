// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/EO-DataHub/stac-api-server/internal/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestJWTRoundTrip(t *testing.T) {
	t.Parallel()

	manager, err := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret})
	if err != nil {
		t.Fatalf("NewJWTManager failed: %v", err)
	}

	token, err := manager.GenerateToken("alice", "admin")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Username != "alice" || claims.Role != "admin" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestJWTRejectsGarbage(t *testing.T) {
	t.Parallel()

	manager, _ := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret})
	if _, err := manager.ValidateToken("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	issuer, _ := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret})
	verifier, _ := NewJWTManager(&config.SecurityConfig{JWTSecret: "ffffffffffffffffffffffffffffffff"})

	token, _ := issuer.GenerateToken("alice", "admin")
	if _, err := verifier.ValidateToken(token); err == nil {
		t.Error("token signed with different secret should fail")
	}
}

func TestBasicVerifier(t *testing.T) {
	t.Parallel()

	verifier, err := NewBasicVerifier(&config.SecurityConfig{
		AdminUsername: "admin",
		AdminPassword: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("NewBasicVerifier failed: %v", err)
	}

	if err := verifier.Verify("admin", "hunter2hunter2"); err != nil {
		t.Errorf("valid credentials rejected: %v", err)
	}
	if err := verifier.Verify("admin", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("expected ErrBadCredentials, got %v", err)
	}
	if err := verifier.Verify("other", "hunter2hunter2"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("expected ErrBadCredentials for wrong user, got %v", err)
	}
}

func TestGuardModeNone(t *testing.T) {
	t.Parallel()

	guard, err := Guard(&config.SecurityConfig{AuthMode: "none"})
	if err != nil {
		t.Fatalf("Guard failed: %v", err)
	}

	rec := httptest.NewRecorder()
	guard(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/collections", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("mode none should pass through, got %d", rec.Code)
	}
}

func TestGuardModeJWT(t *testing.T) {
	t.Parallel()

	cfg := &config.SecurityConfig{AuthMode: "jwt", JWTSecret: testSecret}
	guard, err := Guard(cfg)
	if err != nil {
		t.Fatalf("Guard failed: %v", err)
	}
	protected := guard(okHandler())

	t.Run("missing token", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/collections", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
		if rec.Header().Get("WWW-Authenticate") == "" {
			t.Error("challenge header missing")
		}
	})

	t.Run("valid token", func(t *testing.T) {
		t.Parallel()
		manager, _ := NewJWTManager(cfg)
		token, _ := manager.GenerateToken("alice", "admin")

		req := httptest.NewRequest(http.MethodPost, "/collections", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})
}

func TestGuardModeBasic(t *testing.T) {
	t.Parallel()

	guard, err := Guard(&config.SecurityConfig{
		AuthMode:      "basic",
		AdminUsername: "admin",
		AdminPassword: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("Guard failed: %v", err)
	}
	protected := guard(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/collections", nil)
	req.SetBasicAuth("admin", "hunter2hunter2")
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/collections", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without credentials, got %d", rec.Code)
	}
}
