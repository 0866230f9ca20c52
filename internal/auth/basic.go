// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/EO-DataHub/stac-api-server/internal/config"
)

var ErrBadCredentials = errors.New("invalid credentials")

// BasicVerifier checks basic-auth credentials against the configured
// admin account. The password is hashed at startup so the plaintext from
// the environment is not held for the process lifetime.
type BasicVerifier struct {
	username     string
	passwordHash []byte
}

// NewBasicVerifier hashes the configured admin password.
func NewBasicVerifier(cfg *config.SecurityConfig) (*BasicVerifier, error) {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil, errors.New("basic auth requires admin username and password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	return &BasicVerifier{
		username:     cfg.AdminUsername,
		passwordHash: hash,
	}, nil
}

// Verify checks a username and password pair. Both comparisons run in
// constant time.
func (v *BasicVerifier) Verify(username, password string) error {
	userMatch := subtle.ConstantTimeCompare([]byte(v.username), []byte(username)) == 1
	passErr := bcrypt.CompareHashAndPassword(v.passwordHash, []byte(password))
	if !userMatch || passErr != nil {
		return ErrBadCredentials
	}
	return nil
}
