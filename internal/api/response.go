// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/EO-DataHub/stac-api-server/internal/logging"
	"github.com/EO-DataHub/stac-api-server/internal/search"
	"github.com/EO-DataHub/stac-api-server/internal/stac"
)

// errorBody is the error envelope returned on every non-2xx response.
type errorBody struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func writeJSON(w http.ResponseWriter, status int, contentType string, body any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, stac.MediaTypeJSON, errorBody{Code: code, Description: description})
}

// writeBackendError maps store errors onto HTTP statuses. An open circuit
// breaker surfaces as 503 so load balancers can back off.
func writeBackendError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, search.ErrNotFound):
		writeError(w, http.StatusNotFound, "NotFoundError", err.Error())
	case errors.Is(err, search.ErrConflict):
		writeError(w, http.StatusConflict, "ConflictError", err.Error())
	case errors.Is(err, search.ErrBadToken):
		writeError(w, http.StatusBadRequest, "InvalidParameterValue", err.Error())
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		writeError(w, http.StatusServiceUnavailable, "ServiceUnavailable", "search backend is temporarily unavailable")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Backend request failed")
		writeError(w, http.StatusInternalServerError, "InternalServerError", "an unexpected error occurred")
	}
}

func writeValidationError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, "InvalidParameterValue", err.Error())
}
