// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package search

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
)

// engine is the thin protocol layer shared by the Elasticsearch and
// OpenSearch clients. Bodies are pre-marshaled JSON; responses come back
// as a parsed search envelope or raw document source.
type engine interface {
	Ping(ctx context.Context) error
	Search(ctx context.Context, indices []string, body []byte) (*searchEnvelope, error)
	GetDocument(ctx context.Context, index, id string) (json.RawMessage, error)
	IndexDocument(ctx context.Context, index, id string, body []byte) error
	CreateDocument(ctx context.Context, index, id string, body []byte) error
	DeleteDocument(ctx context.Context, index, id string) error
	Bulk(ctx context.Context, body []byte) (*bulkEnvelope, error)
	IndexExists(ctx context.Context, index string) (bool, error)
	CreateIndex(ctx context.Context, index string, mapping []byte) error
}

// searchEnvelope is the subset of a search response the store consumes.
type searchEnvelope struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations"`
}

type searchHit struct {
	ID     string          `json:"_id"`
	Source json.RawMessage `json:"_source"`
	Sort   []any           `json:"sort"`
}

// bulkEnvelope carries per-action outcomes from a _bulk request.
type bulkEnvelope struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

type getEnvelope struct {
	Found  bool            `json:"found"`
	Source json.RawMessage `json:"_source"`
}

// statusToError maps engine HTTP status codes onto the store's sentinel
// errors. The compat layer of both engines uses the same codes.
func statusToError(status int, body []byte) error {
	switch status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return fmt.Errorf("engine returned status %d: %s", status, truncate(body, 256))
	}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

func readAll(r io.Reader) []byte {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil
	}
	return b
}

func decodeSearchEnvelope(r io.Reader) (*searchEnvelope, error) {
	var envelope searchEnvelope
	if err := json.NewDecoder(r).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &envelope, nil
}

func decodeBulkEnvelope(r io.Reader) (*bulkEnvelope, error) {
	var envelope bulkEnvelope
	if err := json.NewDecoder(r).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode bulk response: %w", err)
	}
	return &envelope, nil
}
