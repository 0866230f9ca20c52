// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package search

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/EO-DataHub/stac-api-server/internal/config"
	"github.com/EO-DataHub/stac-api-server/internal/logging"
)

// openSearchEngine adapts the OpenSearch client to the engine interface.
// Mirrors elasticEngine; the wire protocol is identical for the subset of
// operations the store issues.
type openSearchEngine struct {
	client *opensearch.Client
}

func newOpenSearchEngine(cfg *config.SearchConfig) (*openSearchEngine, error) {
	tlsConfig, err := cfg.TLSConfig()
	if err != nil {
		return nil, err
	}
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.Address()},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Header:    cfg.Headers(),
		Transport: &http.Transport{TLSClientConfig: tlsConfig},
	})
	if err != nil {
		return nil, fmt.Errorf("create opensearch client: %w", err)
	}

	logging.Info().
		Str("backend", "opensearch").
		Str("address", cfg.Address()).
		Bool("ssl", cfg.UseSSL).
		Msg("Search engine client created")

	return &openSearchEngine{client: client}, nil
}

func (e *openSearchEngine) Ping(ctx context.Context) error {
	res, err := opensearchapi.PingRequest{}.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return statusToError(res.StatusCode, readAll(res.Body))
	}
	return nil
}

func (e *openSearchEngine) Search(ctx context.Context, indices []string, body []byte) (*searchEnvelope, error) {
	trackTotal := true
	ignoreUnavailable := true
	res, err := opensearchapi.SearchRequest{
		Index:             indices,
		Body:              bytes.NewReader(body),
		TrackTotalHits:    trackTotal,
		IgnoreUnavailable: &ignoreUnavailable,
	}.Do(ctx, e.client)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, statusToError(res.StatusCode, readAll(res.Body))
	}
	return decodeSearchEnvelope(res.Body)
}

func (e *openSearchEngine) GetDocument(ctx context.Context, index, id string) (json.RawMessage, error) {
	res, err := opensearchapi.GetRequest{Index: index, DocumentID: id}.Do(ctx, e.client)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, statusToError(res.StatusCode, readAll(res.Body))
	}
	var envelope getEnvelope
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode get response: %w", err)
	}
	if !envelope.Found {
		return nil, ErrNotFound
	}
	return envelope.Source, nil
}

func (e *openSearchEngine) IndexDocument(ctx context.Context, index, id string, body []byte) error {
	res, err := opensearchapi.IndexRequest{
		Index:      index,
		DocumentID: id,
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("index document: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return statusToError(res.StatusCode, readAll(res.Body))
	}
	return nil
}

func (e *openSearchEngine) CreateDocument(ctx context.Context, index, id string, body []byte) error {
	res, err := opensearchapi.CreateRequest{
		Index:      index,
		DocumentID: id,
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return statusToError(res.StatusCode, readAll(res.Body))
	}
	return nil
}

func (e *openSearchEngine) DeleteDocument(ctx context.Context, index, id string) error {
	res, err := opensearchapi.DeleteRequest{
		Index:      index,
		DocumentID: id,
		Refresh:    "true",
	}.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return statusToError(res.StatusCode, readAll(res.Body))
	}
	return nil
}

func (e *openSearchEngine) Bulk(ctx context.Context, body []byte) (*bulkEnvelope, error) {
	res, err := opensearchapi.BulkRequest{
		Body:    bytes.NewReader(body),
		Refresh: "true",
	}.Do(ctx, e.client)
	if err != nil {
		return nil, fmt.Errorf("bulk: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, statusToError(res.StatusCode, readAll(res.Body))
	}
	return decodeBulkEnvelope(res.Body)
}

func (e *openSearchEngine) IndexExists(ctx context.Context, index string) (bool, error) {
	res, err := opensearchapi.IndicesExistsRequest{Index: []string{index}}.Do(ctx, e.client)
	if err != nil {
		return false, fmt.Errorf("index exists: %w", err)
	}
	defer res.Body.Close()
	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, statusToError(res.StatusCode, readAll(res.Body))
	}
}

func (e *openSearchEngine) CreateIndex(ctx context.Context, index string, mapping []byte) error {
	res, err := opensearchapi.IndicesCreateRequest{
		Index: index,
		Body:  bytes.NewReader(mapping),
	}.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return statusToError(res.StatusCode, readAll(res.Body))
	}
	return nil
}
