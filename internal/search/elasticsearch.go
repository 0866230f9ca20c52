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
	"strings"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/goccy/go-json"

	"github.com/EO-DataHub/stac-api-server/internal/config"
	"github.com/EO-DataHub/stac-api-server/internal/logging"
)

// elasticEngine adapts the official Elasticsearch client to the engine
// interface. Write operations refresh immediately so reads observe them;
// the API promises read-after-write on transactions.
type elasticEngine struct {
	client *elasticsearch.Client
}

func newElasticEngine(cfg *config.SearchConfig) (*elasticEngine, error) {
	tlsConfig, err := cfg.TLSConfig()
	if err != nil {
		return nil, err
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Address()},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Header:    cfg.Headers(),
		Transport: &http.Transport{TLSClientConfig: tlsConfig},
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	logging.Info().
		Str("backend", "elasticsearch").
		Str("address", cfg.Address()).
		Bool("ssl", cfg.UseSSL).
		Msg("Search engine client created")

	return &elasticEngine{client: client}, nil
}

func (e *elasticEngine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return statusToError(res.StatusCode, readAll(res.Body))
	}
	return nil
}

func (e *elasticEngine) Search(ctx context.Context, indices []string, body []byte) (*searchEnvelope, error) {
	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(strings.Join(indices, ",")),
		e.client.Search.WithBody(bytes.NewReader(body)),
		e.client.Search.WithTrackTotalHits(true),
		e.client.Search.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, statusToError(res.StatusCode, readAll(res.Body))
	}
	return decodeSearchEnvelope(res.Body)
}

func (e *elasticEngine) GetDocument(ctx context.Context, index, id string) (json.RawMessage, error) {
	res, err := e.client.Get(index, id, e.client.Get.WithContext(ctx))
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

func (e *elasticEngine) IndexDocument(ctx context.Context, index, id string, body []byte) error {
	res, err := e.client.Index(index, bytes.NewReader(body),
		e.client.Index.WithContext(ctx),
		e.client.Index.WithDocumentID(id),
		e.client.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("index document: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return statusToError(res.StatusCode, readAll(res.Body))
	}
	return nil
}

func (e *elasticEngine) CreateDocument(ctx context.Context, index, id string, body []byte) error {
	res, err := e.client.Create(index, id, bytes.NewReader(body),
		e.client.Create.WithContext(ctx),
		e.client.Create.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return statusToError(res.StatusCode, readAll(res.Body))
	}
	return nil
}

func (e *elasticEngine) DeleteDocument(ctx context.Context, index, id string) error {
	res, err := e.client.Delete(index, id,
		e.client.Delete.WithContext(ctx),
		e.client.Delete.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return statusToError(res.StatusCode, readAll(res.Body))
	}
	return nil
}

func (e *elasticEngine) Bulk(ctx context.Context, body []byte) (*bulkEnvelope, error) {
	res, err := e.client.Bulk(bytes.NewReader(body),
		e.client.Bulk.WithContext(ctx),
		e.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return nil, fmt.Errorf("bulk: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, statusToError(res.StatusCode, readAll(res.Body))
	}
	return decodeBulkEnvelope(res.Body)
}

func (e *elasticEngine) IndexExists(ctx context.Context, index string) (bool, error) {
	res, err := e.client.Indices.Exists([]string{index}, e.client.Indices.Exists.WithContext(ctx))
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

func (e *elasticEngine) CreateIndex(ctx context.Context, index string, mapping []byte) error {
	res, err := e.client.Indices.Create(index,
		e.client.Indices.Create.WithContext(ctx),
		e.client.Indices.Create.WithBody(bytes.NewReader(mapping)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return statusToError(res.StatusCode, readAll(res.Body))
	}
	return nil
}
