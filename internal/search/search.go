// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

// Package search implements the catalog store on top of Elasticsearch or
// OpenSearch. The Backend interface is what the API layer consumes; the
// engine interface underneath abstracts the two client libraries, which
// speak an identical wire protocol for everything this server needs.
package search

import (
	"context"
	"errors"

	"github.com/EO-DataHub/stac-api-server/internal/stac"
)

// Sentinel errors surfaced to the API layer for status code mapping.
var (
	ErrNotFound = errors.New("resource not found")
	ErrConflict = errors.New("resource already exists")
	ErrBadToken = errors.New("invalid pagination token")
)

// ItemPage is one page of an item search.
type ItemPage struct {
	Items   []stac.Item
	Matched int64
	Next    string
}

// CollectionPage is one page of a collection listing or search.
type CollectionPage struct {
	Collections []stac.Collection
	Matched     int64
	Next        string
}

// CatalogPage is one page of a catalog listing.
type CatalogPage struct {
	Catalogs []stac.Catalog
	Matched  int64
	Next     string
}

// BulkResult reports the outcome of a bulk item write.
type BulkResult struct {
	Indexed int
	Errors  []string
}

// Backend is the persistence contract the API layer programs against.
// Implementations: Store talks to the engine directly, BreakerBackend
// decorates any Backend with circuit breaking.
type Backend interface {
	Ping(ctx context.Context) error
	EnsureIndices(ctx context.Context) error

	ListCatalogs(ctx context.Context, catalogPath string, limit int, token string) (*CatalogPage, error)
	GetCatalog(ctx context.Context, catalogPath, catalogID string) (*stac.Catalog, error)
	CreateCatalog(ctx context.Context, catalog *stac.Catalog) error
	UpdateCatalog(ctx context.Context, catalog *stac.Catalog) error
	DeleteCatalog(ctx context.Context, catalogPath, catalogID string) error

	ListCollections(ctx context.Context, catalogPath string, limit int, token string) (*CollectionPage, error)
	SearchCollections(ctx context.Context, req *stac.SearchRequest) (*CollectionPage, error)
	GetCollection(ctx context.Context, collectionID string) (*stac.Collection, error)
	CreateCollection(ctx context.Context, collection *stac.Collection) error
	UpdateCollection(ctx context.Context, collection *stac.Collection) error
	DeleteCollection(ctx context.Context, collectionID string) error

	SearchItems(ctx context.Context, req *stac.SearchRequest) (*ItemPage, error)
	GetItem(ctx context.Context, collectionID, itemID string) (*stac.Item, error)
	CreateItem(ctx context.Context, item *stac.Item) error
	UpdateItem(ctx context.Context, item *stac.Item) error
	DeleteItem(ctx context.Context, collectionID, itemID string) error
	BulkItems(ctx context.Context, collectionID string, items []stac.Item) (*BulkResult, error)

	Aggregate(ctx context.Context, req *stac.SearchRequest, aggregations []string) (map[string]any, error)
}
