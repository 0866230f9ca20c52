// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/EO-DataHub/stac-api-server/internal/search"
	"github.com/EO-DataHub/stac-api-server/internal/stac"
)

// fakeBackend is an in-memory search.Backend for handler tests.
type fakeBackend struct {
	mu sync.Mutex

	catalogs    map[string]*stac.Catalog
	collections map[string]*stac.Collection
	items       map[string]*stac.Item

	// searchFn overrides SearchItems when set.
	searchFn func(req *stac.SearchRequest) (*search.ItemPage, error)

	// writeErr makes every mutating call fail when set.
	writeErr error

	pingErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		catalogs:    make(map[string]*stac.Catalog),
		collections: make(map[string]*stac.Collection),
		items:       make(map[string]*stac.Item),
	}
}

func catalogKey(path, id string) string { return path + "|" + id }
func itemKey(col, id string) string     { return col + "|" + id }

func (f *fakeBackend) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeBackend) EnsureIndices(ctx context.Context) error { return nil }

func (f *fakeBackend) ListCatalogs(ctx context.Context, catalogPath string, limit int, token string) (*search.CatalogPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	page := &search.CatalogPage{}
	for _, c := range f.catalogs {
		if c.CatalogPath == catalogPath {
			page.Catalogs = append(page.Catalogs, *c)
		}
	}
	page.Matched = int64(len(page.Catalogs))
	return page, nil
}

func (f *fakeBackend) GetCatalog(ctx context.Context, catalogPath, catalogID string) (*stac.Catalog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.catalogs[catalogKey(catalogPath, catalogID)]
	if !ok {
		return nil, fmt.Errorf("catalog %s: %w", catalogID, search.ErrNotFound)
	}
	copied := *c
	return &copied, nil
}

func (f *fakeBackend) CreateCatalog(ctx context.Context, catalog *stac.Catalog) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := catalogKey(catalog.CatalogPath, catalog.ID)
	if _, ok := f.catalogs[key]; ok {
		return fmt.Errorf("catalog %s: %w", catalog.ID, search.ErrConflict)
	}
	copied := *catalog
	f.catalogs[key] = &copied
	return nil
}

func (f *fakeBackend) UpdateCatalog(ctx context.Context, catalog *stac.Catalog) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := catalogKey(catalog.CatalogPath, catalog.ID)
	if _, ok := f.catalogs[key]; !ok {
		return fmt.Errorf("catalog %s: %w", catalog.ID, search.ErrNotFound)
	}
	copied := *catalog
	f.catalogs[key] = &copied
	return nil
}

func (f *fakeBackend) DeleteCatalog(ctx context.Context, catalogPath, catalogID string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := catalogKey(catalogPath, catalogID)
	if _, ok := f.catalogs[key]; !ok {
		return fmt.Errorf("catalog %s: %w", catalogID, search.ErrNotFound)
	}
	delete(f.catalogs, key)
	return nil
}

func (f *fakeBackend) ListCollections(ctx context.Context, catalogPath string, limit int, token string) (*search.CollectionPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	page := &search.CollectionPage{}
	for _, c := range f.collections {
		if c.CatalogPath == catalogPath {
			page.Collections = append(page.Collections, *c)
		}
	}
	page.Matched = int64(len(page.Collections))
	return page, nil
}

func (f *fakeBackend) SearchCollections(ctx context.Context, req *stac.SearchRequest) (*search.CollectionPage, error) {
	return f.ListCollections(ctx, req.CatalogPath, req.Limit, req.Token)
}

func (f *fakeBackend) GetCollection(ctx context.Context, collectionID string) (*stac.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.collections[collectionID]
	if !ok {
		return nil, fmt.Errorf("collection %s: %w", collectionID, search.ErrNotFound)
	}
	copied := *c
	return &copied, nil
}

func (f *fakeBackend) CreateCollection(ctx context.Context, collection *stac.Collection) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.collections[collection.ID]; ok {
		return fmt.Errorf("collection %s: %w", collection.ID, search.ErrConflict)
	}
	copied := *collection
	f.collections[collection.ID] = &copied
	return nil
}

func (f *fakeBackend) UpdateCollection(ctx context.Context, collection *stac.Collection) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.collections[collection.ID]; !ok {
		return fmt.Errorf("collection %s: %w", collection.ID, search.ErrNotFound)
	}
	copied := *collection
	f.collections[collection.ID] = &copied
	return nil
}

func (f *fakeBackend) DeleteCollection(ctx context.Context, collectionID string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.collections[collectionID]; !ok {
		return fmt.Errorf("collection %s: %w", collectionID, search.ErrNotFound)
	}
	delete(f.collections, collectionID)
	return nil
}

func (f *fakeBackend) SearchItems(ctx context.Context, req *stac.SearchRequest) (*search.ItemPage, error) {
	if f.searchFn != nil {
		return f.searchFn(req)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	page := &search.ItemPage{}
	for _, item := range f.items {
		if len(req.Collections) > 0 && !containsString(req.Collections, item.Collection) {
			continue
		}
		page.Items = append(page.Items, *item)
	}
	page.Matched = int64(len(page.Items))
	return page, nil
}

func (f *fakeBackend) GetItem(ctx context.Context, collectionID, itemID string) (*stac.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[itemKey(collectionID, itemID)]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", itemID, search.ErrNotFound)
	}
	copied := *item
	return &copied, nil
}

func (f *fakeBackend) CreateItem(ctx context.Context, item *stac.Item) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.collections[item.Collection]; !ok {
		return fmt.Errorf("collection %s: %w", item.Collection, search.ErrNotFound)
	}
	key := itemKey(item.Collection, item.ID)
	if _, ok := f.items[key]; ok {
		return fmt.Errorf("item %s: %w", item.ID, search.ErrConflict)
	}
	copied := *item
	f.items[key] = &copied
	return nil
}

func (f *fakeBackend) UpdateItem(ctx context.Context, item *stac.Item) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := itemKey(item.Collection, item.ID)
	if _, ok := f.items[key]; !ok {
		return fmt.Errorf("item %s: %w", item.ID, search.ErrNotFound)
	}
	copied := *item
	f.items[key] = &copied
	return nil
}

func (f *fakeBackend) DeleteItem(ctx context.Context, collectionID, itemID string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := itemKey(collectionID, itemID)
	if _, ok := f.items[key]; !ok {
		return fmt.Errorf("item %s: %w", itemID, search.ErrNotFound)
	}
	delete(f.items, key)
	return nil
}

func (f *fakeBackend) BulkItems(ctx context.Context, collectionID string, items []stac.Item) (*search.BulkResult, error) {
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.collections[collectionID]; !ok {
		return nil, fmt.Errorf("collection %s: %w", collectionID, search.ErrNotFound)
	}
	result := &search.BulkResult{}
	for _, item := range items {
		item.Collection = collectionID
		copied := item
		f.items[itemKey(collectionID, item.ID)] = &copied
		result.Indexed++
	}
	return result, nil
}

func (f *fakeBackend) Aggregate(ctx context.Context, req *stac.SearchRequest, aggregations []string) (map[string]any, error) {
	results := make(map[string]any, len(aggregations))
	for _, name := range aggregations {
		results[name] = map[string]any{"value": 0}
	}
	return results, nil
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
