// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package search

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/EO-DataHub/stac-api-server/internal/config"
	"github.com/EO-DataHub/stac-api-server/internal/cql2"
	"github.com/EO-DataHub/stac-api-server/internal/logging"
	"github.com/EO-DataHub/stac-api-server/internal/metrics"
	"github.com/EO-DataHub/stac-api-server/internal/stac"
)

const (
	defaultLimit = 10

	// Bulk writes are chunked and throttled so a large ingest cannot
	// starve interactive searches of cluster capacity.
	bulkChunkSize       = 500
	bulkChunksPerSecond = 5
)

// Store implements Backend against a single search engine cluster.
type Store struct {
	engine      engine
	cfg         *config.SearchConfig
	queryables  cql2.Queryables
	maxLimit    int
	bulkLimiter *rate.Limiter
}

// New builds a Store for the configured engine flavor.
func New(cfg *config.SearchConfig, maxLimit int) (*Store, error) {
	var (
		eng engine
		err error
	)
	switch cfg.Backend {
	case "elasticsearch":
		eng, err = newElasticEngine(cfg)
	case "opensearch":
		eng, err = newOpenSearchEngine(cfg)
	default:
		return nil, fmt.Errorf("unknown search backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if maxLimit <= 0 {
		maxLimit = 10000
	}
	return &Store{
		engine:      eng,
		cfg:         cfg,
		queryables:  cql2.DefaultQueryables(),
		maxLimit:    maxLimit,
		bulkLimiter: rate.NewLimiter(rate.Limit(bulkChunksPerSecond), bulkChunksPerSecond),
	}, nil
}

// Queryables exposes the queryable registry for the schema endpoints.
func (s *Store) Queryables() cql2.Queryables {
	return s.queryables
}

func (s *Store) clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}

// observe records metrics for one backend operation.
func observe(operation string, start time.Time, err error) {
	metrics.BackendOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.BackendOperations.WithLabelValues(operation, outcome).Inc()
}

// Document identifiers. Catalog IDs are only unique within their parent,
// so the document key folds the full path in. Item IDs are only unique
// within their collection.

func itemDocID(collectionID, itemID string) string {
	return collectionID + "|" + itemID
}

func catalogDocID(catalogPath, catalogID string) string {
	return strings.ReplaceAll(fullCatalogPath(catalogPath, catalogID), "/", "|")
}

// fullCatalogPath appends a catalog id to its parent path in the
// URL-interleaved form used throughout the API.
func fullCatalogPath(catalogPath, catalogID string) string {
	if catalogPath == "" {
		return catalogID
	}
	return catalogPath + "/catalogs/" + catalogID
}

// Stored documents carry the parent path alongside the entity so children
// can be listed with a single term query.

type catalogDoc struct {
	stac.Catalog
	Path string `json:"catalog_path"`
}

type collectionDoc struct {
	stac.Collection
	Path string `json:"catalog_path"`
}

func (s *Store) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { observe("ping", start, err) }()
	return s.engine.Ping(ctx)
}

// EnsureIndices creates the three indices when missing. Called on startup
// only when transactions are enabled; read-only deployments expect the
// indices to be provisioned out of band.
func (s *Store) EnsureIndices(ctx context.Context) error {
	for _, idx := range []struct {
		base    string
		mapping string
	}{
		{indexItems, itemsMapping},
		{indexCollections, collectionsMapping},
		{indexCatalogs, catalogsMapping},
	} {
		name := s.cfg.IndexName(idx.base)
		exists, err := s.engine.IndexExists(ctx, name)
		if err != nil {
			return fmt.Errorf("check index %s: %w", name, err)
		}
		if exists {
			continue
		}
		if err := s.engine.CreateIndex(ctx, name, []byte(idx.mapping)); err != nil {
			return fmt.Errorf("create index %s: %w", name, err)
		}
		logging.Info().Str("index", name).Msg("Created index")
	}
	return nil
}

func (s *Store) ListCatalogs(ctx context.Context, catalogPath string, limit int, token string) (page *CatalogPage, err error) {
	start := time.Now()
	defer func() { observe("list_catalogs", start, err) }()

	limit = s.clampLimit(limit)
	body, err := buildChildrenBody(catalogPath, limit, token)
	if err != nil {
		return nil, err
	}
	envelope, err := s.search(ctx, indexCatalogs, body)
	if err != nil {
		return nil, err
	}

	catalogs := make([]stac.Catalog, 0, len(envelope.Hits.Hits))
	for _, hit := range envelope.Hits.Hits {
		var doc catalogDoc
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			return nil, fmt.Errorf("decode catalog %s: %w", hit.ID, err)
		}
		doc.Catalog.CatalogPath = doc.Path
		catalogs = append(catalogs, doc.Catalog)
	}
	return &CatalogPage{
		Catalogs: catalogs,
		Matched:  envelope.Hits.Total.Value,
		Next:     nextToken(envelope, limit),
	}, nil
}

func (s *Store) GetCatalog(ctx context.Context, catalogPath, catalogID string) (catalog *stac.Catalog, err error) {
	start := time.Now()
	defer func() { observe("get_catalog", start, err) }()

	source, err := s.engine.GetDocument(ctx, s.cfg.IndexName(indexCatalogs), catalogDocID(catalogPath, catalogID))
	if err != nil {
		return nil, err
	}
	var doc catalogDoc
	if err := json.Unmarshal(source, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", catalogID, err)
	}
	doc.Catalog.CatalogPath = doc.Path
	return &doc.Catalog, nil
}

func (s *Store) CreateCatalog(ctx context.Context, catalog *stac.Catalog) (err error) {
	start := time.Now()
	defer func() { observe("create_catalog", start, err) }()

	body, err := marshalCatalog(catalog)
	if err != nil {
		return err
	}
	return s.engine.CreateDocument(ctx, s.cfg.IndexName(indexCatalogs), catalogDocID(catalog.CatalogPath, catalog.ID), body)
}

func (s *Store) UpdateCatalog(ctx context.Context, catalog *stac.Catalog) (err error) {
	start := time.Now()
	defer func() { observe("update_catalog", start, err) }()

	docID := catalogDocID(catalog.CatalogPath, catalog.ID)
	if _, err := s.engine.GetDocument(ctx, s.cfg.IndexName(indexCatalogs), docID); err != nil {
		return err
	}
	body, err := marshalCatalog(catalog)
	if err != nil {
		return err
	}
	return s.engine.IndexDocument(ctx, s.cfg.IndexName(indexCatalogs), docID, body)
}

func (s *Store) DeleteCatalog(ctx context.Context, catalogPath, catalogID string) (err error) {
	start := time.Now()
	defer func() { observe("delete_catalog", start, err) }()
	return s.engine.DeleteDocument(ctx, s.cfg.IndexName(indexCatalogs), catalogDocID(catalogPath, catalogID))
}

func marshalCatalog(catalog *stac.Catalog) ([]byte, error) {
	doc := catalogDoc{Catalog: *catalog, Path: catalog.CatalogPath}
	doc.Catalog.Links = stac.StripInferredLinks(doc.Catalog.Links)
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode catalog %s: %w", catalog.ID, err)
	}
	return body, nil
}

func (s *Store) ListCollections(ctx context.Context, catalogPath string, limit int, token string) (page *CollectionPage, err error) {
	start := time.Now()
	defer func() { observe("list_collections", start, err) }()

	limit = s.clampLimit(limit)
	body, err := buildChildrenBody(catalogPath, limit, token)
	if err != nil {
		return nil, err
	}
	envelope, err := s.search(ctx, indexCollections, body)
	if err != nil {
		return nil, err
	}
	return collectionPage(envelope, limit)
}

func (s *Store) SearchCollections(ctx context.Context, req *stac.SearchRequest) (page *CollectionPage, err error) {
	start := time.Now()
	defer func() { observe("search_collections", start, err) }()

	limit := s.clampLimit(req.Limit)
	body, err := buildCollectionSearchBody(req, limit)
	if err != nil {
		return nil, err
	}
	envelope, err := s.search(ctx, indexCollections, body)
	if err != nil {
		return nil, err
	}
	return collectionPage(envelope, limit)
}

func collectionPage(envelope *searchEnvelope, limit int) (*CollectionPage, error) {
	collections := make([]stac.Collection, 0, len(envelope.Hits.Hits))
	for _, hit := range envelope.Hits.Hits {
		var doc collectionDoc
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			return nil, fmt.Errorf("decode collection %s: %w", hit.ID, err)
		}
		doc.Collection.CatalogPath = doc.Path
		collections = append(collections, doc.Collection)
	}
	return &CollectionPage{
		Collections: collections,
		Matched:     envelope.Hits.Total.Value,
		Next:        nextToken(envelope, limit),
	}, nil
}

func (s *Store) GetCollection(ctx context.Context, collectionID string) (collection *stac.Collection, err error) {
	start := time.Now()
	defer func() { observe("get_collection", start, err) }()

	source, err := s.engine.GetDocument(ctx, s.cfg.IndexName(indexCollections), collectionID)
	if err != nil {
		return nil, err
	}
	var doc collectionDoc
	if err := json.Unmarshal(source, &doc); err != nil {
		return nil, fmt.Errorf("decode collection %s: %w", collectionID, err)
	}
	doc.Collection.CatalogPath = doc.Path
	return &doc.Collection, nil
}

func (s *Store) CreateCollection(ctx context.Context, collection *stac.Collection) (err error) {
	start := time.Now()
	defer func() { observe("create_collection", start, err) }()

	body, err := marshalCollection(collection)
	if err != nil {
		return err
	}
	return s.engine.CreateDocument(ctx, s.cfg.IndexName(indexCollections), collection.ID, body)
}

func (s *Store) UpdateCollection(ctx context.Context, collection *stac.Collection) (err error) {
	start := time.Now()
	defer func() { observe("update_collection", start, err) }()

	if _, err := s.engine.GetDocument(ctx, s.cfg.IndexName(indexCollections), collection.ID); err != nil {
		return err
	}
	body, err := marshalCollection(collection)
	if err != nil {
		return err
	}
	return s.engine.IndexDocument(ctx, s.cfg.IndexName(indexCollections), collection.ID, body)
}

func (s *Store) DeleteCollection(ctx context.Context, collectionID string) (err error) {
	start := time.Now()
	defer func() { observe("delete_collection", start, err) }()
	return s.engine.DeleteDocument(ctx, s.cfg.IndexName(indexCollections), collectionID)
}

func marshalCollection(collection *stac.Collection) ([]byte, error) {
	doc := collectionDoc{Collection: *collection, Path: collection.CatalogPath}
	doc.Collection.Links = stac.StripInferredLinks(doc.Collection.Links)
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode collection %s: %w", collection.ID, err)
	}
	return body, nil
}

func (s *Store) SearchItems(ctx context.Context, req *stac.SearchRequest) (page *ItemPage, err error) {
	start := time.Now()
	defer func() { observe("search_items", start, err) }()

	limit := s.clampLimit(req.Limit)
	body, err := buildItemSearchBody(req, s.queryables, limit)
	if err != nil {
		return nil, err
	}
	envelope, err := s.search(ctx, indexItems, body)
	if err != nil {
		return nil, err
	}

	items := make([]stac.Item, 0, len(envelope.Hits.Hits))
	for _, hit := range envelope.Hits.Hits {
		var item stac.Item
		if err := json.Unmarshal(hit.Source, &item); err != nil {
			return nil, fmt.Errorf("decode item %s: %w", hit.ID, err)
		}
		items = append(items, item)
	}
	return &ItemPage{
		Items:   items,
		Matched: envelope.Hits.Total.Value,
		Next:    nextToken(envelope, limit),
	}, nil
}

func (s *Store) GetItem(ctx context.Context, collectionID, itemID string) (item *stac.Item, err error) {
	start := time.Now()
	defer func() { observe("get_item", start, err) }()

	source, err := s.engine.GetDocument(ctx, s.cfg.IndexName(indexItems), itemDocID(collectionID, itemID))
	if err != nil {
		return nil, err
	}
	item = &stac.Item{}
	if err := json.Unmarshal(source, item); err != nil {
		return nil, fmt.Errorf("decode item %s: %w", itemID, err)
	}
	return item, nil
}

func (s *Store) CreateItem(ctx context.Context, item *stac.Item) (err error) {
	start := time.Now()
	defer func() { observe("create_item", start, err) }()

	if err := s.requireCollection(ctx, item.Collection); err != nil {
		return err
	}
	body, err := marshalItem(item)
	if err != nil {
		return err
	}
	return s.engine.CreateDocument(ctx, s.cfg.IndexName(indexItems), itemDocID(item.Collection, item.ID), body)
}

func (s *Store) UpdateItem(ctx context.Context, item *stac.Item) (err error) {
	start := time.Now()
	defer func() { observe("update_item", start, err) }()

	docID := itemDocID(item.Collection, item.ID)
	if _, err := s.engine.GetDocument(ctx, s.cfg.IndexName(indexItems), docID); err != nil {
		return err
	}
	body, err := marshalItem(item)
	if err != nil {
		return err
	}
	return s.engine.IndexDocument(ctx, s.cfg.IndexName(indexItems), docID, body)
}

func (s *Store) DeleteItem(ctx context.Context, collectionID, itemID string) (err error) {
	start := time.Now()
	defer func() { observe("delete_item", start, err) }()
	return s.engine.DeleteDocument(ctx, s.cfg.IndexName(indexItems), itemDocID(collectionID, itemID))
}

// BulkItems writes items in throttled chunks. Partial failures are
// reported per item rather than failing the batch.
func (s *Store) BulkItems(ctx context.Context, collectionID string, items []stac.Item) (result *BulkResult, err error) {
	start := time.Now()
	defer func() { observe("bulk_items", start, err) }()

	if err := s.requireCollection(ctx, collectionID); err != nil {
		return nil, err
	}

	index := s.cfg.IndexName(indexItems)
	result = &BulkResult{}
	for start := 0; start < len(items); start += bulkChunkSize {
		end := start + bulkChunkSize
		if end > len(items) {
			end = len(items)
		}
		if err := s.bulkLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		var buf bytes.Buffer
		for i := start; i < end; i++ {
			item := items[i]
			item.Collection = collectionID
			action, _ := json.Marshal(map[string]any{
				"index": map[string]any{"_index": index, "_id": itemDocID(collectionID, item.ID)},
			})
			body, err := marshalItem(&item)
			if err != nil {
				return nil, err
			}
			buf.Write(action)
			buf.WriteByte('\n')
			buf.Write(body)
			buf.WriteByte('\n')
		}

		envelope, err := s.engine.Bulk(ctx, buf.Bytes())
		if err != nil {
			return nil, err
		}
		indexed := end - start
		if envelope.Errors {
			for _, actions := range envelope.Items {
				for _, outcome := range actions {
					if outcome.Error != nil {
						indexed--
						result.Errors = append(result.Errors,
							fmt.Sprintf("%s: %s: %s", outcome.ID, outcome.Error.Type, outcome.Error.Reason))
					}
				}
			}
		}
		result.Indexed += indexed
	}

	metrics.BulkItemsIndexed.Add(float64(result.Indexed))
	logging.Info().
		Str("collection", collectionID).
		Int("indexed", result.Indexed).
		Int("failed", len(result.Errors)).
		Msg("Bulk item write complete")
	return result, nil
}

func marshalItem(item *stac.Item) ([]byte, error) {
	stored := *item
	stored.Links = stac.StripInferredLinks(stored.Links)
	body, err := json.Marshal(&stored)
	if err != nil {
		return nil, fmt.Errorf("encode item %s: %w", item.ID, err)
	}
	return body, nil
}

func (s *Store) requireCollection(ctx context.Context, collectionID string) error {
	if collectionID == "" {
		return fmt.Errorf("item has no collection: %w", ErrNotFound)
	}
	if _, err := s.engine.GetDocument(ctx, s.cfg.IndexName(indexCollections), collectionID); err != nil {
		return fmt.Errorf("collection %s: %w", collectionID, err)
	}
	return nil
}

// Aggregations the /aggregate endpoint supports, keyed by public name.
var supportedAggregations = map[string]map[string]any{
	"collection_frequency": {"terms": map[string]any{"field": "collection", "size": 100}},
	"platform_frequency":   {"terms": map[string]any{"field": "properties.platform", "size": 100}},
	"datetime_frequency":   {"date_histogram": map[string]any{"field": "properties.datetime", "calendar_interval": "month"}},
	"datetime_min":         {"min": map[string]any{"field": "properties.datetime"}},
	"datetime_max":         {"max": map[string]any{"field": "properties.datetime"}},
	"cloud_cover_frequency": {"histogram": map[string]any{"field": "properties.eo:cloud_cover", "interval": 10}},
}

// SupportedAggregations lists the aggregation names for /aggregations.
func SupportedAggregations() []string {
	names := make([]string, 0, len(supportedAggregations)+1)
	names = append(names, "total_count")
	for name := range supportedAggregations {
		names = append(names, name)
	}
	return names
}

// Aggregate runs the named aggregations over the documents matching the
// request. total_count is served from the hit total; everything else maps
// onto an engine aggregation.
func (s *Store) Aggregate(ctx context.Context, req *stac.SearchRequest, aggregations []string) (results map[string]any, err error) {
	start := time.Now()
	defer func() { observe("aggregate", start, err) }()

	aggs := map[string]any{}
	wantTotal := false
	for _, name := range aggregations {
		if name == "total_count" {
			wantTotal = true
			continue
		}
		def, ok := supportedAggregations[name]
		if !ok {
			return nil, fmt.Errorf("unsupported aggregation %q", name)
		}
		aggs[name] = def
	}

	body, err := buildItemSearchBody(req, s.queryables, 0)
	if err != nil {
		return nil, err
	}
	body["size"] = 0
	delete(body, "sort")
	delete(body, "search_after")
	if len(aggs) > 0 {
		body["aggs"] = aggs
	}

	envelope, err := s.search(ctx, indexItems, body)
	if err != nil {
		return nil, err
	}

	results = make(map[string]any, len(aggregations))
	if wantTotal {
		results["total_count"] = envelope.Hits.Total.Value
	}
	for name, raw := range envelope.Aggregations {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("decode aggregation %s: %w", name, err)
		}
		results[name] = decoded
	}
	return results, nil
}

func (s *Store) search(ctx context.Context, baseIndex string, body map[string]any) (*searchEnvelope, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode search body: %w", err)
	}
	return s.engine.Search(ctx, []string{s.cfg.IndexName(baseIndex)}, raw)
}

// nextToken derives the pagination token from the last hit when the page
// is full; a short page means the result set is exhausted.
func nextToken(envelope *searchEnvelope, limit int) string {
	hits := envelope.Hits.Hits
	if limit <= 0 || len(hits) < limit {
		return ""
	}
	return EncodeToken(hits[len(hits)-1].Sort)
}
