// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package api

import (
	"fmt"
	"net/http"

	"github.com/EO-DataHub/stac-api-server/internal/cql2"
	"github.com/EO-DataHub/stac-api-server/internal/search"
	"github.com/EO-DataHub/stac-api-server/internal/stac"
)

// SearchGET handles GET /search, optionally scoped to a catalog path.
func (h *Handler) SearchGET(w http.ResponseWriter, r *http.Request) {
	h.searchGET(w, r, "")
}

func (h *Handler) searchGET(w http.ResponseWriter, r *http.Request, catalogPath string) {
	req, err := parseSearchParams(r)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	req.CatalogPath = catalogPath
	h.runSearch(w, r, req, http.MethodGet)
}

// SearchPOST handles POST /search, optionally scoped to a catalog path.
func (h *Handler) SearchPOST(w http.ResponseWriter, r *http.Request) {
	h.searchPOST(w, r, "")
}

func (h *Handler) searchPOST(w http.ResponseWriter, r *http.Request, catalogPath string) {
	req, err := parseSearchBody(r)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	req.CatalogPath = catalogPath
	h.runSearch(w, r, req, http.MethodPost)
}

func (h *Handler) runSearch(w http.ResponseWriter, r *http.Request, req *stac.SearchRequest, method string) {
	if err := h.scopeToCatalog(r, req); err != nil {
		writeBackendError(w, r, err)
		return
	}

	page, err := h.backend.SearchItems(r.Context(), req)
	if err != nil {
		writeBackendError(w, r, err)
		return
	}

	base := h.baseLinks(r)
	doc := h.itemCollection(base, req, page)

	paging := stac.PagingLinks{
		BaseLinks: base,
		URL:       h.requestURL(r, base),
		Method:    method,
		Next:      page.Next,
	}
	if method == http.MethodPost {
		paging.Body = searchBodyParams(req)
	}
	if next := paging.NextLink(); next != nil {
		doc.Links = append(doc.Links, *next)
	}

	writeJSON(w, http.StatusOK, stac.MediaTypeGeoJSON, doc)
}

// scopeToCatalog narrows a search to the collections under a catalog
// path. An explicit collections filter is intersected with the scope.
func (h *Handler) scopeToCatalog(r *http.Request, req *stac.SearchRequest) error {
	if req.CatalogPath == "" {
		return nil
	}

	page, err := h.backend.ListCollections(r.Context(), req.CatalogPath, h.cfg.API.MaxPageSize, "")
	if err != nil {
		return err
	}
	scoped := make([]string, 0, len(page.Collections))
	for _, collection := range page.Collections {
		scoped = append(scoped, collection.ID)
	}

	if len(req.Collections) == 0 {
		req.Collections = scoped
	} else {
		allowed := make(map[string]bool, len(scoped))
		for _, id := range scoped {
			allowed[id] = true
		}
		kept := req.Collections[:0]
		for _, id := range req.Collections {
			if allowed[id] {
				kept = append(kept, id)
			}
		}
		req.Collections = kept
	}

	// A catalog with no matching collections must return an empty page,
	// not an unscoped search.
	if len(req.Collections) == 0 {
		req.Collections = []string{"\x00no-collections"}
	}
	return nil
}

// itemCollection assembles the FeatureCollection response with inferred
// links on each feature.
func (h *Handler) itemCollection(base stac.BaseLinks, req *stac.SearchRequest, page *search.ItemPage) *stac.ItemCollection {
	features := make([]stac.Item, 0, len(page.Items))
	for _, item := range page.Items {
		builder := stac.ItemLinks{
			BaseLinks:    base,
			CatalogPath:  req.CatalogPath,
			CollectionID: item.Collection,
			ItemID:       item.ID,
		}
		item.Links = base.Merge(builder.Links(), item.Links)
		features = append(features, item)
	}

	return &stac.ItemCollection{
		Type:     "FeatureCollection",
		Features: features,
		Links:    []stac.Link{base.RootLink()},
		Context: &stac.Context{
			Returned: len(features),
			Limit:    req.Limit,
			Matched:  page.Matched,
		},
	}
}

// Queryables serves the global queryables schema.
func (h *Handler) Queryables(w http.ResponseWriter, r *http.Request) {
	base := h.baseLinks(r)
	doc := cql2.SchemaDocument(base.Resolve("queryables"), "Queryables for "+h.cfg.API.Title, h.queryables)
	writeJSON(w, http.StatusOK, stac.MediaTypeJSON, doc)
}

// CollectionQueryables serves a per-collection queryables schema. The
// collection must exist; the queryable set is currently shared.
func (h *Handler) CollectionQueryables(w http.ResponseWriter, r *http.Request, collectionID string) {
	if _, err := h.backend.GetCollection(r.Context(), collectionID); err != nil {
		writeBackendError(w, r, err)
		return
	}
	base := h.baseLinks(r)
	doc := cql2.SchemaDocument(
		base.Resolve("collections/"+collectionID+"/queryables"),
		"Queryables for "+collectionID,
		h.queryables,
	)
	writeJSON(w, http.StatusOK, stac.MediaTypeJSON, doc)
}

// AggregateGET handles GET /aggregate.
func (h *Handler) AggregateGET(w http.ResponseWriter, r *http.Request) {
	h.aggregateGET(w, r, "")
}

func (h *Handler) aggregateGET(w http.ResponseWriter, r *http.Request, catalogPath string) {
	req, err := parseSearchParams(r)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	req.CatalogPath = catalogPath
	names := stac.SplitCSV(r.URL.Query().Get("aggregations"))
	h.runAggregate(w, r, req, names)
}

// AggregatePOST handles POST /aggregate.
func (h *Handler) AggregatePOST(w http.ResponseWriter, r *http.Request) {
	h.aggregatePOST(w, r, "")
}

func (h *Handler) aggregatePOST(w http.ResponseWriter, r *http.Request, catalogPath string) {
	req, names, err := parseAggregateBody(r)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	req.CatalogPath = catalogPath
	h.runAggregate(w, r, req, names)
}

func (h *Handler) runAggregate(w http.ResponseWriter, r *http.Request, req *stac.SearchRequest, names []string) {
	if len(names) == 0 {
		names = []string{"total_count"}
	}
	if err := validateAggregationNames(names); err != nil {
		writeValidationError(w, err)
		return
	}
	if err := h.scopeToCatalog(r, req); err != nil {
		writeBackendError(w, r, err)
		return
	}

	results, err := h.backend.Aggregate(r.Context(), req, names)
	if err != nil {
		writeBackendError(w, r, err)
		return
	}

	base := h.baseLinks(r)
	writeJSON(w, http.StatusOK, stac.MediaTypeJSON, map[string]any{
		"aggregations": results,
		"links": []stac.Link{
			base.RootLink(),
			{Rel: stac.RelSelf, Type: stac.MediaTypeJSON, Href: h.requestURL(r, base)},
		},
	})
}

// Aggregations lists the aggregations available on /aggregate.
func (h *Handler) Aggregations(w http.ResponseWriter, r *http.Request) {
	base := h.baseLinks(r)
	names := search.SupportedAggregations()
	aggs := make([]map[string]any, 0, len(names))
	for _, name := range names {
		aggs = append(aggs, map[string]any{"name": name})
	}
	writeJSON(w, http.StatusOK, stac.MediaTypeJSON, map[string]any{
		"aggregations": aggs,
		"links": []stac.Link{
			base.RootLink(),
			{Rel: stac.RelSelf, Type: stac.MediaTypeJSON, Href: base.Resolve("aggregations")},
		},
	})
}

// CollectionAggregateGET handles GET /collections/{collectionID}/aggregate.
func (h *Handler) CollectionAggregateGET(w http.ResponseWriter, r *http.Request, collectionID string) {
	if _, err := h.backend.GetCollection(r.Context(), collectionID); err != nil {
		writeBackendError(w, r, err)
		return
	}
	req, err := parseSearchParams(r)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	req.Collections = []string{collectionID}
	names := stac.SplitCSV(r.URL.Query().Get("aggregations"))
	h.runAggregate(w, r, req, names)
}

// CollectionAggregatePOST handles POST /collections/{collectionID}/aggregate.
func (h *Handler) CollectionAggregatePOST(w http.ResponseWriter, r *http.Request, collectionID string) {
	if _, err := h.backend.GetCollection(r.Context(), collectionID); err != nil {
		writeBackendError(w, r, err)
		return
	}
	req, names, err := parseAggregateBody(r)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	req.Collections = []string{collectionID}
	h.runAggregate(w, r, req, names)
}

// CollectionAggregations lists available aggregations for one collection.
func (h *Handler) CollectionAggregations(w http.ResponseWriter, r *http.Request, collectionID string) {
	if _, err := h.backend.GetCollection(r.Context(), collectionID); err != nil {
		writeBackendError(w, r, err)
		return
	}
	h.Aggregations(w, r)
}

func validateAggregationNames(names []string) error {
	supported := make(map[string]bool)
	for _, name := range search.SupportedAggregations() {
		supported[name] = true
	}
	for _, name := range names {
		if !supported[name] {
			return fmt.Errorf("unsupported aggregation %q", name)
		}
	}
	return nil
}
