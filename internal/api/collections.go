// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/EO-DataHub/stac-api-server/internal/extensions"
	"github.com/EO-DataHub/stac-api-server/internal/journal"
	"github.com/EO-DataHub/stac-api-server/internal/search"
	"github.com/EO-DataHub/stac-api-server/internal/stac"
)

// pageParams carries the limit/token pair shared by listing endpoints.
type pageParams struct {
	limit int
	token string
}

func parsePageParams(r *http.Request) (pageParams, error) {
	params := pageParams{token: r.URL.Query().Get("token")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return params, fmt.Errorf("limit must be an integer: %w", err)
		}
		params.limit = limit
	}
	return params, nil
}

// ListCollectionsRoot handles GET /collections.
func (h *Handler) ListCollectionsRoot(w http.ResponseWriter, r *http.Request) {
	h.listCollections(w, r, "")
}

func (h *Handler) listCollections(w http.ResponseWriter, r *http.Request, catalogPath string) {
	params, err := parsePageParams(r)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	var page *search.CollectionPage
	if q := r.URL.Query().Get("q"); q != "" && h.exts.Has(extensions.CollectionSearch) {
		req := &stac.SearchRequest{
			FreeText:    q,
			CatalogPath: catalogPath,
			Limit:       params.limit,
			Token:       params.token,
		}
		page, err = h.backend.SearchCollections(r.Context(), req)
	} else {
		page, err = h.backend.ListCollections(r.Context(), catalogPath, params.limit, params.token)
	}
	if err != nil {
		writeBackendError(w, r, err)
		return
	}

	base := h.baseLinks(r)
	doc := stac.Collections{
		Collections: make([]stac.Collection, 0, len(page.Collections)),
		Links:       []stac.Link{base.RootLink(), {Rel: stac.RelSelf, Type: stac.MediaTypeJSON, Href: h.requestURL(r, base)}},
		Context: &stac.Context{
			Returned: len(page.Collections),
			Limit:    params.limit,
			Matched:  page.Matched,
		},
	}
	for _, collection := range page.Collections {
		doc.Collections = append(doc.Collections, h.collectionWithLinks(base, catalogPath, collection))
	}

	paging := stac.PagingLinks{
		BaseLinks: base,
		URL:       h.requestURL(r, base),
		Method:    http.MethodGet,
		Next:      page.Next,
	}
	if next := paging.NextLink(); next != nil {
		doc.Links = append(doc.Links, *next)
	}

	writeJSON(w, http.StatusOK, stac.MediaTypeJSON, doc)
}

func (h *Handler) collectionWithLinks(base stac.BaseLinks, catalogPath string, collection stac.Collection) stac.Collection {
	builder := stac.CollectionLinks{
		BaseLinks:    base,
		CatalogPath:  catalogPath,
		CollectionID: collection.ID,
		Extensions:   h.exts.LinkNames(),
	}
	collection.Links = base.Merge(builder.Links(), collection.Links)
	return collection
}

// GetCollectionRoot handles GET /collections/{collectionID}.
func (h *Handler) GetCollectionRoot(w http.ResponseWriter, r *http.Request) {
	h.getCollection(w, r, "", chi.URLParam(r, "collectionID"))
}

func (h *Handler) getCollection(w http.ResponseWriter, r *http.Request, catalogPath, collectionID string) {
	collection, err := h.backend.GetCollection(r.Context(), collectionID)
	if err != nil {
		writeBackendError(w, r, err)
		return
	}
	base := h.baseLinks(r)
	writeJSON(w, http.StatusOK, stac.MediaTypeJSON, h.collectionWithLinks(base, collection.CatalogPath, *collection))
}

// CreateCollectionRoot handles POST /collections.
func (h *Handler) CreateCollectionRoot(w http.ResponseWriter, r *http.Request) {
	h.createCollection(w, r, "")
}

func (h *Handler) createCollection(w http.ResponseWriter, r *http.Request, catalogPath string) {
	raw, collection, err := decodeCollection(r)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	collection.CatalogPath = catalogPath

	err = h.applyWrite(r.Context(), journal.OpCreateCollection, journalPayload{
		CatalogPath:  catalogPath,
		CollectionID: collection.ID,
		Document:     raw,
	}, func(ctx context.Context) error {
		return h.backend.CreateCollection(ctx, collection)
	})
	if err != nil {
		writeBackendError(w, r, err)
		return
	}

	base := h.baseLinks(r)
	writeJSON(w, http.StatusCreated, stac.MediaTypeJSON, h.collectionWithLinks(base, catalogPath, *collection))
}

// UpdateCollectionRoot handles PUT /collections/{collectionID}.
func (h *Handler) UpdateCollectionRoot(w http.ResponseWriter, r *http.Request) {
	h.updateCollection(w, r, "", chi.URLParam(r, "collectionID"))
}

func (h *Handler) updateCollection(w http.ResponseWriter, r *http.Request, catalogPath, collectionID string) {
	raw, collection, err := decodeCollection(r)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	if collection.ID != collectionID {
		writeValidationError(w, fmt.Errorf("collection id %q does not match URL %q", collection.ID, collectionID))
		return
	}
	collection.CatalogPath = catalogPath

	err = h.applyWrite(r.Context(), journal.OpUpdateCollection, journalPayload{
		CatalogPath:  catalogPath,
		CollectionID: collectionID,
		Document:     raw,
	}, func(ctx context.Context) error {
		return h.backend.UpdateCollection(ctx, collection)
	})
	if err != nil {
		writeBackendError(w, r, err)
		return
	}

	base := h.baseLinks(r)
	writeJSON(w, http.StatusOK, stac.MediaTypeJSON, h.collectionWithLinks(base, catalogPath, *collection))
}

// DeleteCollectionRoot handles DELETE /collections/{collectionID}.
func (h *Handler) DeleteCollectionRoot(w http.ResponseWriter, r *http.Request) {
	h.deleteCollection(w, r, "", chi.URLParam(r, "collectionID"))
}

func (h *Handler) deleteCollection(w http.ResponseWriter, r *http.Request, catalogPath, collectionID string) {
	err := h.applyWrite(r.Context(), journal.OpDeleteCollection, journalPayload{
		CatalogPath:  catalogPath,
		CollectionID: collectionID,
	}, func(ctx context.Context) error {
		return h.backend.DeleteCollection(ctx, collectionID)
	})
	if err != nil {
		writeBackendError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeCollection(r *http.Request) (json.RawMessage, *stac.Collection, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, nil, fmt.Errorf("invalid collection body: %w", err)
	}
	collection := &stac.Collection{}
	if err := json.Unmarshal(raw, collection); err != nil {
		return nil, nil, fmt.Errorf("invalid collection body: %w", err)
	}
	if collection.ID == "" {
		return nil, nil, fmt.Errorf("collection id is required")
	}
	return raw, collection, nil
}

// ListItemsRoot handles GET /collections/{collectionID}/items.
func (h *Handler) ListItemsRoot(w http.ResponseWriter, r *http.Request) {
	h.listItems(w, r, "", chi.URLParam(r, "collectionID"))
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request, catalogPath, collectionID string) {
	req, err := parseSearchParams(r)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	req.Collections = []string{collectionID}
	req.CatalogPath = catalogPath

	if _, err := h.backend.GetCollection(r.Context(), collectionID); err != nil {
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
	doc.Links = append(doc.Links, stac.Link{Rel: stac.RelSelf, Type: stac.MediaTypeGeoJSON, Href: h.requestURL(r, base)})

	paging := stac.PagingLinks{
		BaseLinks: base,
		URL:       h.requestURL(r, base),
		Method:    http.MethodGet,
		Next:      page.Next,
	}
	if next := paging.NextLink(); next != nil {
		doc.Links = append(doc.Links, *next)
	}

	writeJSON(w, http.StatusOK, stac.MediaTypeGeoJSON, doc)
}

// GetItemRoot handles GET /collections/{collectionID}/items/{itemID}.
func (h *Handler) GetItemRoot(w http.ResponseWriter, r *http.Request) {
	h.getItem(w, r, "", chi.URLParam(r, "collectionID"), chi.URLParam(r, "itemID"))
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request, catalogPath, collectionID, itemID string) {
	item, err := h.backend.GetItem(r.Context(), collectionID, itemID)
	if err != nil {
		writeBackendError(w, r, err)
		return
	}
	base := h.baseLinks(r)
	writeJSON(w, http.StatusOK, stac.MediaTypeGeoJSON, h.itemWithLinks(base, catalogPath, *item))
}

func (h *Handler) itemWithLinks(base stac.BaseLinks, catalogPath string, item stac.Item) stac.Item {
	builder := stac.ItemLinks{
		BaseLinks:    base,
		CatalogPath:  catalogPath,
		CollectionID: item.Collection,
		ItemID:       item.ID,
	}
	item.Links = base.Merge(builder.Links(), item.Links)
	return item
}

// CreateItemRoot handles POST /collections/{collectionID}/items. The body
// is either a single Item or a FeatureCollection for bulk ingestion.
func (h *Handler) CreateItemRoot(w http.ResponseWriter, r *http.Request) {
	h.createItem(w, r, "", chi.URLParam(r, "collectionID"))
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request, catalogPath, collectionID string) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeValidationError(w, fmt.Errorf("invalid item body: %w", err))
		return
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		writeValidationError(w, fmt.Errorf("invalid item body: %w", err))
		return
	}

	if probe.Type == "FeatureCollection" {
		h.bulkItems(w, r, collectionID, raw)
		return
	}

	item := &stac.Item{}
	if err := json.Unmarshal(raw, item); err != nil {
		writeValidationError(w, fmt.Errorf("invalid item body: %w", err))
		return
	}
	if item.ID == "" {
		writeValidationError(w, fmt.Errorf("item id is required"))
		return
	}
	if item.Collection != "" && item.Collection != collectionID {
		writeValidationError(w, fmt.Errorf("item collection %q does not match URL %q", item.Collection, collectionID))
		return
	}
	item.Collection = collectionID

	err := h.applyWrite(r.Context(), journal.OpCreateItem, journalPayload{
		CatalogPath:  catalogPath,
		CollectionID: collectionID,
		ItemID:       item.ID,
		Document:     raw,
	}, func(ctx context.Context) error {
		return h.backend.CreateItem(ctx, item)
	})
	if err != nil {
		writeBackendError(w, r, err)
		return
	}

	base := h.baseLinks(r)
	writeJSON(w, http.StatusCreated, stac.MediaTypeGeoJSON, h.itemWithLinks(base, catalogPath, *item))
}

// bulkItems ingests a FeatureCollection in one backend bulk request.
// Bulk loads bypass the journal; partial failures are reported per item.
func (h *Handler) bulkItems(w http.ResponseWriter, r *http.Request, collectionID string, raw json.RawMessage) {
	var body struct {
		Features []stac.Item `json:"features"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		writeValidationError(w, fmt.Errorf("invalid feature collection: %w", err))
		return
	}
	if len(body.Features) == 0 {
		writeValidationError(w, fmt.Errorf("feature collection is empty"))
		return
	}

	result, err := h.backend.BulkItems(r.Context(), collectionID, body.Features)
	if err != nil {
		writeBackendError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stac.MediaTypeJSON, map[string]any{
		"indexed": result.Indexed,
		"errors":  result.Errors,
	})
}

// BulkItemsRoot handles POST /collections/{collectionID}/bulk_items. The
// body carries either an "items" map keyed by item ID (original bulk
// form) or a FeatureCollection "features" array.
func (h *Handler) BulkItemsRoot(w http.ResponseWriter, r *http.Request) {
	h.bulkItemsEndpoint(w, r, chi.URLParam(r, "collectionID"))
}

func (h *Handler) bulkItemsEndpoint(w http.ResponseWriter, r *http.Request, collectionID string) {
	var body struct {
		Items    map[string]stac.Item `json:"items"`
		Features []stac.Item          `json:"features"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeValidationError(w, fmt.Errorf("invalid bulk body: %w", err))
		return
	}

	items := body.Features
	for id, item := range body.Items {
		if item.ID == "" {
			item.ID = id
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		writeValidationError(w, fmt.Errorf("bulk request contains no items"))
		return
	}

	result, err := h.backend.BulkItems(r.Context(), collectionID, items)
	if err != nil {
		writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stac.MediaTypeJSON, map[string]any{
		"indexed": result.Indexed,
		"errors":  result.Errors,
	})
}

// UpdateItemRoot handles PUT /collections/{collectionID}/items/{itemID}.
func (h *Handler) UpdateItemRoot(w http.ResponseWriter, r *http.Request) {
	h.updateItem(w, r, "", chi.URLParam(r, "collectionID"), chi.URLParam(r, "itemID"))
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request, catalogPath, collectionID, itemID string) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeValidationError(w, fmt.Errorf("invalid item body: %w", err))
		return
	}
	item := &stac.Item{}
	if err := json.Unmarshal(raw, item); err != nil {
		writeValidationError(w, fmt.Errorf("invalid item body: %w", err))
		return
	}
	if item.ID != itemID {
		writeValidationError(w, fmt.Errorf("item id %q does not match URL %q", item.ID, itemID))
		return
	}
	item.Collection = collectionID

	err := h.applyWrite(r.Context(), journal.OpUpdateItem, journalPayload{
		CollectionID: collectionID,
		ItemID:       itemID,
		Document:     raw,
	}, func(ctx context.Context) error {
		return h.backend.UpdateItem(ctx, item)
	})
	if err != nil {
		writeBackendError(w, r, err)
		return
	}

	base := h.baseLinks(r)
	writeJSON(w, http.StatusOK, stac.MediaTypeGeoJSON, h.itemWithLinks(base, "", *item))
}

// DeleteItemRoot handles DELETE /collections/{collectionID}/items/{itemID}.
func (h *Handler) DeleteItemRoot(w http.ResponseWriter, r *http.Request) {
	h.deleteItem(w, r, chi.URLParam(r, "collectionID"), chi.URLParam(r, "itemID"))
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request, collectionID, itemID string) {
	err := h.applyWrite(r.Context(), journal.OpDeleteItem, journalPayload{
		CollectionID: collectionID,
		ItemID:       itemID,
	}, func(ctx context.Context) error {
		return h.backend.DeleteItem(ctx, collectionID, itemID)
	})
	if err != nil {
		writeBackendError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
