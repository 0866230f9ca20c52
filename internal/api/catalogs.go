// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/EO-DataHub/stac-api-server/internal/extensions"
	"github.com/EO-DataHub/stac-api-server/internal/journal"
	"github.com/EO-DataHub/stac-api-server/internal/logging"
	"github.com/EO-DataHub/stac-api-server/internal/stac"
)

// ListCatalogsRoot handles GET /catalogs.
func (h *Handler) ListCatalogsRoot(w http.ResponseWriter, r *http.Request) {
	h.listCatalogs(w, r, "")
}

// CreateCatalogRoot handles POST /catalogs.
func (h *Handler) CreateCatalogRoot(w http.ResponseWriter, r *http.Request) {
	h.createCatalog(w, r, "")
}

// CatalogSubtree dispatches every /catalogs/* request. Catalog nesting is
// URL-interleaved, so the remainder of the path has to be parsed rather
// than matched by fixed route segments.
func (h *Handler) CatalogSubtree(w http.ResponseWriter, r *http.Request) {
	ref, err := parseCatalogTail(chi.URLParam(r, "*"))
	if err != nil {
		writeValidationError(w, err)
		return
	}
	if ref.ID == "" {
		writeError(w, http.StatusNotFound, "NotFoundError", "no catalog in path")
		return
	}

	rest := ref.Rest
	switch {
	case len(rest) == 0:
		h.catalogResource(w, r, ref)
	case rest[0] == "catalogs" && len(rest) == 1:
		switch r.Method {
		case http.MethodGet:
			h.listCatalogs(w, r, ref.FullPath())
		case http.MethodPost:
			h.requireTransactions(w, r, func() { h.createCatalog(w, r, ref.FullPath()) })
		default:
			writeMethodNotAllowed(w)
		}
	case rest[0] == "collections":
		h.catalogCollections(w, r, ref, rest[1:])
	case rest[0] == "search" && len(rest) == 1:
		switch r.Method {
		case http.MethodGet:
			h.searchGET(w, r, ref.FullPath())
		case http.MethodPost:
			h.searchPOST(w, r, ref.FullPath())
		default:
			writeMethodNotAllowed(w)
		}
	case rest[0] == "queryables" && len(rest) == 1 && r.Method == http.MethodGet:
		h.Queryables(w, r)
	case rest[0] == "aggregate" && len(rest) == 1:
		switch r.Method {
		case http.MethodGet:
			h.aggregateGET(w, r, ref.FullPath())
		case http.MethodPost:
			h.aggregatePOST(w, r, ref.FullPath())
		default:
			writeMethodNotAllowed(w)
		}
	case rest[0] == "aggregations" && len(rest) == 1 && r.Method == http.MethodGet:
		h.Aggregations(w, r)
	default:
		writeError(w, http.StatusNotFound, "NotFoundError", fmt.Sprintf("no resource at %q", r.URL.Path))
	}
}

// catalogResource serves GET/PUT/DELETE on one catalog.
func (h *Handler) catalogResource(w http.ResponseWriter, r *http.Request, ref catalogRef) {
	switch r.Method {
	case http.MethodGet:
		h.getCatalog(w, r, ref)
	case http.MethodPut:
		h.requireTransactions(w, r, func() { h.updateCatalog(w, r, ref) })
	case http.MethodDelete:
		h.requireTransactions(w, r, func() { h.deleteCatalog(w, r, ref) })
	default:
		writeMethodNotAllowed(w)
	}
}

// catalogCollections routes collection and item resources nested under a
// catalog. rest starts after the "collections" segment.
func (h *Handler) catalogCollections(w http.ResponseWriter, r *http.Request, ref catalogRef, rest []string) {
	path := ref.FullPath()

	switch {
	case len(rest) == 0:
		switch r.Method {
		case http.MethodGet:
			h.listCollections(w, r, path)
		case http.MethodPost:
			h.requireTransactions(w, r, func() { h.createCollection(w, r, path) })
		default:
			writeMethodNotAllowed(w)
		}
	case len(rest) == 1:
		collectionID := rest[0]
		switch r.Method {
		case http.MethodGet:
			h.getCollection(w, r, path, collectionID)
		case http.MethodPut:
			h.requireTransactions(w, r, func() { h.updateCollection(w, r, path, collectionID) })
		case http.MethodDelete:
			h.requireTransactions(w, r, func() { h.deleteCollection(w, r, path, collectionID) })
		default:
			writeMethodNotAllowed(w)
		}
	case len(rest) == 2 && rest[1] == "queryables" && r.Method == http.MethodGet:
		h.CollectionQueryables(w, r, rest[0])
	case len(rest) == 2 && rest[1] == "bulk_items" && r.Method == http.MethodPost:
		h.requireTransactions(w, r, func() { h.bulkItemsEndpoint(w, r, rest[0]) })
	case len(rest) == 2 && rest[1] == "items":
		collectionID := rest[0]
		switch r.Method {
		case http.MethodGet:
			h.listItems(w, r, path, collectionID)
		case http.MethodPost:
			h.requireTransactions(w, r, func() { h.createItem(w, r, path, collectionID) })
		default:
			writeMethodNotAllowed(w)
		}
	case len(rest) == 3 && rest[1] == "items":
		collectionID, itemID := rest[0], rest[2]
		switch r.Method {
		case http.MethodGet:
			h.getItem(w, r, path, collectionID, itemID)
		case http.MethodPut:
			h.requireTransactions(w, r, func() { h.updateItem(w, r, path, collectionID, itemID) })
		case http.MethodDelete:
			h.requireTransactions(w, r, func() { h.deleteItem(w, r, collectionID, itemID) })
		default:
			writeMethodNotAllowed(w)
		}
	default:
		writeError(w, http.StatusNotFound, "NotFoundError", fmt.Sprintf("no resource at %q", r.URL.Path))
	}
}

func (h *Handler) requireTransactions(w http.ResponseWriter, r *http.Request, next func()) {
	if !h.exts.Has(extensions.Transaction) {
		writeMethodNotAllowed(w)
		return
	}
	next()
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed on this resource")
}

func (h *Handler) listCatalogs(w http.ResponseWriter, r *http.Request, catalogPath string) {
	params, err := parsePageParams(r)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	page, err := h.backend.ListCatalogs(r.Context(), catalogPath, params.limit, params.token)
	if err != nil {
		writeBackendError(w, r, err)
		return
	}

	base := h.baseLinks(r)
	catalogs := make([]stac.Catalog, 0, len(page.Catalogs))
	for _, catalog := range page.Catalogs {
		catalogs = append(catalogs, h.catalogWithLinks(base, catalogPath, catalog))
	}

	links := []stac.Link{
		base.RootLink(),
		{Rel: stac.RelSelf, Type: stac.MediaTypeJSON, Href: h.requestURL(r, base)},
	}
	paging := stac.PagingLinks{
		BaseLinks: base,
		URL:       h.requestURL(r, base),
		Method:    http.MethodGet,
		Next:      page.Next,
	}
	if next := paging.NextLink(); next != nil {
		links = append(links, *next)
	}

	writeJSON(w, http.StatusOK, stac.MediaTypeJSON, map[string]any{
		"catalogs": catalogs,
		"links":    links,
		"context": stac.Context{
			Returned: len(catalogs),
			Limit:    params.limit,
			Matched:  page.Matched,
		},
	})
}

func (h *Handler) catalogWithLinks(base stac.BaseLinks, catalogPath string, catalog stac.Catalog) stac.Catalog {
	builder := stac.CatalogLinks{
		BaseLinks:   base,
		CatalogPath: catalogPath,
		CatalogID:   catalog.ID,
		Extensions:  h.exts.LinkNames(),
	}
	catalog.Links = base.Merge(builder.Links(), catalog.Links)
	return catalog
}

func (h *Handler) getCatalog(w http.ResponseWriter, r *http.Request, ref catalogRef) {
	catalog, err := h.backend.GetCatalog(r.Context(), ref.Path, ref.ID)
	if err != nil {
		writeBackendError(w, r, err)
		return
	}

	base := h.baseLinks(r)
	doc := h.catalogWithLinks(base, ref.Path, *catalog)

	// Child links are best effort; the catalog document itself must stay
	// available while the engine recovers.
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	full := ref.FullPath()
	if page, err := h.backend.ListCatalogs(ctx, full, 100, ""); err == nil {
		for _, child := range page.Catalogs {
			doc.Links = append(doc.Links, stac.Link{
				Rel:   stac.RelChild,
				Type:  stac.MediaTypeJSON,
				Title: child.Title,
				Href:  base.Resolve("catalogs/" + full + "/catalogs/" + child.ID),
			})
		}
	} else {
		logging.Ctx(r.Context()).Warn().Err(err).Str("catalog", full).Msg("Skipping catalog child links")
	}
	if page, err := h.backend.ListCollections(ctx, full, 100, ""); err == nil {
		for _, child := range page.Collections {
			doc.Links = append(doc.Links, stac.Link{
				Rel:   stac.RelChild,
				Type:  stac.MediaTypeJSON,
				Title: child.Title,
				Href:  base.Resolve("catalogs/" + full + "/collections/" + child.ID),
			})
		}
	} else {
		logging.Ctx(r.Context()).Warn().Err(err).Str("catalog", full).Msg("Skipping collection child links")
	}

	writeJSON(w, http.StatusOK, stac.MediaTypeJSON, doc)
}

func (h *Handler) createCatalog(w http.ResponseWriter, r *http.Request, catalogPath string) {
	raw, catalog, err := decodeCatalog(r)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	catalog.CatalogPath = catalogPath

	err = h.applyWrite(r.Context(), journal.OpCreateCatalog, journalPayload{
		CatalogPath: catalogPath,
		CatalogID:   catalog.ID,
		Document:    raw,
	}, func(ctx context.Context) error {
		return h.backend.CreateCatalog(ctx, catalog)
	})
	if err != nil {
		writeBackendError(w, r, err)
		return
	}

	base := h.baseLinks(r)
	writeJSON(w, http.StatusCreated, stac.MediaTypeJSON, h.catalogWithLinks(base, catalogPath, *catalog))
}

func (h *Handler) updateCatalog(w http.ResponseWriter, r *http.Request, ref catalogRef) {
	raw, catalog, err := decodeCatalog(r)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	if catalog.ID != ref.ID {
		writeValidationError(w, fmt.Errorf("catalog id %q does not match URL %q", catalog.ID, ref.ID))
		return
	}
	catalog.CatalogPath = ref.Path

	err = h.applyWrite(r.Context(), journal.OpUpdateCatalog, journalPayload{
		CatalogPath: ref.Path,
		CatalogID:   ref.ID,
		Document:    raw,
	}, func(ctx context.Context) error {
		return h.backend.UpdateCatalog(ctx, catalog)
	})
	if err != nil {
		writeBackendError(w, r, err)
		return
	}

	base := h.baseLinks(r)
	writeJSON(w, http.StatusOK, stac.MediaTypeJSON, h.catalogWithLinks(base, ref.Path, *catalog))
}

func (h *Handler) deleteCatalog(w http.ResponseWriter, r *http.Request, ref catalogRef) {
	err := h.applyWrite(r.Context(), journal.OpDeleteCatalog, journalPayload{
		CatalogPath: ref.Path,
		CatalogID:   ref.ID,
	}, func(ctx context.Context) error {
		return h.backend.DeleteCatalog(ctx, ref.Path, ref.ID)
	})
	if err != nil {
		writeBackendError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeCatalog(r *http.Request) (json.RawMessage, *stac.Catalog, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, nil, fmt.Errorf("invalid catalog body: %w", err)
	}
	catalog := &stac.Catalog{}
	if err := json.Unmarshal(raw, catalog); err != nil {
		return nil, nil, fmt.Errorf("invalid catalog body: %w", err)
	}
	if catalog.ID == "" {
		return nil, nil, fmt.Errorf("catalog id is required")
	}
	return raw, catalog, nil
}
