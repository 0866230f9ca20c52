// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

// Package api implements the HTTP surface: the landing page, conformance,
// catalog and collection resources, item search and the transaction
// endpoints, wired onto a chi router.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/EO-DataHub/stac-api-server/internal/config"
	"github.com/EO-DataHub/stac-api-server/internal/cql2"
	"github.com/EO-DataHub/stac-api-server/internal/extensions"
	"github.com/EO-DataHub/stac-api-server/internal/journal"
	"github.com/EO-DataHub/stac-api-server/internal/logging"
	"github.com/EO-DataHub/stac-api-server/internal/search"
	"github.com/EO-DataHub/stac-api-server/internal/stac"
)

// landingID identifies the root catalog on the landing page.
const landingID = "stac-api"

// Handler carries the dependencies of every endpoint.
type Handler struct {
	backend    search.Backend
	journal    *journal.Journal
	exts       extensions.Set
	cfg        *config.Config
	queryables cql2.Queryables
}

// NewHandler wires the endpoint dependencies. The journal may be nil when
// transaction journaling is disabled.
func NewHandler(backend search.Backend, txJournal *journal.Journal, exts extensions.Set, cfg *config.Config) *Handler {
	return &Handler{
		backend:    backend,
		journal:    txJournal,
		exts:       exts,
		cfg:        cfg,
		queryables: cql2.DefaultQueryables(),
	}
}

// baseLinks derives the absolute base URL for link generation from the
// request, honoring proxy forwarding headers and the configured root path.
func (h *Handler) baseLinks(r *http.Request) stac.BaseLinks {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	host := r.Host
	if forwarded := r.Header.Get("X-Forwarded-Host"); forwarded != "" {
		host = forwarded
	}
	return stac.NewBaseLinks(scheme + "://" + host + h.cfg.API.RootPath)
}

// requestURL reconstructs the full request URL for paging links.
func (h *Handler) requestURL(r *http.Request, base stac.BaseLinks) string {
	return base.Resolve(r.URL.RequestURI()[1:])
}

// LandingPage serves the root catalog document.
func (h *Handler) LandingPage(w http.ResponseWriter, r *http.Request) {
	base := h.baseLinks(r)

	links := []stac.Link{
		base.SelfLink(),
		base.RootLink(),
		{Rel: stac.RelData, Type: stac.MediaTypeJSON, Href: base.Resolve("collections")},
		{Rel: stac.RelCollections, Type: stac.MediaTypeJSON, Href: base.Resolve("collections")},
		{Rel: stac.RelCatalogs, Type: stac.MediaTypeJSON, Href: base.Resolve("catalogs")},
		{
			Rel:   stac.RelConformance,
			Type:  stac.MediaTypeJSON,
			Title: "STAC/WFS3 conformance classes implemented by this server",
			Href:  base.Resolve("conformance"),
		},
		{Rel: stac.RelSearch, Type: stac.MediaTypeGeoJSON, Title: "STAC search", Href: base.Resolve("search"), Method: "GET"},
		{Rel: stac.RelSearch, Type: stac.MediaTypeGeoJSON, Title: "STAC search", Href: base.Resolve("search"), Method: "POST"},
	}
	if h.exts.Has(extensions.Filter) {
		links = append(links, stac.Link{Rel: stac.RelQueryables, Type: stac.MediaTypeJSON, Href: base.Resolve("queryables")})
	}
	if h.exts.Has(extensions.Aggregation) {
		links = append(links,
			stac.Link{Rel: stac.RelAggregate, Type: stac.MediaTypeJSON, Href: base.Resolve("aggregate")},
			stac.Link{Rel: stac.RelAggregations, Type: stac.MediaTypeJSON, Href: base.Resolve("aggregations")},
		)
	}
	if h.cfg.API.OpenAPIURL != "" {
		links = append(links, stac.Link{
			Rel:  stac.RelServiceDesc,
			Type: stac.MediaTypeOpenAPI,
			Href: base.Resolve(h.cfg.API.OpenAPIURL),
		})
	}

	// Child links for root-level catalogs; the landing page stays up even
	// if the engine is briefly unreachable.
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if page, err := h.backend.ListCatalogs(ctx, "", 100, ""); err == nil {
		for _, child := range page.Catalogs {
			links = append(links, stac.Link{
				Rel:   stac.RelChild,
				Type:  stac.MediaTypeJSON,
				Title: child.Title,
				Href:  base.Resolve("catalogs/" + child.ID),
			})
		}
	} else {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Skipping catalog child links on landing page")
	}

	writeJSON(w, http.StatusOK, stac.MediaTypeJSON, stac.Catalog{
		Type:        "Catalog",
		ID:          landingID,
		StacVersion: stac.Version,
		Title:       h.cfg.API.Title,
		Description: h.cfg.API.Description,
		ConformsTo:  h.exts.ConformanceClasses(),
		Links:       links,
	})
}

// Conformance serves the conformance class listing.
func (h *Handler) Conformance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stac.MediaTypeJSON, map[string]any{
		"conformsTo": h.exts.ConformanceClasses(),
	})
}

// Healthz reports liveness of the server and its search engine.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.backend.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, stac.MediaTypeJSON, map[string]string{
			"status": "degraded",
			"reason": "search backend unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, stac.MediaTypeJSON, map[string]string{"status": "ok"})
}

// Ping answers the management ping used by the original deployment's
// load balancer checks.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stac.MediaTypeJSON, map[string]string{"message": "PONG"})
}
