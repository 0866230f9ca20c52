// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/EO-DataHub/stac-api-server/internal/auth"
	"github.com/EO-DataHub/stac-api-server/internal/config"
	"github.com/EO-DataHub/stac-api-server/internal/extensions"
	"github.com/EO-DataHub/stac-api-server/internal/middleware"
)

// NewRouter assembles the full route tree with the standard middleware
// stack. Write routes are only mounted when transactions are enabled,
// and the auth guard applies to write methods only.
func NewRouter(h *Handler, cfg *config.Config) (chi.Router, error) {
	guard, err := auth.Guard(&cfg.Security)
	if err != nil {
		return nil, fmt.Errorf("auth guard: %w", err)
	}

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.PrometheusMetrics)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)

	if len(cfg.Security.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Security.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	if cfg.RateLimit.Spec != "" {
		count, period, err := config.ParseRateLimit(cfg.RateLimit.Spec)
		if err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
		r.Use(httprate.LimitByIP(count, period))
	}

	r.Use(writeGuard(guard))

	r.Get("/", h.LandingPage)
	r.Get("/conformance", h.Conformance)
	r.Get("/search", h.SearchGET)
	r.Post("/search", h.SearchPOST)

	if h.exts.Has(extensions.Filter) {
		r.Get("/queryables", h.Queryables)
		r.Get("/collections/{collectionID}/queryables", func(w http.ResponseWriter, req *http.Request) {
			h.CollectionQueryables(w, req, chi.URLParam(req, "collectionID"))
		})
	}
	if h.exts.Has(extensions.Aggregation) {
		r.Get("/aggregate", h.AggregateGET)
		r.Post("/aggregate", h.AggregatePOST)
		r.Get("/aggregations", h.Aggregations)
		r.Get("/collections/{collectionID}/aggregate", func(w http.ResponseWriter, req *http.Request) {
			h.CollectionAggregateGET(w, req, chi.URLParam(req, "collectionID"))
		})
		r.Post("/collections/{collectionID}/aggregate", func(w http.ResponseWriter, req *http.Request) {
			h.CollectionAggregatePOST(w, req, chi.URLParam(req, "collectionID"))
		})
		r.Get("/collections/{collectionID}/aggregations", func(w http.ResponseWriter, req *http.Request) {
			h.CollectionAggregations(w, req, chi.URLParam(req, "collectionID"))
		})
	}

	r.Get("/collections", h.ListCollectionsRoot)
	r.Get("/collections/{collectionID}", h.GetCollectionRoot)
	r.Get("/collections/{collectionID}/items", h.ListItemsRoot)
	r.Get("/collections/{collectionID}/items/{itemID}", h.GetItemRoot)

	r.Get("/catalogs", h.ListCatalogsRoot)
	r.Handle("/catalogs/*", http.HandlerFunc(h.CatalogSubtree))

	if h.exts.Has(extensions.Transaction) {
		r.Post("/collections", h.CreateCollectionRoot)
		r.Put("/collections/{collectionID}", h.UpdateCollectionRoot)
		r.Delete("/collections/{collectionID}", h.DeleteCollectionRoot)
		r.Post("/collections/{collectionID}/items", h.CreateItemRoot)
		r.Post("/collections/{collectionID}/bulk_items", h.BulkItemsRoot)
		r.Put("/collections/{collectionID}/items/{itemID}", h.UpdateItemRoot)
		r.Delete("/collections/{collectionID}/items/{itemID}", h.DeleteItemRoot)
		r.Post("/catalogs", h.CreateCatalogRoot)
	}

	r.Get("/healthz", h.Healthz)
	r.Get("/_mgmt/ping", h.Ping)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r, nil
}

// writeGuard applies the auth guard to mutating methods only. POST
// /search and POST /aggregate are reads and stay open.
func writeGuard(guard func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		protected := guard(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isWrite(r) {
				protected.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isWrite(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
	default:
		return false
	}
	if r.Method == http.MethodPost {
		path := strings.TrimSuffix(r.URL.Path, "/")
		if strings.HasSuffix(path, "/search") || strings.HasSuffix(path, "/aggregate") || path == "/search" || path == "/aggregate" {
			return false
		}
	}
	return true
}
