// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

// Package metrics defines the Prometheus collectors exposed on /metrics.
// Collectors are registered at init time via promauto; handlers and the
// search layer record into them directly.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP surface.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stac_http_requests_total",
		Help: "HTTP requests by method, route pattern and status code",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stac_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "route"})

	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stac_http_requests_in_flight",
		Help: "HTTP requests currently being served",
	})
)

// Search backend.
var (
	BackendOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stac_backend_operations_total",
		Help: "Search backend operations by name and outcome",
	}, []string{"operation", "outcome"})

	BackendOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stac_backend_operation_duration_seconds",
		Help:    "Search backend operation latency",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"operation"})

	BulkItemsIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stac_bulk_items_indexed_total",
		Help: "Items written through the bulk endpoint",
	})
)

// Circuit breaker guarding the search backend.
var (
	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "stac_breaker_state",
		Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
	}, []string{"name"})

	BreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stac_breaker_transitions_total",
		Help: "Circuit breaker state transitions",
	}, []string{"name", "from", "to"})

	BreakerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stac_breaker_requests_total",
		Help: "Requests through the circuit breaker by outcome",
	}, []string{"name", "outcome"})
)

// Transaction journal.
var (
	JournalPendingEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stac_journal_pending_entries",
		Help: "Unconfirmed transaction journal entries",
	})

	JournalWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stac_journal_writes_total",
		Help: "Entries written to the transaction journal",
	})

	JournalReplays = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stac_journal_replays_total",
		Help: "Journal entries replayed against the backend on startup",
	})
)
