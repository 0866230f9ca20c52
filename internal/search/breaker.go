// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/EO-DataHub/stac-api-server/internal/logging"
	"github.com/EO-DataHub/stac-api-server/internal/metrics"
	"github.com/EO-DataHub/stac-api-server/internal/stac"
)

// BreakerBackend decorates a Backend with a circuit breaker so a
// struggling cluster sheds load instead of queueing requests until the
// server falls over. Not-found and conflict outcomes are expected
// responses, not cluster failures, and must not trip the breaker; they
// bypass the failure accounting.
type BreakerBackend struct {
	next Backend
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// WithBreaker wraps a backend. The breaker opens after a 60% failure
// rate over at least 10 requests, waits 30 seconds before probing, and
// admits 3 probe requests half-open.
func WithBreaker(next Backend) *BreakerBackend {
	name := "search-engine"
	metrics.BreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", breakerStateString(from)).
				Str("to", breakerStateString(to)).
				Msg("Circuit breaker state transition")
			metrics.BreakerState.WithLabelValues(name).Set(breakerStateFloat(to))
			metrics.BreakerTransitions.WithLabelValues(name, breakerStateString(from), breakerStateString(to)).Inc()
		},

		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrBadToken)
		},
	})

	return &BreakerBackend{next: next, cb: cb, name: name}
}

func (b *BreakerBackend) execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.BreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("Search request rejected by circuit breaker")
		} else {
			metrics.BreakerRequests.WithLabelValues(b.name, "failure").Inc()
		}
		return nil, err
	}
	metrics.BreakerRequests.WithLabelValues(b.name, "success").Inc()
	return result, nil
}

func castResult[T any](result any, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func breakerStateFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func breakerStateString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func (b *BreakerBackend) Ping(ctx context.Context) error {
	_, err := b.execute(func() (any, error) { return nil, b.next.Ping(ctx) })
	return err
}

// EnsureIndices runs once at startup, outside the breaker's remit.
func (b *BreakerBackend) EnsureIndices(ctx context.Context) error {
	return b.next.EnsureIndices(ctx)
}

func (b *BreakerBackend) ListCatalogs(ctx context.Context, catalogPath string, limit int, token string) (*CatalogPage, error) {
	return castResult[CatalogPage](b.execute(func() (any, error) {
		return b.next.ListCatalogs(ctx, catalogPath, limit, token)
	}))
}

func (b *BreakerBackend) GetCatalog(ctx context.Context, catalogPath, catalogID string) (*stac.Catalog, error) {
	return castResult[stac.Catalog](b.execute(func() (any, error) {
		return b.next.GetCatalog(ctx, catalogPath, catalogID)
	}))
}

func (b *BreakerBackend) CreateCatalog(ctx context.Context, catalog *stac.Catalog) error {
	_, err := b.execute(func() (any, error) { return nil, b.next.CreateCatalog(ctx, catalog) })
	return err
}

func (b *BreakerBackend) UpdateCatalog(ctx context.Context, catalog *stac.Catalog) error {
	_, err := b.execute(func() (any, error) { return nil, b.next.UpdateCatalog(ctx, catalog) })
	return err
}

func (b *BreakerBackend) DeleteCatalog(ctx context.Context, catalogPath, catalogID string) error {
	_, err := b.execute(func() (any, error) { return nil, b.next.DeleteCatalog(ctx, catalogPath, catalogID) })
	return err
}

func (b *BreakerBackend) ListCollections(ctx context.Context, catalogPath string, limit int, token string) (*CollectionPage, error) {
	return castResult[CollectionPage](b.execute(func() (any, error) {
		return b.next.ListCollections(ctx, catalogPath, limit, token)
	}))
}

func (b *BreakerBackend) SearchCollections(ctx context.Context, req *stac.SearchRequest) (*CollectionPage, error) {
	return castResult[CollectionPage](b.execute(func() (any, error) {
		return b.next.SearchCollections(ctx, req)
	}))
}

func (b *BreakerBackend) GetCollection(ctx context.Context, collectionID string) (*stac.Collection, error) {
	return castResult[stac.Collection](b.execute(func() (any, error) {
		return b.next.GetCollection(ctx, collectionID)
	}))
}

func (b *BreakerBackend) CreateCollection(ctx context.Context, collection *stac.Collection) error {
	_, err := b.execute(func() (any, error) { return nil, b.next.CreateCollection(ctx, collection) })
	return err
}

func (b *BreakerBackend) UpdateCollection(ctx context.Context, collection *stac.Collection) error {
	_, err := b.execute(func() (any, error) { return nil, b.next.UpdateCollection(ctx, collection) })
	return err
}

func (b *BreakerBackend) DeleteCollection(ctx context.Context, collectionID string) error {
	_, err := b.execute(func() (any, error) { return nil, b.next.DeleteCollection(ctx, collectionID) })
	return err
}

func (b *BreakerBackend) SearchItems(ctx context.Context, req *stac.SearchRequest) (*ItemPage, error) {
	return castResult[ItemPage](b.execute(func() (any, error) {
		return b.next.SearchItems(ctx, req)
	}))
}

func (b *BreakerBackend) GetItem(ctx context.Context, collectionID, itemID string) (*stac.Item, error) {
	return castResult[stac.Item](b.execute(func() (any, error) {
		return b.next.GetItem(ctx, collectionID, itemID)
	}))
}

func (b *BreakerBackend) CreateItem(ctx context.Context, item *stac.Item) error {
	_, err := b.execute(func() (any, error) { return nil, b.next.CreateItem(ctx, item) })
	return err
}

func (b *BreakerBackend) UpdateItem(ctx context.Context, item *stac.Item) error {
	_, err := b.execute(func() (any, error) { return nil, b.next.UpdateItem(ctx, item) })
	return err
}

func (b *BreakerBackend) DeleteItem(ctx context.Context, collectionID, itemID string) error {
	_, err := b.execute(func() (any, error) { return nil, b.next.DeleteItem(ctx, collectionID, itemID) })
	return err
}

func (b *BreakerBackend) BulkItems(ctx context.Context, collectionID string, items []stac.Item) (*BulkResult, error) {
	return castResult[BulkResult](b.execute(func() (any, error) {
		return b.next.BulkItems(ctx, collectionID, items)
	}))
}

func (b *BreakerBackend) Aggregate(ctx context.Context, req *stac.SearchRequest, aggregations []string) (map[string]any, error) {
	result, err := b.execute(func() (any, error) {
		return b.next.Aggregate(ctx, req, aggregations)
	})
	if err != nil {
		return nil, err
	}
	typed, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}
