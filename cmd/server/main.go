// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

// Command server runs the STAC API over an Elasticsearch or OpenSearch
// cluster. Configuration comes from an optional YAML file plus
// environment variables; see internal/config for the full surface.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EO-DataHub/stac-api-server/internal/api"
	"github.com/EO-DataHub/stac-api-server/internal/config"
	"github.com/EO-DataHub/stac-api-server/internal/extensions"
	"github.com/EO-DataHub/stac-api-server/internal/journal"
	"github.com/EO-DataHub/stac-api-server/internal/logging"
	"github.com/EO-DataHub/stac-api-server/internal/search"
	"github.com/EO-DataHub/stac-api-server/internal/supervisor"
)

const startupTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().
		Str("backend", cfg.Search.Backend).
		Str("address", cfg.Search.Address()).
		Bool("transactions", cfg.Transactions.Enabled).
		Msg("Starting STAC API server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := search.New(&cfg.Search, cfg.API.MaxPageSize)
	if err != nil {
		return fmt.Errorf("search backend: %w", err)
	}
	backend := search.WithBreaker(store)

	startupCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	if err := backend.Ping(startupCtx); err != nil {
		// The engine may still be coming up; the breaker and health checks
		// handle it from here.
		logging.Warn().Err(err).Msg("Search engine not reachable at startup")
	}
	if cfg.Transactions.Enabled {
		if err := backend.EnsureIndices(startupCtx); err != nil {
			return fmt.Errorf("ensure indices: %w", err)
		}
	}

	var txJournal *journal.Journal
	if cfg.Journal.Enabled && cfg.Transactions.Enabled {
		txJournal, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer func() {
			if err := txJournal.Close(); err != nil {
				logging.Warn().Err(err).Msg("Journal close failed")
			}
		}()

		replayed, err := txJournal.Replay(startupCtx, api.ApplyJournalEntry(backend))
		if err != nil {
			logging.Warn().Err(err).Msg("Journal replay incomplete")
		}
		if replayed > 0 {
			logging.Info().Int("entries", replayed).Msg("Replayed journaled writes")
		}
	}

	exts := extensions.DefaultSet(cfg.Transactions.Enabled)
	handler := api.NewHandler(backend, txJournal, exts, cfg)
	router, err := api.NewRouter(handler, cfg)
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * time.Minute,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(supervisor.NewHTTPService(server, 15*time.Second))
	if txJournal != nil {
		tree.AddDataService(supervisor.NewJournalService(txJournal, time.Hour, 24*time.Hour))
	}

	logging.Info().Str("addr", server.Addr).Msg("Listening")
	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if unstopped, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop before timeout")
		}
	}
	logging.Info().Msg("Shutdown complete")
	return nil
}
