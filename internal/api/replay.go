// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/EO-DataHub/stac-api-server/internal/journal"
	"github.com/EO-DataHub/stac-api-server/internal/logging"
	"github.com/EO-DataHub/stac-api-server/internal/search"
	"github.com/EO-DataHub/stac-api-server/internal/stac"
)

// journalPayload is the durable record of a single write. Document holds
// the request body for create and update operations.
type journalPayload struct {
	CatalogPath  string          `json:"catalog_path,omitempty"`
	CatalogID    string          `json:"catalog_id,omitempty"`
	CollectionID string          `json:"collection_id,omitempty"`
	ItemID       string          `json:"item_id,omitempty"`
	Document     json.RawMessage `json:"document,omitempty"`
}

// applyWrite journals a write, applies it against the backend, and
// settles the journal entry. Terminal client errors (not found,
// conflict) are confirmed so they are not replayed; backend failures
// stay pending for the startup replay.
func (h *Handler) applyWrite(ctx context.Context, op journal.Op, payload journalPayload, apply func(context.Context) error) error {
	if h.journal == nil {
		return apply(ctx)
	}

	entryID, err := h.journal.Write(ctx, op, payload)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("op", string(op)).Msg("Journal write failed, applying without journal")
		return apply(ctx)
	}

	applyErr := apply(ctx)
	switch {
	case applyErr == nil,
		errors.Is(applyErr, search.ErrNotFound),
		errors.Is(applyErr, search.ErrConflict),
		errors.Is(applyErr, search.ErrBadToken):
		if err := h.journal.Confirm(ctx, entryID); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("entry_id", entryID).Msg("Journal confirm failed")
		}
	default:
		if err := h.journal.Fail(ctx, entryID, applyErr); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("entry_id", entryID).Msg("Journal fail-mark failed")
		}
	}
	return applyErr
}

// ApplyJournalEntry re-applies a journaled write against the backend.
// It is the apply function handed to Journal.Replay at startup. Not
// found and conflict outcomes count as settled: the write either
// already landed or its target is gone.
func ApplyJournalEntry(backend search.Backend) func(ctx context.Context, entry *journal.Entry) error {
	return func(ctx context.Context, entry *journal.Entry) error {
		var payload journalPayload
		if err := entry.UnmarshalPayload(&payload); err != nil {
			return fmt.Errorf("decode journal payload: %w", err)
		}

		err := applyPayload(ctx, backend, entry.Op, payload)
		if errors.Is(err, search.ErrNotFound) || errors.Is(err, search.ErrConflict) {
			logging.Ctx(ctx).Info().
				Str("entry_id", entry.ID).
				Str("op", string(entry.Op)).
				Err(err).
				Msg("Journal entry already settled")
			return nil
		}
		return err
	}
}

func applyPayload(ctx context.Context, backend search.Backend, op journal.Op, payload journalPayload) error {
	switch op {
	case journal.OpCreateItem, journal.OpUpdateItem:
		var item stac.Item
		if err := json.Unmarshal(payload.Document, &item); err != nil {
			return fmt.Errorf("decode item payload: %w", err)
		}
		item.Collection = payload.CollectionID
		if op == journal.OpCreateItem {
			return backend.CreateItem(ctx, &item)
		}
		return backend.UpdateItem(ctx, &item)
	case journal.OpDeleteItem:
		return backend.DeleteItem(ctx, payload.CollectionID, payload.ItemID)
	case journal.OpCreateCollection, journal.OpUpdateCollection:
		var collection stac.Collection
		if err := json.Unmarshal(payload.Document, &collection); err != nil {
			return fmt.Errorf("decode collection payload: %w", err)
		}
		collection.CatalogPath = payload.CatalogPath
		if op == journal.OpCreateCollection {
			return backend.CreateCollection(ctx, &collection)
		}
		return backend.UpdateCollection(ctx, &collection)
	case journal.OpDeleteCollection:
		return backend.DeleteCollection(ctx, payload.CollectionID)
	case journal.OpCreateCatalog, journal.OpUpdateCatalog:
		var catalog stac.Catalog
		if err := json.Unmarshal(payload.Document, &catalog); err != nil {
			return fmt.Errorf("decode catalog payload: %w", err)
		}
		catalog.CatalogPath = payload.CatalogPath
		if op == journal.OpCreateCatalog {
			return backend.CreateCatalog(ctx, &catalog)
		}
		return backend.UpdateCatalog(ctx, &catalog)
	case journal.OpDeleteCatalog:
		return backend.DeleteCatalog(ctx, payload.CatalogPath, payload.CatalogID)
	default:
		return fmt.Errorf("unknown journal op %q", op)
	}
}
