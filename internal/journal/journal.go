// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

// Package journal provides a durable write-ahead journal for transaction
// endpoints. Each mutation is persisted to BadgerDB before it is applied
// to the search engine, so writes accepted by the API survive an engine
// outage or a process crash and are replayed on startup.
package journal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/EO-DataHub/stac-api-server/internal/logging"
	"github.com/EO-DataHub/stac-api-server/internal/metrics"
)

// Op identifies the mutation recorded in an entry.
type Op string

// Journaled operations.
const (
	OpCreateItem       Op = "create_item"
	OpUpdateItem       Op = "update_item"
	OpDeleteItem       Op = "delete_item"
	OpCreateCollection Op = "create_collection"
	OpUpdateCollection Op = "update_collection"
	OpDeleteCollection Op = "delete_collection"
	OpCreateCatalog    Op = "create_catalog"
	OpUpdateCatalog    Op = "update_catalog"
	OpDeleteCatalog    Op = "delete_catalog"
)

var (
	ErrClosed        = errors.New("journal is closed")
	ErrEntryNotFound = errors.New("journal entry not found")
)

// Key prefixes separate unconfirmed entries from confirmed ones awaiting
// garbage collection.
const (
	prefixPending   = "pending:"
	prefixConfirmed = "confirmed:"
)

// Entry is a single journaled mutation.
type Entry struct {
	ID          string          `json:"id"`
	Op          Op              `json:"op"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	Attempts    int             `json:"attempts"`
	LastError   string          `json:"last_error,omitempty"`
	Confirmed   bool            `json:"confirmed"`
	ConfirmedAt *time.Time      `json:"confirmed_at,omitempty"`
}

// UnmarshalPayload decodes the payload into the given value.
func (e *Entry) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Stats reports journal counters for monitoring.
type Stats struct {
	PendingCount  int64
	TotalWrites   int64
	TotalConfirms int64
}

// Journal is the BadgerDB-backed implementation.
type Journal struct {
	db *badger.DB

	totalWrites   atomic.Int64
	totalConfirms atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the journal at the given path. SyncWrites is on:
// an entry acknowledged to a client must survive power loss.
func Open(path string) (*Journal, error) {
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = true
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}

	j := &Journal{db: db}
	logging.Info().Str("path", path).Msg("Transaction journal opened")

	pending, err := j.Pending(context.Background())
	if err == nil {
		metrics.JournalPendingEntries.Set(float64(len(pending)))
	}
	return j, nil
}

// Write persists a mutation before it is applied to the engine. Returns
// the entry id for later confirmation.
func (j *Journal) Write(ctx context.Context, op Op, payload any) (string, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return "", ErrClosed
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode journal payload: %w", err)
	}

	entry := Entry{
		ID:        uuid.NewString(),
		Op:        op,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}
	value, err := json.Marshal(&entry)
	if err != nil {
		return "", fmt.Errorf("encode journal entry: %w", err)
	}

	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixPending+entry.ID), value)
	})
	if err != nil {
		return "", fmt.Errorf("write journal entry: %w", err)
	}

	j.totalWrites.Add(1)
	metrics.JournalWrites.Inc()
	metrics.JournalPendingEntries.Inc()
	return entry.ID, nil
}

// Confirm marks an entry as applied. The entry moves to the confirmed
// keyspace and is dropped by the next garbage collection pass.
func (j *Journal) Confirm(ctx context.Context, entryID string) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrClosed
	}

	err := j.db.Update(func(txn *badger.Txn) error {
		pendingKey := []byte(prefixPending + entryID)
		item, err := txn.Get(pendingKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrEntryNotFound
		}
		if err != nil {
			return err
		}

		var entry Entry
		if err := item.Value(func(value []byte) error {
			return json.Unmarshal(value, &entry)
		}); err != nil {
			return err
		}

		now := time.Now().UTC()
		entry.Confirmed = true
		entry.ConfirmedAt = &now
		value, err := json.Marshal(&entry)
		if err != nil {
			return err
		}

		if err := txn.Set([]byte(prefixConfirmed+entryID), value); err != nil {
			return err
		}
		return txn.Delete(pendingKey)
	})
	if err != nil {
		return err
	}

	j.totalConfirms.Add(1)
	metrics.JournalPendingEntries.Dec()
	return nil
}

// Fail records a failed application attempt on a pending entry.
func (j *Journal) Fail(ctx context.Context, entryID string, cause error) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrClosed
	}

	return j.db.Update(func(txn *badger.Txn) error {
		key := []byte(prefixPending + entryID)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrEntryNotFound
		}
		if err != nil {
			return err
		}

		var entry Entry
		if err := item.Value(func(value []byte) error {
			return json.Unmarshal(value, &entry)
		}); err != nil {
			return err
		}

		entry.Attempts++
		if cause != nil {
			entry.LastError = cause.Error()
		}
		value, err := json.Marshal(&entry)
		if err != nil {
			return err
		}
		return txn.Set(key, value)
	})
}

// Pending returns unconfirmed entries in insertion-time order.
func (j *Journal) Pending(ctx context.Context) ([]*Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrClosed
	}

	var entries []*Entry
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixPending)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var entry Entry
			if err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &entry)
			}); err != nil {
				return err
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan pending entries: %w", err)
	}

	sortEntriesByCreation(entries)
	return entries, nil
}

// Replay applies every pending entry through the given function,
// confirming successes and recording failures for the next pass.
// Returns the number of entries applied.
func (j *Journal) Replay(ctx context.Context, apply func(ctx context.Context, entry *Entry) error) (int, error) {
	pending, err := j.Pending(ctx)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, entry := range pending {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		if err := apply(ctx, entry); err != nil {
			logging.Warn().
				Str("entry_id", entry.ID).
				Str("op", string(entry.Op)).
				Err(err).
				Msg("Journal replay failed for entry")
			if failErr := j.Fail(ctx, entry.ID, err); failErr != nil {
				return applied, failErr
			}
			continue
		}
		if err := j.Confirm(ctx, entry.ID); err != nil {
			return applied, err
		}
		applied++
		metrics.JournalReplays.Inc()
	}

	if len(pending) > 0 {
		logging.Info().
			Int("pending", len(pending)).
			Int("applied", applied).
			Msg("Journal replay complete")
	}
	return applied, nil
}

// GC drops confirmed entries older than the retention window and runs a
// value log garbage collection pass.
func (j *Journal) GC(ctx context.Context, retention time.Duration) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrClosed
	}

	cutoff := time.Now().UTC().Add(-retention)
	var stale [][]byte

	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixConfirmed)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var entry Entry
			key := it.Item().KeyCopy(nil)
			if err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &entry)
			}); err != nil {
				return err
			}
			if entry.ConfirmedAt != nil && entry.ConfirmedAt.Before(cutoff) {
				stale = append(stale, key)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan confirmed entries: %w", err)
	}

	for _, key := range stale {
		if err := j.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		}); err != nil {
			return fmt.Errorf("delete confirmed entry: %w", err)
		}
	}

	// ErrNoRewrite just means there was nothing worth reclaiming.
	if err := j.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		return err
	}

	if len(stale) > 0 {
		logging.Debug().Int("removed", len(stale)).Msg("Journal garbage collection complete")
	}
	return nil
}

// Stats returns journal counters.
func (j *Journal) Stats() Stats {
	pending, _ := j.Pending(context.Background())
	return Stats{
		PendingCount:  int64(len(pending)),
		TotalWrites:   j.totalWrites.Load(),
		TotalConfirms: j.totalConfirms.Load(),
	}
}

// Close shuts the journal down. Further operations return ErrClosed.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}

func sortEntriesByCreation(entries []*Entry) {
	sort.Slice(entries, func(i, k int) bool {
		return entries[i].CreatedAt.Before(entries[k].CreatedAt)
	})
}
