// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package journal

import (
	"context"
	"errors"
	"testing"
	"time"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

type itemPayload struct {
	Collection string `json:"collection"`
	ItemID     string `json:"item_id"`
}

func TestWriteConfirmLifecycle(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	id, err := j.Write(ctx, OpCreateItem, itemPayload{Collection: "s2", ItemID: "a"})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	pending, err := j.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != id || pending[0].Op != OpCreateItem {
		t.Fatalf("unexpected pending entries %+v", pending)
	}

	var payload itemPayload
	if err := pending[0].UnmarshalPayload(&payload); err != nil {
		t.Fatalf("UnmarshalPayload failed: %v", err)
	}
	if payload.ItemID != "a" {
		t.Errorf("unexpected payload %+v", payload)
	}

	if err := j.Confirm(ctx, id); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	pending, err = j.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("confirmed entry still pending: %+v", pending)
	}
}

func TestConfirmUnknownEntry(t *testing.T) {
	j := openTestJournal(t)

	if err := j.Confirm(context.Background(), "no-such-entry"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestReplayAppliesAndConfirms(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if _, err := j.Write(ctx, OpCreateItem, itemPayload{Collection: "s2", ItemID: id}); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	var applied []string
	n, err := j.Replay(ctx, func(ctx context.Context, entry *Entry) error {
		var payload itemPayload
		if err := entry.UnmarshalPayload(&payload); err != nil {
			return err
		}
		applied = append(applied, payload.ItemID)
		return nil
	})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if n != 3 || len(applied) != 3 {
		t.Errorf("expected 3 applied, got %d (%v)", n, applied)
	}

	pending, _ := j.Pending(ctx)
	if len(pending) != 0 {
		t.Errorf("replayed entries still pending: %+v", pending)
	}
}

func TestReplayKeepsFailedEntries(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	if _, err := j.Write(ctx, OpDeleteItem, itemPayload{Collection: "s2", ItemID: "a"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	n, err := j.Replay(ctx, func(ctx context.Context, entry *Entry) error {
		return errors.New("engine unavailable")
	})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no applied entries, got %d", n)
	}

	pending, err := j.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("failed entry should stay pending, got %+v", pending)
	}
	if pending[0].Attempts != 1 || pending[0].LastError == "" {
		t.Errorf("attempt not recorded: %+v", pending[0])
	}
}

func TestGCDropsOldConfirmedEntries(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	id, err := j.Write(ctx, OpCreateCollection, map[string]string{"id": "s2"})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := j.Confirm(ctx, id); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	// Zero retention makes everything confirmed before now stale.
	time.Sleep(10 * time.Millisecond)
	if err := j.GC(ctx, 0); err != nil {
		t.Fatalf("GC failed: %v", err)
	}
}

func TestClosedJournalRejectsOperations(t *testing.T) {
	j := openTestJournal(t)
	if err := j.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := j.Write(context.Background(), OpCreateItem, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, err := j.Pending(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
