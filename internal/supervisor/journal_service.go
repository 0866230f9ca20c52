// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package supervisor

import (
	"context"
	"time"

	"github.com/EO-DataHub/stac-api-server/internal/logging"
)

// JournalGC is the maintenance surface of the transaction journal.
type JournalGC interface {
	GC(ctx context.Context, retention time.Duration) error
}

// JournalService runs periodic journal garbage collection: confirmed
// entries older than the retention window are dropped and badger's
// value log is compacted.
type JournalService struct {
	journal   JournalGC
	interval  time.Duration
	retention time.Duration
}

// NewJournalService builds the GC loop. Zero interval defaults to one
// hour, zero retention to 24 hours.
func NewJournalService(journal JournalGC, interval, retention time.Duration) *JournalService {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &JournalService{journal: journal, interval: interval, retention: retention}
}

// Serve implements suture.Service.
func (s *JournalService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.journal.GC(ctx, s.retention); err != nil {
				logging.Warn().Err(err).Msg("Journal GC pass failed")
			}
		}
	}
}

// String identifies the service in supervisor logs.
func (s *JournalService) String() string { return "journal-gc" }
