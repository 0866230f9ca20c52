// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package stac

import (
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestParseBbox(t *testing.T) {
	t.Parallel()

	t.Run("2d", func(t *testing.T) {
		t.Parallel()
		bbox, err := ParseBbox("-10.5,40,2.3,55")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []float64{-10.5, 40, 2.3, 55}
		for i := range want {
			if bbox[i] != want[i] {
				t.Errorf("bbox[%d] = %v, want %v", i, bbox[i], want[i])
			}
		}
	})

	t.Run("3d", func(t *testing.T) {
		t.Parallel()
		if _, err := ParseBbox("-10,40,0,2,55,1000"); err != nil {
			t.Errorf("unexpected error for 3d bbox: %v", err)
		}
	})

	t.Run("antimeridian crossing allowed", func(t *testing.T) {
		t.Parallel()
		if _, err := ParseBbox("170,-10,-170,10"); err != nil {
			t.Errorf("antimeridian bbox rejected: %v", err)
		}
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()
		for _, raw := range []string{"", "1,2,3", "1,2,3,4,5", "a,b,c,d", "0,50,10,40", "0,-95,10,10"} {
			if _, err := ParseBbox(raw); !errors.Is(err, ErrBadBbox) {
				t.Errorf("ParseBbox(%q) = %v, want ErrBadBbox", raw, err)
			}
		}
	})
}

func TestParseDatetime(t *testing.T) {
	t.Parallel()

	t.Run("instant", func(t *testing.T) {
		t.Parallel()
		iv, err := ParseDatetime("2024-06-01T12:00:00Z")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if iv.Start == nil || iv.End == nil || !iv.Start.Equal(*iv.End) {
			t.Errorf("instant should have equal start and end: %+v", iv)
		}
	})

	t.Run("closed interval", func(t *testing.T) {
		t.Parallel()
		iv, err := ParseDatetime("2024-01-01T00:00:00Z/2024-12-31T23:59:59Z")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if iv.Start == nil || iv.End == nil {
			t.Fatalf("expected closed interval, got %+v", iv)
		}
		if !iv.Start.Before(*iv.End) {
			t.Error("start should precede end")
		}
	})

	t.Run("open start", func(t *testing.T) {
		t.Parallel()
		iv, err := ParseDatetime("../2024-12-31T00:00:00Z")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if iv.Start != nil {
			t.Errorf("expected open start, got %v", iv.Start)
		}
		if iv.End == nil {
			t.Error("expected bounded end")
		}
	})

	t.Run("open end", func(t *testing.T) {
		t.Parallel()
		iv, err := ParseDatetime("2024-01-01T00:00:00Z/..")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if iv.End != nil {
			t.Errorf("expected open end, got %v", iv.End)
		}
		want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		if iv.Start == nil || !iv.Start.Equal(want) {
			t.Errorf("unexpected start %v", iv.Start)
		}
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()
		for _, raw := range []string{"", "../..", "notadate", "2024-13-01T00:00:00Z", "2024-06-01T00:00:00Z/2024-01-01T00:00:00Z"} {
			if _, err := ParseDatetime(raw); !errors.Is(err, ErrBadDatetime) {
				t.Errorf("ParseDatetime(%q) = %v, want ErrBadDatetime", raw, err)
			}
		}
	})
}

func TestParseSortBy(t *testing.T) {
	t.Parallel()

	sorts, err := ParseSortBy("-properties.datetime,+id,collection")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []SortBy{
		{Field: "properties.datetime", Direction: "desc"},
		{Field: "id", Direction: "asc"},
		{Field: "collection", Direction: "asc"},
	}
	if len(sorts) != len(want) {
		t.Fatalf("expected %d sorts, got %d", len(want), len(sorts))
	}
	for i := range want {
		if sorts[i] != want[i] {
			t.Errorf("sorts[%d] = %+v, want %+v", i, sorts[i], want[i])
		}
	}

	if _, err := ParseSortBy("-"); !errors.Is(err, ErrBadSortBy) {
		t.Errorf("expected ErrBadSortBy for bare direction, got %v", err)
	}
	if sorts, err := ParseSortBy(""); err != nil || sorts != nil {
		t.Errorf("empty sortby should be nil, got %+v, %v", sorts, err)
	}
}

func TestParseFields(t *testing.T) {
	t.Parallel()

	fields := ParseFields("+id,-geometry,properties.datetime")
	if fields == nil {
		t.Fatal("expected fields")
	}
	if len(fields.Include) != 2 || fields.Include[0] != "id" || fields.Include[1] != "properties.datetime" {
		t.Errorf("unexpected includes %+v", fields.Include)
	}
	if len(fields.Exclude) != 1 || fields.Exclude[0] != "geometry" {
		t.Errorf("unexpected excludes %+v", fields.Exclude)
	}
	if ParseFields("") != nil {
		t.Error("empty fields should be nil")
	}
}

func TestSearchRequestValidate(t *testing.T) {
	t.Parallel()

	t.Run("bbox and intersects exclusive", func(t *testing.T) {
		t.Parallel()
		req := SearchRequest{
			Bbox:       []float64{0, 0, 1, 1},
			Intersects: json.RawMessage(`{"type":"Point","coordinates":[0,0]}`),
		}
		if err := req.Validate(); err == nil {
			t.Error("expected error for bbox+intersects")
		}
	})

	t.Run("negative limit", func(t *testing.T) {
		t.Parallel()
		req := SearchRequest{Limit: -1}
		if err := req.Validate(); err == nil {
			t.Error("expected error for negative limit")
		}
	})

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		req := SearchRequest{
			Collections: []string{"s2"},
			Bbox:        []float64{-10, 40, 2, 55},
			Datetime:    "2024-01-01T00:00:00Z/..",
			Limit:       100,
		}
		if err := req.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
