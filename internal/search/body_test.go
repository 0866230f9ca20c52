// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package search

import (
	"testing"

	"github.com/goccy/go-json"

	"github.com/EO-DataHub/stac-api-server/internal/stac"
)

func buildBody(t *testing.T, req *stac.SearchRequest, limit int) map[string]any {
	t.Helper()
	body, err := buildItemSearchBody(req, nil, limit)
	if err != nil {
		t.Fatalf("buildItemSearchBody failed: %v", err)
	}
	return body
}

func filtersOf(t *testing.T, body map[string]any) []any {
	t.Helper()
	boolQ, ok := body["query"].(map[string]any)["bool"].(map[string]any)
	if !ok {
		t.Fatalf("expected bool query, got %+v", body["query"])
	}
	return boolQ["filter"].([]any)
}

func TestEmptyRequestMatchesAll(t *testing.T) {
	t.Parallel()

	body := buildBody(t, &stac.SearchRequest{}, 10)
	if _, ok := body["query"].(map[string]any)["match_all"]; !ok {
		t.Errorf("expected match_all, got %+v", body["query"])
	}
	if body["size"] != 10 {
		t.Errorf("unexpected size %v", body["size"])
	}
}

func TestCollectionAndIDFilters(t *testing.T) {
	t.Parallel()

	body := buildBody(t, &stac.SearchRequest{
		Collections: []string{"s2", "s1"},
		IDs:         []string{"a"},
	}, 10)
	filters := filtersOf(t, body)
	if len(filters) != 2 {
		t.Fatalf("expected 2 filters, got %+v", filters)
	}
}

func TestBboxBecomesEnvelope(t *testing.T) {
	t.Parallel()

	body := buildBody(t, &stac.SearchRequest{Bbox: []float64{-10, 40, 2, 55}}, 10)
	filters := filtersOf(t, body)
	shape := filters[0].(map[string]any)["geo_shape"].(map[string]any)["geometry"].(map[string]any)["shape"].(map[string]any)
	if shape["type"] != "envelope" {
		t.Fatalf("expected envelope, got %+v", shape)
	}
	coords := shape["coordinates"].([][]float64)
	// Upper-left then lower-right.
	if coords[0][0] != -10 || coords[0][1] != 55 || coords[1][0] != 2 || coords[1][1] != 40 {
		t.Errorf("unexpected envelope coordinates %+v", coords)
	}
}

func TestBbox3DDropsElevation(t *testing.T) {
	t.Parallel()

	body := buildBody(t, &stac.SearchRequest{Bbox: []float64{-10, 40, 0, 2, 55, 1000}}, 10)
	filters := filtersOf(t, body)
	shape := filters[0].(map[string]any)["geo_shape"].(map[string]any)["geometry"].(map[string]any)["shape"].(map[string]any)
	coords := shape["coordinates"].([][]float64)
	if coords[1][0] != 2 || coords[1][1] != 40 {
		t.Errorf("3d bbox mishandled: %+v", coords)
	}
}

func TestDatetimeRange(t *testing.T) {
	t.Parallel()

	body := buildBody(t, &stac.SearchRequest{Datetime: "2024-01-01T00:00:00Z/.."}, 10)
	filters := filtersOf(t, body)
	bounds := filters[0].(map[string]any)["range"].(map[string]any)["properties.datetime"].(map[string]any)
	if _, ok := bounds["gte"]; !ok {
		t.Errorf("expected gte bound, got %+v", bounds)
	}
	if _, ok := bounds["lte"]; ok {
		t.Errorf("open end should be unbounded: %+v", bounds)
	}
}

func TestDatetimeClosedInterval(t *testing.T) {
	t.Parallel()

	body := buildBody(t, &stac.SearchRequest{Datetime: "2024-01-01T00:00:00Z/2024-06-30T23:59:59Z"}, 10)
	filters := filtersOf(t, body)
	bounds := filters[0].(map[string]any)["range"].(map[string]any)["properties.datetime"].(map[string]any)
	if bounds["gte"] != "2024-01-01T00:00:00.000Z" {
		t.Errorf("gte = %v", bounds["gte"])
	}
	if bounds["lte"] != "2024-06-30T23:59:59.000Z" {
		t.Errorf("lte = %v", bounds["lte"])
	}
}

func TestDefaultSortHasIDTiebreaker(t *testing.T) {
	t.Parallel()

	body := buildBody(t, &stac.SearchRequest{}, 10)
	sorts := body["sort"].([]map[string]any)
	if len(sorts) != 2 {
		t.Fatalf("expected default sort pair, got %+v", sorts)
	}
	if _, ok := sorts[0]["properties.datetime"]; !ok {
		t.Errorf("datetime should sort first: %+v", sorts)
	}
	if _, ok := sorts[1]["id"]; !ok {
		t.Errorf("id tiebreaker missing: %+v", sorts)
	}
}

func TestExplicitSortKeepsTiebreaker(t *testing.T) {
	t.Parallel()

	body := buildBody(t, &stac.SearchRequest{
		SortBy: []stac.SortBy{{Field: "properties.eo:cloud_cover", Direction: "asc"}},
	}, 10)
	sorts := body["sort"].([]map[string]any)
	if len(sorts) != 2 {
		t.Fatalf("expected appended tiebreaker, got %+v", sorts)
	}
	if _, ok := sorts[1]["id"]; !ok {
		t.Errorf("id tiebreaker missing: %+v", sorts)
	}
}

func TestTokenBecomesSearchAfter(t *testing.T) {
	t.Parallel()

	token := EncodeToken([]any{"2024-06-01", "item-1"})
	body := buildBody(t, &stac.SearchRequest{Token: token}, 10)
	searchAfter, ok := body["search_after"].([]any)
	if !ok || len(searchAfter) != 2 {
		t.Fatalf("expected search_after, got %+v", body)
	}
	if searchAfter[1] != "item-1" {
		t.Errorf("unexpected search_after %+v", searchAfter)
	}
}

func TestBadTokenRejected(t *testing.T) {
	t.Parallel()

	if _, err := buildItemSearchBody(&stac.SearchRequest{Token: "!!bad!!"}, nil, 10); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestFieldsSourceFiltering(t *testing.T) {
	t.Parallel()

	body := buildBody(t, &stac.SearchRequest{
		Fields: &stac.Fields{Include: []string{"id", "properties.datetime"}, Exclude: []string{"assets"}},
	}, 10)
	source := body["_source"].(map[string]any)
	if len(source["includes"].([]string)) != 2 {
		t.Errorf("unexpected includes %+v", source)
	}
	if len(source["excludes"].([]string)) != 1 {
		t.Errorf("unexpected excludes %+v", source)
	}
}

func TestQueryExtension(t *testing.T) {
	t.Parallel()

	body := buildBody(t, &stac.SearchRequest{
		Query: map[string]map[string]any{
			"eo:cloud_cover": {"lte": 20},
		},
	}, 10)
	filters := filtersOf(t, body)
	bounds := filters[0].(map[string]any)["range"].(map[string]any)["properties.eo:cloud_cover"].(map[string]any)
	if bounds["lte"] != 20 {
		t.Errorf("unexpected bounds %+v", bounds)
	}

	if _, err := buildItemSearchBody(&stac.SearchRequest{
		Query: map[string]map[string]any{"id": {"regex": ".*"}},
	}, nil, 10); err == nil {
		t.Error("expected error for unsupported operator")
	}
}

func TestCQL2FilterEmbedded(t *testing.T) {
	t.Parallel()

	body := buildBody(t, &stac.SearchRequest{
		Filter: json.RawMessage(`{"op":"=","args":[{"property":"collection"},"s2"]}`),
	}, 10)
	filters := filtersOf(t, body)
	if _, ok := filters[0].(map[string]any)["term"]; !ok {
		t.Errorf("expected translated term filter, got %+v", filters)
	}
}

func TestFreeText(t *testing.T) {
	t.Parallel()

	body := buildBody(t, &stac.SearchRequest{FreeText: "sentinel flood"}, 10)
	filters := filtersOf(t, body)
	mm := filters[0].(map[string]any)["multi_match"].(map[string]any)
	if mm["query"] != "sentinel flood" {
		t.Errorf("unexpected multi_match %+v", mm)
	}
}

func TestCollectionSearchBody(t *testing.T) {
	t.Parallel()

	body, err := buildCollectionSearchBody(&stac.SearchRequest{
		FreeText:    "landsat",
		CatalogPath: "supported-datasets",
	}, 25)
	if err != nil {
		t.Fatalf("buildCollectionSearchBody failed: %v", err)
	}
	filters := filtersOf(t, body)
	if len(filters) != 2 {
		t.Fatalf("expected path and free-text filters, got %+v", filters)
	}
	if body["size"] != 25 {
		t.Errorf("unexpected size %v", body["size"])
	}
}

func TestChildrenBodyRootPath(t *testing.T) {
	t.Parallel()

	body, err := buildChildrenBody("", 10, "")
	if err != nil {
		t.Fatalf("buildChildrenBody failed: %v", err)
	}
	filters := filtersOf(t, body)
	term := filters[0].(map[string]any)["term"].(map[string]any)
	if term["catalog_path"] != "" {
		t.Errorf("root listing should filter on empty path: %+v", term)
	}
}
