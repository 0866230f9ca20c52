// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package search

import (
	"fmt"

	"github.com/EO-DataHub/stac-api-server/internal/cql2"
	"github.com/EO-DataHub/stac-api-server/internal/stac"
)

// Fields item free-text search covers.
var freeTextFields = []string{"id^2", "properties.title", "properties.description", "properties.keywords"}

// defaultSort orders results newest first with the document id as a
// deterministic tiebreaker, which search_after pagination depends on.
var defaultSort = []map[string]any{
	{"properties.datetime": map[string]any{"order": "desc", "unmapped_type": "date"}},
	{"id": map[string]any{"order": "asc"}},
}

// buildItemSearchBody translates a search request into the engine query
// DSL. The limit must already be clamped by the caller.
func buildItemSearchBody(req *stac.SearchRequest, queryables cql2.Queryables, limit int) (map[string]any, error) {
	filters := make([]any, 0, 8)

	if len(req.Collections) > 0 {
		filters = append(filters, map[string]any{"terms": map[string]any{"collection": req.Collections}})
	}
	if len(req.IDs) > 0 {
		filters = append(filters, map[string]any{"terms": map[string]any{"id": req.IDs}})
	}
	if len(req.Bbox) > 0 {
		filters = append(filters, bboxFilter(req.Bbox))
	}
	if len(req.Intersects) > 0 {
		filters = append(filters, map[string]any{
			"geo_shape": map[string]any{
				"geometry": map[string]any{
					"shape":    req.Intersects,
					"relation": "intersects",
				},
			},
		})
	}
	if req.Datetime != "" {
		interval, err := stac.ParseDatetime(req.Datetime)
		if err != nil {
			return nil, err
		}
		filters = append(filters, datetimeFilter(interval))
	}
	if len(req.Query) > 0 {
		clauses, err := queryExtensionFilters(req.Query, queryables)
		if err != nil {
			return nil, err
		}
		filters = append(filters, clauses...)
	}
	if len(req.Filter) > 0 {
		clause, err := cql2.ToQuery(req.Filter, queryables)
		if err != nil {
			return nil, err
		}
		filters = append(filters, clause)
	}
	if req.FreeText != "" {
		filters = append(filters, map[string]any{
			"multi_match": map[string]any{
				"query":  req.FreeText,
				"fields": freeTextFields,
			},
		})
	}

	body := map[string]any{
		"size":  limit,
		"query": boolFilter(filters),
		"sort":  sortClauses(req.SortBy),
	}

	if req.Fields != nil {
		source := map[string]any{}
		if len(req.Fields.Include) > 0 {
			source["includes"] = req.Fields.Include
		}
		if len(req.Fields.Exclude) > 0 {
			source["excludes"] = req.Fields.Exclude
		}
		body["_source"] = source
	}

	if req.Token != "" {
		searchAfter, err := DecodeToken(req.Token)
		if err != nil {
			return nil, err
		}
		body["search_after"] = searchAfter
	}

	return body, nil
}

// boolFilter wraps clauses in a filter context; no clauses means match all.
func boolFilter(filters []any) map[string]any {
	if len(filters) == 0 {
		return map[string]any{"match_all": map[string]any{}}
	}
	return map[string]any{"bool": map[string]any{"filter": filters}}
}

// bboxFilter builds a geo_shape envelope from a 2D or 3D bbox. Envelope
// coordinates are upper-left then lower-right.
func bboxFilter(bbox []float64) map[string]any {
	minLon, minLat := bbox[0], bbox[1]
	maxLon, maxLat := bbox[2], bbox[3]
	if len(bbox) == 6 {
		maxLon, maxLat = bbox[3], bbox[4]
	}
	return map[string]any{
		"geo_shape": map[string]any{
			"geometry": map[string]any{
				"shape": map[string]any{
					"type":        "envelope",
					"coordinates": [][]float64{{minLon, maxLat}, {maxLon, minLat}},
				},
				"relation": "intersects",
			},
		},
	}
}

func datetimeFilter(interval stac.Interval) map[string]any {
	bounds := map[string]any{}
	if interval.Start != nil {
		bounds["gte"] = interval.Start.Format("2006-01-02T15:04:05.000Z07:00")
	}
	if interval.End != nil {
		bounds["lte"] = interval.End.Format("2006-01-02T15:04:05.000Z07:00")
	}
	return map[string]any{"range": map[string]any{"properties.datetime": bounds}}
}

// queryExtensionFilters translates the legacy query extension, one clause
// per field and operator pair.
func queryExtensionFilters(query map[string]map[string]any, queryables cql2.Queryables) ([]any, error) {
	if queryables == nil {
		queryables = cql2.DefaultQueryables()
	}
	clauses := make([]any, 0, len(query))
	for name, ops := range query {
		field := queryables.Field(name)
		for op, value := range ops {
			clause, err := queryOpClause(field, op, value)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, clause)
		}
	}
	return clauses, nil
}

func queryOpClause(field, op string, value any) (map[string]any, error) {
	switch op {
	case "eq":
		return map[string]any{"term": map[string]any{field: value}}, nil
	case "neq":
		return map[string]any{"bool": map[string]any{
			"must_not": map[string]any{"term": map[string]any{field: value}},
		}}, nil
	case "lt", "lte", "gt", "gte":
		return map[string]any{"range": map[string]any{field: map[string]any{op: value}}}, nil
	case "in":
		return map[string]any{"terms": map[string]any{field: value}}, nil
	case "startsWith":
		return map[string]any{"wildcard": map[string]any{field: map[string]any{
			"value": fmt.Sprintf("%v*", value), "case_insensitive": true,
		}}}, nil
	case "endsWith":
		return map[string]any{"wildcard": map[string]any{field: map[string]any{
			"value": fmt.Sprintf("*%v", value), "case_insensitive": true,
		}}}, nil
	case "contains":
		return map[string]any{"wildcard": map[string]any{field: map[string]any{
			"value": fmt.Sprintf("*%v*", value), "case_insensitive": true,
		}}}, nil
	default:
		return nil, fmt.Errorf("unsupported query operator %q", op)
	}
}

// sortClauses maps requested sorts onto the DSL and guarantees the id
// tiebreaker is present so search_after stays stable.
func sortClauses(sorts []stac.SortBy) []map[string]any {
	if len(sorts) == 0 {
		return defaultSort
	}
	clauses := make([]map[string]any, 0, len(sorts)+1)
	hasID := false
	for _, s := range sorts {
		if s.Field == "id" {
			hasID = true
		}
		clauses = append(clauses, map[string]any{s.Field: map[string]any{"order": s.Direction}})
	}
	if !hasID {
		clauses = append(clauses, map[string]any{"id": map[string]any{"order": "asc"}})
	}
	return clauses
}

// buildCollectionSearchBody supports collection search: free text over
// descriptive fields plus token pagination sorted by id.
func buildCollectionSearchBody(req *stac.SearchRequest, limit int) (map[string]any, error) {
	filters := make([]any, 0, 3)
	if req.CatalogPath != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"catalog_path": req.CatalogPath}})
	}
	if req.FreeText != "" {
		filters = append(filters, map[string]any{
			"multi_match": map[string]any{
				"query":  req.FreeText,
				"fields": []string{"id^2", "title", "description", "keywords"},
			},
		})
	}

	body := map[string]any{
		"size":  limit,
		"query": boolFilter(filters),
		"sort":  []map[string]any{{"id": map[string]any{"order": "asc"}}},
	}
	if req.Token != "" {
		searchAfter, err := DecodeToken(req.Token)
		if err != nil {
			return nil, err
		}
		body["search_after"] = searchAfter
	}
	return body, nil
}

// buildChildrenBody lists catalogs or collections directly under a
// catalog path, sorted by id for stable paging.
func buildChildrenBody(catalogPath string, limit int, token string) (map[string]any, error) {
	body := map[string]any{
		"size": limit,
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"catalog_path": catalogPath}},
				},
			},
		},
		"sort": []map[string]any{{"id": map[string]any{"order": "asc"}}},
	}
	if token != "" {
		searchAfter, err := DecodeToken(token)
		if err != nil {
			return nil, err
		}
		body["search_after"] = searchAfter
	}
	return body, nil
}
