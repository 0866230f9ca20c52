// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/EO-DataHub/stac-api-server/internal/cql2"
	"github.com/EO-DataHub/stac-api-server/internal/stac"
)

// parseSearchParams builds a search request from GET query parameters.
// The parameter set mirrors the POST body one to one.
func parseSearchParams(r *http.Request) (*stac.SearchRequest, error) {
	q := r.URL.Query()
	req := &stac.SearchRequest{}

	req.Collections = stac.SplitCSV(q.Get("collections"))
	req.IDs = stac.SplitCSV(q.Get("ids"))
	req.Datetime = q.Get("datetime")
	req.Token = q.Get("token")
	req.FreeText = q.Get("q")

	if raw := q.Get("bbox"); raw != "" {
		bbox, err := stac.ParseBbox(raw)
		if err != nil {
			return nil, err
		}
		req.Bbox = bbox
	}

	if raw := q.Get("intersects"); raw != "" {
		if !json.Valid([]byte(raw)) {
			return nil, fmt.Errorf("intersects must be a GeoJSON geometry")
		}
		req.Intersects = json.RawMessage(raw)
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("limit must be an integer: %w", err)
		}
		req.Limit = limit
	}

	if raw := q.Get("sortby"); raw != "" {
		sorts, err := stac.ParseSortBy(raw)
		if err != nil {
			return nil, err
		}
		req.SortBy = sorts
	}

	if raw := q.Get("fields"); raw != "" {
		req.Fields = stac.ParseFields(raw)
	}

	if raw := q.Get("query"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Query); err != nil {
			return nil, fmt.Errorf("query must be a JSON object: %w", err)
		}
	}

	if raw := q.Get("filter"); raw != "" {
		if !json.Valid([]byte(raw)) {
			return nil, fmt.Errorf("filter must be valid CQL2 JSON")
		}
		req.Filter = json.RawMessage(raw)
		req.FilterLang = q.Get("filter-lang")
	}

	if err := validateFilterLang(req); err != nil {
		return nil, err
	}
	return req, req.Validate()
}

// parseSearchBody decodes a POST search body.
func parseSearchBody(r *http.Request) (*stac.SearchRequest, error) {
	req := &stac.SearchRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return nil, fmt.Errorf("invalid search body: %w", err)
	}
	if err := validateFilterLang(req); err != nil {
		return nil, err
	}
	return req, req.Validate()
}

// parseAggregateBody decodes a POST aggregate body: a search body with an
// extra "aggregations" array naming the aggregations to compute.
func parseAggregateBody(r *http.Request) (*stac.SearchRequest, []string, error) {
	var body struct {
		stac.SearchRequest
		Aggregations []string `json:"aggregations"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, nil, fmt.Errorf("invalid aggregate body: %w", err)
	}
	req := &body.SearchRequest
	if err := validateFilterLang(req); err != nil {
		return nil, nil, err
	}
	return req, body.Aggregations, req.Validate()
}

func validateFilterLang(req *stac.SearchRequest) error {
	if len(req.Filter) == 0 {
		return nil
	}
	if req.FilterLang != "" && req.FilterLang != cql2.FilterLangCQL2JSON {
		return fmt.Errorf("unsupported filter language %q", req.FilterLang)
	}
	return nil
}

// searchBodyParams re-encodes a request as the POST body map used by the
// paging link builder, which echoes the client's body on next links.
func searchBodyParams(req *stac.SearchRequest) map[string]any {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil
	}
	return body
}

// catalogRef locates one catalog inside the nested hierarchy.
type catalogRef struct {
	// Path is the parent chain in URL-interleaved form, "" at the root.
	Path string
	// ID is the catalog's own identifier, "" when the tail was empty.
	ID string
	// Rest holds the sub-resource segments after the catalog chain,
	// for example ["collections", "s2", "items"].
	Rest []string
}

// FullPath is the interleaved path including the catalog itself, used as
// the parent path for anything nested beneath it.
func (ref catalogRef) FullPath() string {
	if ref.ID == "" {
		return ref.Path
	}
	if ref.Path == "" {
		return ref.ID
	}
	return ref.Path + "/catalogs/" + ref.ID
}

// parseCatalogTail splits the wildcard remainder of a /catalogs/* URL.
// Catalog nesting is URL-interleaved: "A/catalogs/B/collections/s2"
// means catalog B under catalog A, then collection s2 beneath it.
func parseCatalogTail(tail string) (catalogRef, error) {
	ref := catalogRef{}
	tail = strings.Trim(tail, "/")
	if tail == "" {
		return ref, nil
	}

	segments := strings.Split(tail, "/")
	ref.ID = segments[0]
	segments = segments[1:]

	for len(segments) > 0 && segments[0] == "catalogs" {
		if len(segments) == 1 {
			// Trailing "/catalogs" lists children of the current catalog.
			ref.Rest = []string{"catalogs"}
			return ref, nil
		}
		if ref.Path == "" {
			ref.Path = ref.ID
		} else {
			ref.Path = ref.Path + "/catalogs/" + ref.ID
		}
		ref.ID = segments[1]
		segments = segments[2:]
	}

	for _, segment := range segments {
		if segment == "" {
			return ref, fmt.Errorf("malformed catalog path %q", tail)
		}
	}
	if len(segments) > 0 {
		ref.Rest = segments
	}
	return ref, nil
}
