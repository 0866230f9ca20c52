// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package stac

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Request parsing errors.
var (
	ErrBadBbox     = errors.New("bbox must contain 4 or 6 numbers")
	ErrBadDatetime = errors.New("datetime must be an RFC 3339 instant or interval")
	ErrBadSortBy   = errors.New("sortby entries must name a field")
)

// SortBy orders search results by a single field.
type SortBy struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// Fields selects which item fields are included in search responses.
type Fields struct {
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

// SearchRequest is the POST /search body; GET /search parameters are parsed
// into the same structure.
type SearchRequest struct {
	Collections []string                  `json:"collections,omitempty"`
	IDs         []string                  `json:"ids,omitempty"`
	Bbox        []float64                 `json:"bbox,omitempty"`
	Datetime    string                    `json:"datetime,omitempty"`
	Intersects  json.RawMessage           `json:"intersects,omitempty"`
	Limit       int                       `json:"limit,omitempty"`
	Token       string                    `json:"token,omitempty"`
	Query       map[string]map[string]any `json:"query,omitempty"`
	SortBy      []SortBy                  `json:"sortby,omitempty"`
	Fields      *Fields                   `json:"fields,omitempty"`
	Filter      json.RawMessage           `json:"filter,omitempty"`
	FilterLang  string                    `json:"filter-lang,omitempty"`
	FreeText    string                    `json:"q,omitempty"`

	// CatalogPath scopes a search to a nested catalog subtree. Set from
	// the route, never from the body.
	CatalogPath string `json:"-"`
}

// Interval is a half-open datetime range; a nil end is unbounded.
type Interval struct {
	Start *time.Time
	End   *time.Time
}

// ParseBbox parses a comma-separated bounding box of 4 (2D) or 6 (3D)
// numbers and checks coordinate ordering.
func ParseBbox(raw string) ([]float64, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 && len(parts) != 6 {
		return nil, ErrBadBbox
	}
	bbox := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrBadBbox, part)
		}
		bbox[i] = v
	}
	return bbox, ValidateBbox(bbox)
}

// ValidateBbox checks dimension and coordinate ordering. Boxes crossing the
// antimeridian (west > east) are allowed per the API spec.
func ValidateBbox(bbox []float64) error {
	switch len(bbox) {
	case 0:
		return nil
	case 4:
		if bbox[1] > bbox[3] {
			return fmt.Errorf("%w: south %v exceeds north %v", ErrBadBbox, bbox[1], bbox[3])
		}
		if bbox[1] < -90 || bbox[3] > 90 {
			return fmt.Errorf("%w: latitude out of range", ErrBadBbox)
		}
	case 6:
		if bbox[1] > bbox[4] {
			return fmt.Errorf("%w: south %v exceeds north %v", ErrBadBbox, bbox[1], bbox[4])
		}
		if bbox[2] > bbox[5] {
			return fmt.Errorf("%w: min elevation %v exceeds max %v", ErrBadBbox, bbox[2], bbox[5])
		}
	default:
		return ErrBadBbox
	}
	return nil
}

// ParseDatetime parses a STAC datetime parameter: a single RFC 3339
// instant, or an interval "start/end" where either side may be ".." or
// empty for unbounded.
func ParseDatetime(raw string) (Interval, error) {
	if raw == "" {
		return Interval{}, ErrBadDatetime
	}
	if !strings.Contains(raw, "/") {
		t, err := parseRFC3339(raw)
		if err != nil {
			return Interval{}, err
		}
		return Interval{Start: &t, End: &t}, nil
	}

	parts := strings.SplitN(raw, "/", 2)
	interval := Interval{}
	if open := parts[0]; open != ".." && open != "" {
		t, err := parseRFC3339(open)
		if err != nil {
			return Interval{}, err
		}
		interval.Start = &t
	}
	if closed := parts[1]; closed != ".." && closed != "" {
		t, err := parseRFC3339(closed)
		if err != nil {
			return Interval{}, err
		}
		interval.End = &t
	}
	if interval.Start == nil && interval.End == nil {
		return Interval{}, fmt.Errorf("%w: both interval ends are open", ErrBadDatetime)
	}
	if interval.Start != nil && interval.End != nil && interval.End.Before(*interval.Start) {
		return Interval{}, fmt.Errorf("%w: interval end precedes start", ErrBadDatetime)
	}
	return interval, nil
}

func parseRFC3339(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadDatetime, raw)
	}
	return t, nil
}

// ParseSortBy parses the GET form "+field,-other,field" where a leading
// "-" selects descending order and "+" (or nothing) ascending.
func ParseSortBy(raw string) ([]SortBy, error) {
	if raw == "" {
		return nil, nil
	}
	var sorts []SortBy
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		direction := "asc"
		switch part[0] {
		case '-':
			direction = "desc"
			part = part[1:]
		case '+':
			part = part[1:]
		}
		if part == "" {
			return nil, ErrBadSortBy
		}
		sorts = append(sorts, SortBy{Field: part, Direction: direction})
	}
	return sorts, nil
}

// SplitCSV splits a comma-separated GET parameter into trimmed values.
func SplitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}

// ParseFields parses the GET form "+id,-geometry,properties.datetime"
// where "-" excludes a field and "+" (or nothing) includes it.
func ParseFields(raw string) *Fields {
	values := SplitCSV(raw)
	if len(values) == 0 {
		return nil
	}
	fields := &Fields{}
	for _, value := range values {
		switch value[0] {
		case '-':
			fields.Exclude = append(fields.Exclude, value[1:])
		case '+':
			fields.Include = append(fields.Include, value[1:])
		default:
			fields.Include = append(fields.Include, value)
		}
	}
	return fields
}

// Validate checks the cross-parameter rules of a search request.
func (r *SearchRequest) Validate() error {
	if err := ValidateBbox(r.Bbox); err != nil {
		return err
	}
	if len(r.Bbox) > 0 && len(r.Intersects) > 0 {
		return errors.New("bbox and intersects are mutually exclusive")
	}
	if r.Datetime != "" {
		if _, err := ParseDatetime(r.Datetime); err != nil {
			return err
		}
	}
	if r.Limit < 0 {
		return errors.New("limit must not be negative")
	}
	return nil
}
