// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package cql2

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
)

func toQuery(t *testing.T, filter string) map[string]any {
	t.Helper()
	query, err := ToQuery(json.RawMessage(filter), nil)
	if err != nil {
		t.Fatalf("ToQuery(%s) failed: %v", filter, err)
	}
	return query
}

func TestEquality(t *testing.T) {
	t.Parallel()

	query := toQuery(t, `{"op":"=","args":[{"property":"collection"},"sentinel-2-l2a"]}`)
	term, ok := query["term"].(map[string]any)
	if !ok {
		t.Fatalf("expected term query, got %+v", query)
	}
	if term["collection"] != "sentinel-2-l2a" {
		t.Errorf("unexpected term %+v", term)
	}
}

func TestEqualitySwappedOperands(t *testing.T) {
	t.Parallel()

	query := toQuery(t, `{"op":"=","args":["sentinel-2-l2a",{"property":"collection"}]}`)
	term := query["term"].(map[string]any)
	if term["collection"] != "sentinel-2-l2a" {
		t.Errorf("swapped operands not handled: %+v", query)
	}
}

func TestPropertyAliasing(t *testing.T) {
	t.Parallel()

	t.Run("datetime aliases under properties", func(t *testing.T) {
		t.Parallel()
		query := toQuery(t, `{"op":"<=","args":[{"property":"datetime"},"2024-06-01T00:00:00Z"]}`)
		rng := query["range"].(map[string]any)
		if _, ok := rng["properties.datetime"]; !ok {
			t.Errorf("datetime not aliased: %+v", rng)
		}
	})

	t.Run("unknown property assumed under properties", func(t *testing.T) {
		t.Parallel()
		query := toQuery(t, `{"op":"=","args":[{"property":"sar:polarizations"},"VV"]}`)
		term := query["term"].(map[string]any)
		if _, ok := term["properties.sar:polarizations"]; !ok {
			t.Errorf("unknown property not prefixed: %+v", term)
		}
	})

	t.Run("top level fields untouched", func(t *testing.T) {
		t.Parallel()
		query := toQuery(t, `{"op":"=","args":[{"property":"id"},"S2A_0001"]}`)
		term := query["term"].(map[string]any)
		if _, ok := term["id"]; !ok {
			t.Errorf("id should stay top level: %+v", term)
		}
	})
}

func TestRangeOperators(t *testing.T) {
	t.Parallel()

	cases := []struct {
		op   string
		key  string
	}{
		{"<", "lt"},
		{"<=", "lte"},
		{">", "gt"},
		{">=", "gte"},
	}
	for _, tc := range cases {
		t.Run(tc.op, func(t *testing.T) {
			t.Parallel()
			query := toQuery(t, `{"op":"`+tc.op+`","args":[{"property":"eo:cloud_cover"},20]}`)
			rng := query["range"].(map[string]any)
			bounds := rng["properties.eo:cloud_cover"].(map[string]any)
			if bounds[tc.key] != float64(20) {
				t.Errorf("expected %s bound, got %+v", tc.key, bounds)
			}
		})
	}
}

func TestLogicalComposition(t *testing.T) {
	t.Parallel()

	query := toQuery(t, `{"op":"and","args":[
		{"op":"=","args":[{"property":"collection"},"s2"]},
		{"op":"or","args":[
			{"op":"<","args":[{"property":"eo:cloud_cover"},10]},
			{"op":"isNull","args":[{"property":"eo:cloud_cover"}]}
		]}
	]}`)

	boolQ := query["bool"].(map[string]any)
	filters, ok := boolQ["filter"].([]any)
	if !ok || len(filters) != 2 {
		t.Fatalf("expected two and-clauses, got %+v", boolQ)
	}
	orClause := filters[1].(map[string]any)["bool"].(map[string]any)
	if orClause["minimum_should_match"] != 1 {
		t.Errorf("or must require one match, got %+v", orClause)
	}
	if should := orClause["should"].([]any); len(should) != 2 {
		t.Errorf("expected two or-clauses, got %+v", should)
	}
}

func TestNotEqual(t *testing.T) {
	t.Parallel()

	query := toQuery(t, `{"op":"<>","args":[{"property":"collection"},"s2"]}`)
	boolQ := query["bool"].(map[string]any)
	if _, ok := boolQ["must_not"]; !ok {
		t.Errorf("expected must_not, got %+v", query)
	}
}

func TestBetween(t *testing.T) {
	t.Parallel()

	query := toQuery(t, `{"op":"between","args":[{"property":"eo:cloud_cover"},0,25]}`)
	bounds := query["range"].(map[string]any)["properties.eo:cloud_cover"].(map[string]any)
	if bounds["gte"] != float64(0) || bounds["lte"] != float64(25) {
		t.Errorf("unexpected bounds %+v", bounds)
	}
}

func TestIn(t *testing.T) {
	t.Parallel()

	query := toQuery(t, `{"op":"in","args":[{"property":"collection"},["s1","s2"]]}`)
	values := query["terms"].(map[string]any)["collection"].([]any)
	if len(values) != 2 || values[0] != "s1" {
		t.Errorf("unexpected terms %+v", values)
	}
}

func TestLike(t *testing.T) {
	t.Parallel()

	query := toQuery(t, `{"op":"like","args":[{"property":"id"},"S2A_%tile?"]}`)
	wildcard := query["wildcard"].(map[string]any)["id"].(map[string]any)
	if wildcard["value"] != `S2A?*tile\?` {
		t.Errorf("unexpected wildcard pattern %q", wildcard["value"])
	}
	if wildcard["case_insensitive"] != true {
		t.Error("like should be case insensitive")
	}
}

func TestSpatialIntersects(t *testing.T) {
	t.Parallel()

	query := toQuery(t, `{"op":"s_intersects","args":[{"property":"geometry"},{"type":"Point","coordinates":[0.25,51.5]}]}`)
	shape := query["geo_shape"].(map[string]any)["geometry"].(map[string]any)
	if shape["relation"] != "intersects" {
		t.Errorf("unexpected relation %+v", shape)
	}
	geom := shape["shape"].(map[string]any)
	if geom["type"] != "Point" {
		t.Errorf("geometry lost in translation: %+v", geom)
	}
}

func TestTemporalOperators(t *testing.T) {
	t.Parallel()

	t.Run("t_before", func(t *testing.T) {
		t.Parallel()
		query := toQuery(t, `{"op":"t_before","args":[{"property":"datetime"},{"timestamp":"2024-01-01T00:00:00Z"}]}`)
		bounds := query["range"].(map[string]any)["properties.datetime"].(map[string]any)
		if bounds["lt"] != "2024-01-01T00:00:00Z" {
			t.Errorf("unexpected bounds %+v", bounds)
		}
	})

	t.Run("t_after with bare string", func(t *testing.T) {
		t.Parallel()
		query := toQuery(t, `{"op":"t_after","args":[{"property":"datetime"},"2024-01-01T00:00:00Z"]}`)
		bounds := query["range"].(map[string]any)["properties.datetime"].(map[string]any)
		if bounds["gt"] != "2024-01-01T00:00:00Z" {
			t.Errorf("unexpected bounds %+v", bounds)
		}
	})

	t.Run("t_intersects with open end", func(t *testing.T) {
		t.Parallel()
		query := toQuery(t, `{"op":"t_intersects","args":[{"property":"datetime"},{"interval":["2024-01-01T00:00:00Z",".."]}]}`)
		bounds := query["range"].(map[string]any)["properties.datetime"].(map[string]any)
		if bounds["gte"] != "2024-01-01T00:00:00Z" {
			t.Errorf("unexpected bounds %+v", bounds)
		}
		if _, ok := bounds["lte"]; ok {
			t.Errorf("open end should not be bounded: %+v", bounds)
		}
	})
}

func TestErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		filter string
		want   error
	}{
		{"empty", ``, ErrEmptyFilter},
		{"unknown op", `{"op":"xor","args":[]}`, ErrUnsupportedOp},
		{"missing op", `{"args":[]}`, ErrMalformedExpr},
		{"no property operand", `{"op":"=","args":["a","b"]}`, ErrNotAProperty},
		{"bad temporal literal", `{"op":"t_intersects","args":[{"property":"datetime"},{"interval":["..",".."]}]}`, ErrBadTemporalArg},
		{"single and clause", `{"op":"and","args":[{"op":"=","args":[{"property":"id"},"x"]}]}`, ErrMalformedExpr},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ToQuery(json.RawMessage(tc.filter), nil)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestSchemaDocument(t *testing.T) {
	t.Parallel()

	doc := SchemaDocument("https://stac.example.com/queryables", "Queryables", DefaultQueryables())
	if doc["$id"] != "https://stac.example.com/queryables" {
		t.Errorf("unexpected $id %v", doc["$id"])
	}
	properties := doc["properties"].(map[string]any)
	if _, ok := properties["datetime"]; !ok {
		t.Error("datetime missing from queryables schema")
	}
	if _, ok := properties["eo:cloud_cover"]; !ok {
		t.Error("eo:cloud_cover missing from queryables schema")
	}
}
