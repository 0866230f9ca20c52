// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

// Package cql2 translates CQL2-JSON filter expressions into the search
// engine's query DSL. The engine evaluates the translated query; this
// package only rewrites the expression tree.
//
// Supported operators: the comparison set (=, <>, <, <=, >, >=), the
// logical set (and, or, not), isNull, between, in, like, the spatial
// operator s_intersects and the temporal operators t_before, t_after and
// t_intersects. This matches the advertised CQL2 conformance classes,
// including advanced comparison operators.
package cql2

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Translation errors.
var (
	ErrEmptyFilter    = errors.New("filter expression is empty")
	ErrUnsupportedOp  = errors.New("unsupported cql2 operator")
	ErrMalformedExpr  = errors.New("malformed cql2 expression")
	ErrNotAProperty   = errors.New("operand must be a property reference")
	ErrBadTemporalArg = errors.New("temporal operand must be a timestamp or interval")
)

// FilterLangCQL2JSON is the only filter language accepted by the API.
const FilterLangCQL2JSON = "cql2-json"

// Queryables maps queryable names exposed to clients onto document fields.
type Queryables map[string]string

// DefaultQueryables covers the core STAC queryables. Item properties live
// under the properties object in stored documents, so datetime and friends
// are aliased there.
func DefaultQueryables() Queryables {
	return Queryables{
		"id":             "id",
		"collection":     "collection",
		"geometry":       "geometry",
		"datetime":       "properties.datetime",
		"created":        "properties.created",
		"updated":        "properties.updated",
		"eo:cloud_cover": "properties.eo:cloud_cover",
	}
}

// Field resolves a queryable name to its document field. Unknown names are
// assumed to be item properties.
func (q Queryables) Field(name string) string {
	if field, ok := q[name]; ok {
		return field
	}
	if strings.HasPrefix(name, "properties.") {
		return name
	}
	return "properties." + name
}

// expr is a raw CQL2-JSON node: {"op": ..., "args": [...]}.
type expr struct {
	Op   string            `json:"op"`
	Args []json.RawMessage `json:"args"`
}

// ToQuery translates a CQL2-JSON filter into an engine query body fragment.
func ToQuery(filter json.RawMessage, queryables Queryables) (map[string]any, error) {
	if len(filter) == 0 {
		return nil, ErrEmptyFilter
	}
	if queryables == nil {
		queryables = DefaultQueryables()
	}
	return translate(filter, queryables)
}

func translate(raw json.RawMessage, q Queryables) (map[string]any, error) {
	var node expr
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedExpr, err)
	}
	if node.Op == "" {
		return nil, fmt.Errorf("%w: missing op", ErrMalformedExpr)
	}

	switch node.Op {
	case "and", "or":
		return translateLogical(node, q)
	case "not":
		if len(node.Args) != 1 {
			return nil, fmt.Errorf("%w: not takes one argument", ErrMalformedExpr)
		}
		inner, err := translate(node.Args[0], q)
		if err != nil {
			return nil, err
		}
		return map[string]any{"bool": map[string]any{"must_not": []any{inner}}}, nil
	case "=", "<>", "<", "<=", ">", ">=":
		return translateComparison(node, q)
	case "isNull":
		if len(node.Args) != 1 {
			return nil, fmt.Errorf("%w: isNull takes one argument", ErrMalformedExpr)
		}
		field, err := propertyField(node.Args[0], q)
		if err != nil {
			return nil, err
		}
		return map[string]any{"bool": map[string]any{
			"must_not": []any{map[string]any{"exists": map[string]any{"field": field}}},
		}}, nil
	case "between":
		return translateBetween(node, q)
	case "in":
		return translateIn(node, q)
	case "like":
		return translateLike(node, q)
	case "s_intersects":
		return translateIntersects(node, q)
	case "t_before", "t_after", "t_intersects":
		return translateTemporal(node, q)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedOp, node.Op)
	}
}

func translateLogical(node expr, q Queryables) (map[string]any, error) {
	if len(node.Args) < 2 {
		return nil, fmt.Errorf("%w: %s needs at least two arguments", ErrMalformedExpr, node.Op)
	}
	clauses := make([]any, 0, len(node.Args))
	for _, arg := range node.Args {
		clause, err := translate(arg, q)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}
	if node.Op == "and" {
		return map[string]any{"bool": map[string]any{"filter": clauses}}, nil
	}
	return map[string]any{"bool": map[string]any{
		"should":               clauses,
		"minimum_should_match": 1,
	}}, nil
}

func translateComparison(node expr, q Queryables) (map[string]any, error) {
	field, value, err := fieldAndValue(node, q)
	if err != nil {
		return nil, err
	}
	switch node.Op {
	case "=":
		return map[string]any{"term": map[string]any{field: value}}, nil
	case "<>":
		return map[string]any{"bool": map[string]any{
			"must_not": []any{map[string]any{"term": map[string]any{field: value}}},
		}}, nil
	case "<":
		return rangeQuery(field, "lt", value), nil
	case "<=":
		return rangeQuery(field, "lte", value), nil
	case ">":
		return rangeQuery(field, "gt", value), nil
	case ">=":
		return rangeQuery(field, "gte", value), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedOp, node.Op)
}

func translateBetween(node expr, q Queryables) (map[string]any, error) {
	if len(node.Args) != 3 {
		return nil, fmt.Errorf("%w: between takes a property and two bounds", ErrMalformedExpr)
	}
	field, err := propertyField(node.Args[0], q)
	if err != nil {
		return nil, err
	}
	low, err := scalarValue(node.Args[1])
	if err != nil {
		return nil, err
	}
	high, err := scalarValue(node.Args[2])
	if err != nil {
		return nil, err
	}
	return map[string]any{"range": map[string]any{field: map[string]any{"gte": low, "lte": high}}}, nil
}

func translateIn(node expr, q Queryables) (map[string]any, error) {
	if len(node.Args) != 2 {
		return nil, fmt.Errorf("%w: in takes a property and a value list", ErrMalformedExpr)
	}
	field, err := propertyField(node.Args[0], q)
	if err != nil {
		return nil, err
	}
	var values []any
	if err := json.Unmarshal(node.Args[1], &values); err != nil {
		return nil, fmt.Errorf("%w: in values must be an array", ErrMalformedExpr)
	}
	return map[string]any{"terms": map[string]any{field: values}}, nil
}

func translateLike(node expr, q Queryables) (map[string]any, error) {
	if len(node.Args) != 2 {
		return nil, fmt.Errorf("%w: like takes a property and a pattern", ErrMalformedExpr)
	}
	field, err := propertyField(node.Args[0], q)
	if err != nil {
		return nil, err
	}
	var pattern string
	if err := json.Unmarshal(node.Args[1], &pattern); err != nil {
		return nil, fmt.Errorf("%w: like pattern must be a string", ErrMalformedExpr)
	}
	return map[string]any{"wildcard": map[string]any{
		field: map[string]any{"value": likeToWildcard(pattern), "case_insensitive": true},
	}}, nil
}

// likeToWildcard converts SQL LIKE wildcards (%, _) to engine wildcards
// (*, ?), escaping any literal engine wildcard characters first.
func likeToWildcard(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteRune('*')
		case '_':
			b.WriteRune('?')
		case '*', '?':
			b.WriteRune('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func translateIntersects(node expr, q Queryables) (map[string]any, error) {
	if len(node.Args) != 2 {
		return nil, fmt.Errorf("%w: s_intersects takes a property and a geometry", ErrMalformedExpr)
	}
	field, err := propertyField(node.Args[0], q)
	if err != nil {
		return nil, err
	}
	var geometry map[string]any
	if err := json.Unmarshal(node.Args[1], &geometry); err != nil {
		return nil, fmt.Errorf("%w: s_intersects geometry must be GeoJSON", ErrMalformedExpr)
	}
	return map[string]any{"geo_shape": map[string]any{
		field: map[string]any{"shape": geometry, "relation": "intersects"},
	}}, nil
}

// temporalOperand is a CQL2 temporal literal: either {"timestamp": t} or
// {"interval": [start, end]} where ".." marks an open end.
type temporalOperand struct {
	Timestamp string    `json:"timestamp"`
	Interval  []*string `json:"interval"`
}

func translateTemporal(node expr, q Queryables) (map[string]any, error) {
	if len(node.Args) != 2 {
		return nil, fmt.Errorf("%w: %s takes a property and a temporal literal", ErrMalformedExpr, node.Op)
	}
	field, err := propertyField(node.Args[0], q)
	if err != nil {
		return nil, err
	}

	var operand temporalOperand
	if err := json.Unmarshal(node.Args[1], &operand); err != nil {
		// A bare string timestamp is also accepted.
		var ts string
		if err2 := json.Unmarshal(node.Args[1], &ts); err2 != nil {
			return nil, ErrBadTemporalArg
		}
		operand.Timestamp = ts
	}

	switch node.Op {
	case "t_before":
		if operand.Timestamp == "" {
			return nil, ErrBadTemporalArg
		}
		return rangeQuery(field, "lt", operand.Timestamp), nil
	case "t_after":
		if operand.Timestamp == "" {
			return nil, ErrBadTemporalArg
		}
		return rangeQuery(field, "gt", operand.Timestamp), nil
	case "t_intersects":
		if len(operand.Interval) != 2 {
			return nil, ErrBadTemporalArg
		}
		bounds := map[string]any{}
		if start := operand.Interval[0]; start != nil && *start != ".." {
			bounds["gte"] = *start
		}
		if end := operand.Interval[1]; end != nil && *end != ".." {
			bounds["lte"] = *end
		}
		if len(bounds) == 0 {
			return nil, ErrBadTemporalArg
		}
		return map[string]any{"range": map[string]any{field: bounds}}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedOp, node.Op)
}

// fieldAndValue destructures a binary comparison into a document field and
// a literal. The property reference may be on either side.
func fieldAndValue(node expr, q Queryables) (string, any, error) {
	if len(node.Args) != 2 {
		return "", nil, fmt.Errorf("%w: %s takes two arguments", ErrMalformedExpr, node.Op)
	}
	if field, err := propertyField(node.Args[0], q); err == nil {
		value, err := scalarValue(node.Args[1])
		if err != nil {
			return "", nil, err
		}
		return field, value, nil
	}
	field, err := propertyField(node.Args[1], q)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s has no property operand", ErrNotAProperty, node.Op)
	}
	value, err := scalarValue(node.Args[0])
	if err != nil {
		return "", nil, err
	}
	return field, value, nil
}

// propertyField decodes a {"property": name} reference into its document
// field.
func propertyField(raw json.RawMessage, q Queryables) (string, error) {
	var ref struct {
		Property string `json:"property"`
	}
	if err := json.Unmarshal(raw, &ref); err != nil || ref.Property == "" {
		return "", ErrNotAProperty
	}
	return q.Field(ref.Property), nil
}

// scalarValue decodes a literal operand (string, number or bool).
func scalarValue(raw json.RawMessage) (any, error) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("%w: bad literal", ErrMalformedExpr)
	}
	switch value.(type) {
	case string, float64, bool, nil:
		return value, nil
	default:
		return nil, fmt.Errorf("%w: literal must be scalar", ErrMalformedExpr)
	}
}

func rangeQuery(field, op string, value any) map[string]any {
	return map[string]any{"range": map[string]any{field: map[string]any{op: value}}}
}
