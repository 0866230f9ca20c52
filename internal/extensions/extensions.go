// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

// Package extensions declares the STAC API extension set and assembles the
// conformance classes advertised by the server. An extension here is a
// capability toggle: it gates routes, links and request parameters but has
// no behavior of its own.
package extensions

// Extension identifies an optional API capability.
type Extension string

// Supported extensions.
const (
	Fields           Extension = "fields"
	Query            Extension = "query"
	Sort             Extension = "sort"
	TokenPagination  Extension = "token-pagination"
	Filter           Extension = "filter"
	FreeText         Extension = "free-text"
	Aggregation      Extension = "aggregation"
	Transaction      Extension = "transaction"
	CollectionSearch Extension = "collection-search"
)

// Core conformance classes every deployment advertises.
var coreConformance = []string{
	"https://api.stacspec.org/v1.0.0/core",
	"https://api.stacspec.org/v1.0.0/collections",
	"https://api.stacspec.org/v1.0.0/ogcapi-features",
	"https://api.stacspec.org/v1.0.0/item-search",
	"http://www.opengis.net/spec/ogcapi-common-1/1.0/conf/core",
	"http://www.opengis.net/spec/ogcapi-common-2/1.0/conf/collections",
	"http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/core",
	"http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/oas30",
	"http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/geojson",
}

// conformanceByExtension maps each extension to the classes it contributes.
// The filter entry includes the advanced comparison operators class on top
// of basic CQL2, matching what the engine-backed translator supports.
var conformanceByExtension = map[Extension][]string{
	Fields: {"https://api.stacspec.org/v1.0.0/item-search#fields"},
	Query:  {"https://api.stacspec.org/v1.0.0/item-search#query"},
	Sort:   {"https://api.stacspec.org/v1.0.0/item-search#sort"},
	Filter: {
		"https://api.stacspec.org/v1.0.0-rc.2/item-search#filter",
		"http://www.opengis.net/spec/ogcapi-features-3/1.0/conf/filter",
		"http://www.opengis.net/spec/cql2/1.0/conf/cql2-json",
		"http://www.opengis.net/spec/cql2/1.0/conf/basic-cql2",
		"http://www.opengis.net/spec/cql2/1.0/conf/basic-spatial-operators",
		"http://www.opengis.net/spec/cql2/1.0/conf/temporal-operators",
		"http://www.opengis.net/spec/cql2/1.0/conf/advanced-comparison-operators",
	},
	FreeText:    {"https://api.stacspec.org/v0.1.0/free-text"},
	Aggregation: {"https://api.stacspec.org/v0.3.0/aggregation"},
	Transaction: {"https://api.stacspec.org/v1.0.0/ogcapi-features/extensions/transaction"},
	CollectionSearch: {
		"https://api.stacspec.org/v1.0.0-rc.1/collection-search",
		"https://api.stacspec.org/v1.0.0-rc.1/collection-search#free-text",
	},
}

// Set is an ordered collection of enabled extensions.
type Set struct {
	enabled []Extension
}

// NewSet builds a set from explicit extensions, preserving order and
// dropping duplicates.
func NewSet(exts ...Extension) Set {
	seen := make(map[Extension]bool, len(exts))
	var enabled []Extension
	for _, ext := range exts {
		if !seen[ext] {
			seen[ext] = true
			enabled = append(enabled, ext)
		}
	}
	return Set{enabled: enabled}
}

// DefaultSet assembles the standard extension line-up: the search
// extensions always, plus transactions when writes are enabled or
// collection search when they are not.
func DefaultSet(transactionsEnabled bool) Set {
	exts := []Extension{
		Aggregation,
		Fields,
		Query,
		Sort,
		TokenPagination,
		Filter,
		FreeText,
	}
	if transactionsEnabled {
		exts = append(exts, Transaction)
	} else {
		exts = append(exts, CollectionSearch)
	}
	return NewSet(exts...)
}

// Has reports whether the extension is enabled.
func (s Set) Has(ext Extension) bool {
	for _, e := range s.enabled {
		if e == ext {
			return true
		}
	}
	return false
}

// List returns the enabled extensions in order.
func (s Set) List() []Extension {
	out := make([]Extension, len(s.enabled))
	copy(out, s.enabled)
	return out
}

// LinkNames returns the extension names the link builders key on.
func (s Set) LinkNames() []string {
	names := make([]string, 0, len(s.enabled))
	for _, ext := range s.enabled {
		names = append(names, string(ext))
	}
	return names
}

// ConformanceClasses returns the core classes plus the classes contributed
// by each enabled extension, in declaration order.
func (s Set) ConformanceClasses() []string {
	classes := make([]string, 0, len(coreConformance)+8)
	classes = append(classes, coreConformance...)
	for _, ext := range s.enabled {
		classes = append(classes, conformanceByExtension[ext]...)
	}
	return classes
}
