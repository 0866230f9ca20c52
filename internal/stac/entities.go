// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package stac

import (
	"github.com/goccy/go-json"
)

// Catalog is the top-level grouping entity. Catalogs nest: a catalog may
// contain child catalogs and collections.
type Catalog struct {
	Type           string   `json:"type"`
	ID             string   `json:"id"`
	StacVersion    string   `json:"stac_version"`
	StacExtensions []string `json:"stac_extensions,omitempty"`
	Title          string   `json:"title,omitempty"`
	Description    string   `json:"description"`
	ConformsTo     []string `json:"conformsTo,omitempty"`
	Links          []Link   `json:"links"`

	// CatalogPath is the URL-form path of the parent chain (for example
	// "supported-datasets/catalogs/ceda"). Persisted with the document,
	// never serialized to clients.
	CatalogPath string `json:"-"`
}

// Collection groups items sharing a schema and extent.
type Collection struct {
	Type           string           `json:"type"`
	ID             string           `json:"id"`
	StacVersion    string           `json:"stac_version"`
	StacExtensions []string         `json:"stac_extensions,omitempty"`
	Title          string           `json:"title,omitempty"`
	Description    string           `json:"description"`
	Keywords       []string         `json:"keywords,omitempty"`
	License        string           `json:"license"`
	Providers      []Provider       `json:"providers,omitempty"`
	Extent         Extent           `json:"extent"`
	Summaries      map[string]any   `json:"summaries,omitempty"`
	Assets         map[string]Asset `json:"assets,omitempty"`
	Links          []Link           `json:"links"`

	CatalogPath string `json:"-"`
}

// Item is a single asset record, serialized as a GeoJSON Feature.
type Item struct {
	Type           string           `json:"type"`
	StacVersion    string           `json:"stac_version"`
	StacExtensions []string         `json:"stac_extensions,omitempty"`
	ID             string           `json:"id"`
	Collection     string           `json:"collection,omitempty"`
	Geometry       json.RawMessage  `json:"geometry"`
	Bbox           []float64        `json:"bbox,omitempty"`
	Properties     map[string]any   `json:"properties"`
	Assets         map[string]Asset `json:"assets"`
	Links          []Link           `json:"links"`
}

// Context reports paging information on an item collection.
type Context struct {
	Returned int   `json:"returned"`
	Limit    int   `json:"limit,omitempty"`
	Matched  int64 `json:"matched,omitempty"`
}

// ItemCollection is a GeoJSON FeatureCollection of items.
type ItemCollection struct {
	Type     string   `json:"type"`
	Features []Item   `json:"features"`
	Links    []Link   `json:"links,omitempty"`
	Context  *Context `json:"context,omitempty"`
}

// Collections is the paged /collections response document.
type Collections struct {
	Collections []Collection `json:"collections"`
	Links       []Link       `json:"links"`
	Context     *Context     `json:"context,omitempty"`
}

// Catalogs is the paged /catalogs response document.
type Catalogs struct {
	Catalogs []Catalog `json:"catalogs"`
	Links    []Link    `json:"links"`
	Context  *Context  `json:"context,omitempty"`
}

// StripInferredLinks removes server-derived relations before a document is
// persisted; the link builders regenerate them on read.
func StripInferredLinks(links []Link) []Link {
	kept := make([]Link, 0, len(links))
	for _, link := range links {
		if !isInferredRel(link.Rel) {
			kept = append(kept, link)
		}
	}
	return kept
}

func isInferredRel(rel string) bool {
	for _, inferred := range InferredLinkRels {
		if rel == inferred {
			return true
		}
	}
	return false
}
