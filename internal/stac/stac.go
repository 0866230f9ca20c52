// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

// Package stac defines the STAC entity model (catalogs, collections, items),
// the search request surface, and the hypermedia link builders that compute
// inferred links for API responses.
package stac

// Version is the STAC specification version stamped on emitted entities.
const Version = "1.0.0"

// Media types used in link objects.
const (
	MediaTypeJSON    = "application/json"
	MediaTypeGeoJSON = "application/geo+json"
	MediaTypeOpenAPI = "application/vnd.oai.openapi+json;version=3.0"
	MediaTypeHTML    = "text/html"
)

// Link relation types.
const (
	RelSelf         = "self"
	RelRoot         = "root"
	RelParent       = "parent"
	RelChild        = "child"
	RelItem         = "item"
	RelItems        = "items"
	RelCollection   = "collection"
	RelCollections  = "collections"
	RelCatalogs     = "catalogs"
	RelData         = "data"
	RelSearch       = "search"
	RelNext         = "next"
	RelPrev         = "prev"
	RelConformance  = "conformance"
	RelServiceDesc  = "service-desc"
	RelServiceDoc   = "service-doc"
	RelQueryables   = "queryables"
	RelAggregate    = "aggregate"
	RelAggregations = "aggregations"
)

// InferredLinkRels are relations derivable from the resource identity, so
// they are not stored with documents; the link builders regenerate them on
// every read.
var InferredLinkRels = []string{RelSelf, RelItem, RelParent, RelCollection, RelRoot}

// Link is a STAC hypermedia link.
type Link struct {
	Rel    string         `json:"rel"`
	Type   string         `json:"type,omitempty"`
	Title  string         `json:"title,omitempty"`
	Href   string         `json:"href"`
	Method string         `json:"method,omitempty"`
	Body   map[string]any `json:"body,omitempty"`
}

// Asset is a file or resource associated with an item or collection.
type Asset struct {
	Href        string   `json:"href"`
	Type        string   `json:"type,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Roles       []string `json:"roles,omitempty"`
}

// Provider describes an organization involved in creating or hosting data.
type Provider struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	URL         string   `json:"url,omitempty"`
}

// Extent describes the spatial and temporal coverage of a collection.
type Extent struct {
	Spatial  SpatialExtent  `json:"spatial"`
	Temporal TemporalExtent `json:"temporal"`
}

// SpatialExtent holds one or more bounding boxes.
type SpatialExtent struct {
	Bbox [][]float64 `json:"bbox"`
}

// TemporalExtent holds one or more time intervals; open ends are null.
type TemporalExtent struct {
	Interval [][]*string `json:"interval"`
}
