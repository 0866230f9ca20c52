// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package search

// Base index names; the configured prefix namespaces them per deployment.
const (
	indexItems       = "items"
	indexCollections = "collections"
	indexCatalogs    = "catalogs"
)

// itemsMapping types the fields the query builder and the CQL2 translator
// target. Dynamic templates keep unlisted item properties searchable:
// strings land as keyword (term queries and aggregations), anything
// date-shaped as date.
const itemsMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 1
  },
  "mappings": {
    "dynamic_templates": [
      {
        "dates": {
          "match": "*_datetime",
          "mapping": {"type": "date"}
        }
      },
      {
        "strings_as_keywords": {
          "match_mapping_type": "string",
          "mapping": {"type": "keyword", "ignore_above": 1024}
        }
      }
    ],
    "properties": {
      "id": {"type": "keyword"},
      "collection": {"type": "keyword"},
      "geometry": {"type": "geo_shape"},
      "bbox": {"type": "float"},
      "stac_version": {"type": "keyword"},
      "properties": {
        "properties": {
          "datetime": {"type": "date"},
          "start_datetime": {"type": "date"},
          "end_datetime": {"type": "date"},
          "created": {"type": "date"},
          "updated": {"type": "date"},
          "title": {"type": "text"},
          "description": {"type": "text"},
          "keywords": {"type": "text"},
          "eo:cloud_cover": {"type": "float"},
          "gsd": {"type": "float"},
          "platform": {"type": "keyword"},
          "constellation": {"type": "keyword"},
          "instruments": {"type": "keyword"}
        }
      },
      "assets": {"type": "object", "enabled": false},
      "links": {"type": "object", "enabled": false}
    }
  }
}`

const collectionsMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 1
  },
  "mappings": {
    "properties": {
      "id": {"type": "keyword"},
      "catalog_path": {"type": "keyword"},
      "title": {"type": "text"},
      "description": {"type": "text"},
      "keywords": {"type": "text"},
      "license": {"type": "keyword"},
      "extent": {"type": "object", "enabled": false},
      "summaries": {"type": "object", "enabled": false},
      "assets": {"type": "object", "enabled": false},
      "links": {"type": "object", "enabled": false}
    }
  }
}`

const catalogsMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 1
  },
  "mappings": {
    "properties": {
      "id": {"type": "keyword"},
      "catalog_path": {"type": "keyword"},
      "title": {"type": "text"},
      "description": {"type": "text"},
      "links": {"type": "object", "enabled": false}
    }
  }
}`
