// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package cql2

// SchemaDocument builds the JSON-schema queryables document served by the
// filter extension's /queryables endpoints.
func SchemaDocument(id, title string, queryables Queryables) map[string]any {
	properties := map[string]any{}
	for name := range queryables {
		properties[name] = queryableSchema(name)
	}
	return map[string]any{
		"$schema":              "https://json-schema.org/draft/2019-09/schema",
		"$id":                  id,
		"type":                 "object",
		"title":                title,
		"properties":           properties,
		"additionalProperties": true,
	}
}

// queryableSchema returns a per-queryable fragment. Core queryables get
// typed schemas; everything else is left unconstrained.
func queryableSchema(name string) map[string]any {
	switch name {
	case "id":
		return map[string]any{
			"description": "Item identifier",
			"$ref":        "https://schemas.stacspec.org/v1.0.0/item-spec/json-schema/item.json#/definitions/core/allOf/2/properties/id",
		}
	case "collection":
		return map[string]any{
			"description": "Collection identifier",
			"type":        "string",
		}
	case "geometry":
		return map[string]any{
			"description": "Item geometry",
			"$ref":        "https://geojson.org/schema/Geometry.json",
		}
	case "datetime":
		return map[string]any{
			"description": "Acquisition datetime",
			"type":        "string",
			"format":      "date-time",
		}
	case "eo:cloud_cover":
		return map[string]any{
			"description": "Cloud cover percentage",
			"type":        "number",
			"minimum":     0,
			"maximum":     100,
		}
	default:
		return map[string]any{"description": name}
	}
}
