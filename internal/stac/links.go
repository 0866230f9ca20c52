// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package stac

import (
	"net/url"
	"strings"
)

// Extension names understood by the link builders. Conditional links are
// only emitted when the owning extension is enabled.
const (
	ExtFilter      = "filter"
	ExtAggregation = "aggregation"
)

// BaseLinks computes inferred links common to all resources. Base is the
// absolute request base URL (scheme, host and root path).
type BaseLinks struct {
	Base string
}

// NewBaseLinks normalizes the base URL to end with a single slash so that
// relative reference resolution keeps the root path.
func NewBaseLinks(base string) BaseLinks {
	return BaseLinks{Base: strings.TrimRight(base, "/") + "/"}
}

// Resolve resolves href against the request base URL. Absolute hrefs pass
// through unchanged; unparsable hrefs are returned as-is.
func (b BaseLinks) Resolve(href string) string {
	baseURL, err := url.Parse(b.Base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

// SelfLink returns the self link for the service root.
func (b BaseLinks) SelfLink() Link {
	return Link{Rel: RelSelf, Type: MediaTypeJSON, Href: b.Base}
}

// RootLink returns the catalog root link.
func (b BaseLinks) RootLink() Link {
	return Link{Rel: RelRoot, Type: MediaTypeJSON, Href: b.Base}
}

// Merge combines inferred links with links stored on a document. Stored
// links whose relation the server derives (self, parent, root, item,
// collection) are dropped; the rest have relative hrefs resolved against
// the request base so documents may store relative paths.
func (b BaseLinks) Merge(inferred, stored []Link) []Link {
	links := make([]Link, 0, len(inferred)+len(stored))
	links = append(links, inferred...)
	for _, link := range stored {
		if isInferredRel(link.Rel) {
			continue
		}
		link.Href = b.Resolve(link.Href)
		links = append(links, link)
	}
	return links
}

// catalogHrefPath returns the URL path of a catalog identified by its
// parent path and ID: catalogs/{id} at the root, otherwise
// catalogs/{path}/catalogs/{id}.
func catalogHrefPath(catalogPath, catalogID string) string {
	if catalogPath == "" {
		return "catalogs/" + catalogID
	}
	return "catalogs/" + catalogPath + "/catalogs/" + catalogID
}

// collectionPrefix returns the href prefix for collection resources under
// an optional catalog path.
func collectionPrefix(catalogPath string) string {
	if catalogPath == "" {
		return ""
	}
	return "catalogs/" + catalogPath + "/"
}

func hasExtension(extensions []string, name string) bool {
	for _, ext := range extensions {
		if ext == name {
			return true
		}
	}
	return false
}

// CatalogLinks computes inferred links for a catalog.
type CatalogLinks struct {
	BaseLinks
	CatalogPath string
	CatalogID   string
	Extensions  []string
}

// Links returns all inferred links for the catalog.
func (c CatalogLinks) Links() []Link {
	self := catalogHrefPath(c.CatalogPath, c.CatalogID)

	parentHref := c.Base
	if c.CatalogPath != "" {
		parentHref = c.Resolve("catalogs/" + c.CatalogPath)
	}

	links := []Link{
		{Rel: RelSelf, Type: MediaTypeJSON, Href: c.Resolve(self)},
		{Rel: RelRoot, Type: MediaTypeJSON, Href: c.Base},
		{Rel: RelParent, Type: MediaTypeJSON, Href: parentHref},
		{Rel: RelCollections, Type: MediaTypeGeoJSON, Href: c.Resolve(self + "/collections")},
		{Rel: RelData, Type: MediaTypeGeoJSON, Href: c.Resolve(self + "/collections")},
		{Rel: RelCatalogs, Type: MediaTypeGeoJSON, Href: c.Resolve(self + "/catalogs")},
		{
			Rel:   RelConformance,
			Type:  MediaTypeJSON,
			Title: "STAC/WFS3 conformance classes implemented by this server",
			Href:  c.Resolve("conformance"),
		},
		{Rel: RelSearch, Type: MediaTypeGeoJSON, Title: "STAC search", Href: c.Resolve(self + "/search"), Method: "GET"},
		{Rel: RelSearch, Type: MediaTypeGeoJSON, Title: "STAC search", Href: c.Resolve(self + "/search"), Method: "POST"},
	}

	if hasExtension(c.Extensions, ExtFilter) {
		links = append(links, Link{Rel: RelQueryables, Type: MediaTypeJSON, Href: c.Resolve(self + "/queryables")})
	}
	if hasExtension(c.Extensions, ExtAggregation) {
		links = append(links,
			Link{Rel: RelAggregate, Type: MediaTypeJSON, Href: c.Resolve(self + "/aggregate")},
			Link{Rel: RelAggregations, Type: MediaTypeJSON, Href: c.Resolve(self + "/aggregations")},
		)
	}
	return links
}

// CollectionLinks computes inferred links for a collection.
type CollectionLinks struct {
	BaseLinks
	CatalogPath  string
	CollectionID string
	Extensions   []string
}

// Links returns all inferred links for the collection.
func (c CollectionLinks) Links() []Link {
	prefix := collectionPrefix(c.CatalogPath)
	self := prefix + "collections/" + c.CollectionID

	parentHref := c.Base
	if c.CatalogPath != "" {
		parentHref = c.Resolve("catalogs/" + c.CatalogPath)
	}

	links := []Link{
		{Rel: RelSelf, Type: MediaTypeJSON, Href: c.Resolve(self)},
		{Rel: RelRoot, Type: MediaTypeJSON, Href: c.Base},
		{Rel: RelParent, Type: MediaTypeJSON, Href: parentHref},
		{Rel: RelItems, Type: MediaTypeGeoJSON, Href: c.Resolve(self + "/items")},
	}

	if hasExtension(c.Extensions, ExtFilter) {
		links = append(links, Link{Rel: RelQueryables, Type: MediaTypeJSON, Href: c.Resolve(self + "/queryables")})
	}
	if hasExtension(c.Extensions, ExtAggregation) {
		links = append(links,
			Link{Rel: RelAggregate, Type: MediaTypeJSON, Href: c.Resolve(self + "/aggregate")},
			Link{Rel: RelAggregations, Type: MediaTypeJSON, Href: c.Resolve(self + "/aggregations")},
		)
	}
	return links
}

// ItemLinks computes inferred links for an item.
type ItemLinks struct {
	BaseLinks
	CatalogPath  string
	CollectionID string
	ItemID       string
}

// Links returns all inferred links for the item.
func (i ItemLinks) Links() []Link {
	prefix := collectionPrefix(i.CatalogPath)
	collection := prefix + "collections/" + i.CollectionID

	return []Link{
		{Rel: RelSelf, Type: MediaTypeGeoJSON, Href: i.Resolve(collection + "/items/" + i.ItemID)},
		{Rel: RelRoot, Type: MediaTypeJSON, Href: i.Base},
		{Rel: RelParent, Type: MediaTypeJSON, Href: i.Resolve(collection)},
		{Rel: RelCollection, Type: MediaTypeJSON, Href: i.Resolve(collection)},
	}
}

// PagingLinks computes the next link for token-paginated responses.
type PagingLinks struct {
	BaseLinks

	// URL is the full current request URL, including query parameters.
	URL string

	// Method is the request method; GET merges the token into the query
	// string, POST echoes the request body with the token injected.
	Method string

	// Body is the POST request body, echoed on the next link.
	Body map[string]any

	// Next is the opaque pagination token; empty means no next page.
	Next string
}

// NextLink returns the next-page link, or nil when there is no next page.
func (p PagingLinks) NextLink() *Link {
	if p.Next == "" {
		return nil
	}

	if p.Method == "POST" {
		body := make(map[string]any, len(p.Body)+1)
		for k, v := range p.Body {
			body[k] = v
		}
		body["token"] = p.Next
		return &Link{
			Rel:    RelNext,
			Type:   MediaTypeJSON,
			Method: "POST",
			Href:   p.URL,
			Body:   body,
		}
	}

	return &Link{
		Rel:    RelNext,
		Type:   MediaTypeJSON,
		Method: "GET",
		Href:   MergeParams(p.URL, map[string]string{"token": p.Next}),
	}
}

// MergeParams merges query parameters into a URL, overwriting parameters
// with the same name and preserving the rest.
func MergeParams(rawURL string, params map[string]string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	query := u.Query()
	for key, value := range params {
		query.Set(key, value)
	}
	u.RawQuery = query.Encode()
	return u.String()
}
