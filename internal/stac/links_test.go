// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package stac

import (
	"net/url"
	"strings"
	"testing"
)

const testBase = "https://stac.example.com/api/"

func linkByRel(t *testing.T, links []Link, rel string) Link {
	t.Helper()
	for _, link := range links {
		if link.Rel == rel {
			return link
		}
	}
	t.Fatalf("no link with rel %q in %+v", rel, links)
	return Link{}
}

func linksByRel(links []Link, rel string) []Link {
	var found []Link
	for _, link := range links {
		if link.Rel == rel {
			found = append(found, link)
		}
	}
	return found
}

func TestNewBaseLinksNormalizesTrailingSlash(t *testing.T) {
	t.Parallel()

	for _, base := range []string{"https://x.test/api", "https://x.test/api/", "https://x.test/api//"} {
		b := NewBaseLinks(base)
		if b.Base != "https://x.test/api/" {
			t.Errorf("NewBaseLinks(%q).Base = %q", base, b.Base)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	b := NewBaseLinks(testBase)

	cases := []struct {
		href string
		want string
	}{
		{"collections/s2", "https://stac.example.com/api/collections/s2"},
		{"conformance", "https://stac.example.com/api/conformance"},
		{"https://other.test/abs", "https://other.test/abs"},
		{"", testBase},
	}
	for _, tc := range cases {
		if got := b.Resolve(tc.href); got != tc.want {
			t.Errorf("Resolve(%q) = %q, want %q", tc.href, got, tc.want)
		}
	}
}

func TestCatalogLinksRootLevel(t *testing.T) {
	t.Parallel()

	links := CatalogLinks{
		BaseLinks: NewBaseLinks(testBase),
		CatalogID: "supported-datasets",
	}.Links()

	self := linkByRel(t, links, RelSelf)
	if self.Href != testBase+"catalogs/supported-datasets" {
		t.Errorf("unexpected self href %q", self.Href)
	}
	parent := linkByRel(t, links, RelParent)
	if parent.Href != testBase {
		t.Errorf("root-level catalog parent should be the base URL, got %q", parent.Href)
	}
	data := linkByRel(t, links, RelData)
	if data.Href != testBase+"catalogs/supported-datasets/collections" {
		t.Errorf("unexpected data href %q", data.Href)
	}
	if data.Type != MediaTypeGeoJSON {
		t.Errorf("unexpected data type %q", data.Type)
	}

	searches := linksByRel(links, RelSearch)
	if len(searches) != 2 {
		t.Fatalf("expected GET and POST search links, got %d", len(searches))
	}
	methods := map[string]bool{}
	for _, s := range searches {
		methods[s.Method] = true
		if s.Href != testBase+"catalogs/supported-datasets/search" {
			t.Errorf("unexpected search href %q", s.Href)
		}
	}
	if !methods["GET"] || !methods["POST"] {
		t.Errorf("expected GET and POST methods, got %v", methods)
	}

	// No filter/aggregation extension: conditional links absent.
	if got := linksByRel(links, RelQueryables); len(got) != 0 {
		t.Error("queryables link emitted without filter extension")
	}
	if got := linksByRel(links, RelAggregate); len(got) != 0 {
		t.Error("aggregate link emitted without aggregation extension")
	}
}

func TestCatalogLinksNested(t *testing.T) {
	t.Parallel()

	links := CatalogLinks{
		BaseLinks:   NewBaseLinks(testBase),
		CatalogPath: "supported-datasets",
		CatalogID:   "ceda",
		Extensions:  []string{ExtFilter, ExtAggregation},
	}.Links()

	self := linkByRel(t, links, RelSelf)
	want := testBase + "catalogs/supported-datasets/catalogs/ceda"
	if self.Href != want {
		t.Errorf("self href = %q, want %q", self.Href, want)
	}
	parent := linkByRel(t, links, RelParent)
	if parent.Href != testBase+"catalogs/supported-datasets" {
		t.Errorf("unexpected parent href %q", parent.Href)
	}
	queryables := linkByRel(t, links, RelQueryables)
	if queryables.Href != want+"/queryables" {
		t.Errorf("unexpected queryables href %q", queryables.Href)
	}
	aggregations := linkByRel(t, links, RelAggregations)
	if aggregations.Href != want+"/aggregations" {
		t.Errorf("unexpected aggregations href %q", aggregations.Href)
	}
}

func TestCollectionLinks(t *testing.T) {
	t.Parallel()

	t.Run("root level", func(t *testing.T) {
		t.Parallel()
		links := CollectionLinks{
			BaseLinks:    NewBaseLinks(testBase),
			CollectionID: "sentinel-2-l2a",
		}.Links()

		self := linkByRel(t, links, RelSelf)
		if self.Href != testBase+"collections/sentinel-2-l2a" {
			t.Errorf("unexpected self href %q", self.Href)
		}
		items := linkByRel(t, links, RelItems)
		if items.Href != testBase+"collections/sentinel-2-l2a/items" {
			t.Errorf("unexpected items href %q", items.Href)
		}
		if items.Type != MediaTypeGeoJSON {
			t.Errorf("items link should be geojson, got %q", items.Type)
		}
	})

	t.Run("under catalog path", func(t *testing.T) {
		t.Parallel()
		links := CollectionLinks{
			BaseLinks:    NewBaseLinks(testBase),
			CatalogPath:  "supported-datasets/catalogs/ceda",
			CollectionID: "sentinel-2-l2a",
			Extensions:   []string{ExtFilter},
		}.Links()

		self := linkByRel(t, links, RelSelf)
		want := testBase + "catalogs/supported-datasets/catalogs/ceda/collections/sentinel-2-l2a"
		if self.Href != want {
			t.Errorf("self href = %q, want %q", self.Href, want)
		}
		queryables := linkByRel(t, links, RelQueryables)
		if queryables.Href != want+"/queryables" {
			t.Errorf("unexpected queryables href %q", queryables.Href)
		}
	})
}

func TestItemLinks(t *testing.T) {
	t.Parallel()

	links := ItemLinks{
		BaseLinks:    NewBaseLinks(testBase),
		CollectionID: "sentinel-2-l2a",
		ItemID:       "S2A_0001",
	}.Links()

	self := linkByRel(t, links, RelSelf)
	if self.Href != testBase+"collections/sentinel-2-l2a/items/S2A_0001" {
		t.Errorf("unexpected self href %q", self.Href)
	}
	if self.Type != MediaTypeGeoJSON {
		t.Errorf("item self link should be geojson, got %q", self.Type)
	}
	parent := linkByRel(t, links, RelParent)
	collection := linkByRel(t, links, RelCollection)
	if parent.Href != collection.Href {
		t.Errorf("parent %q and collection %q should match", parent.Href, collection.Href)
	}
}

func TestMergeDropsInferredAndResolves(t *testing.T) {
	t.Parallel()

	b := NewBaseLinks(testBase)
	inferred := []Link{b.SelfLink(), b.RootLink()}
	stored := []Link{
		{Rel: RelSelf, Href: "https://stale.test/self"},
		{Rel: RelParent, Href: "https://stale.test/parent"},
		{Rel: "license", Href: "licenses/sentinel.html"},
		{Rel: "describedby", Href: "https://docs.example.com/s2"},
	}

	merged := b.Merge(inferred, stored)

	if len(merged) != 4 {
		t.Fatalf("expected 4 links, got %d: %+v", len(merged), merged)
	}
	if got := linksByRel(merged, RelSelf); len(got) != 1 || got[0].Href != testBase {
		t.Errorf("stored self link should have been dropped, got %+v", got)
	}
	license := linkByRel(t, merged, "license")
	if license.Href != testBase+"licenses/sentinel.html" {
		t.Errorf("relative stored href not resolved, got %q", license.Href)
	}
	described := linkByRel(t, merged, "describedby")
	if described.Href != "https://docs.example.com/s2" {
		t.Errorf("absolute stored href changed: %q", described.Href)
	}
}

func TestPagingLinksGET(t *testing.T) {
	t.Parallel()

	current := testBase + "search?collections=s2&limit=10"
	next := PagingLinks{
		BaseLinks: NewBaseLinks(testBase),
		URL:       current,
		Method:    "GET",
		Next:      "tok123",
	}.NextLink()

	if next == nil {
		t.Fatal("expected a next link")
	}
	u, err := url.Parse(next.Href)
	if err != nil {
		t.Fatalf("next href is not a URL: %v", err)
	}
	q := u.Query()
	if q.Get("token") != "tok123" {
		t.Errorf("token not merged, got %q", next.Href)
	}
	if q.Get("collections") != "s2" || q.Get("limit") != "10" {
		t.Errorf("existing params not preserved, got %q", next.Href)
	}
}

func TestPagingLinksGETReplacesToken(t *testing.T) {
	t.Parallel()

	current := testBase + "search?token=old&limit=10"
	next := PagingLinks{
		BaseLinks: NewBaseLinks(testBase),
		URL:       current,
		Method:    "GET",
		Next:      "new",
	}.NextLink()

	if next == nil {
		t.Fatal("expected a next link")
	}
	if strings.Contains(next.Href, "old") {
		t.Errorf("stale token survived merge: %q", next.Href)
	}
	u, _ := url.Parse(next.Href)
	if u.Query().Get("token") != "new" {
		t.Errorf("expected replaced token, got %q", next.Href)
	}
}

func TestPagingLinksPOST(t *testing.T) {
	t.Parallel()

	body := map[string]any{"collections": []string{"s2"}, "limit": 10}
	next := PagingLinks{
		BaseLinks: NewBaseLinks(testBase),
		URL:       testBase + "search",
		Method:    "POST",
		Body:      body,
		Next:      "tok456",
	}.NextLink()

	if next == nil {
		t.Fatal("expected a next link")
	}
	if next.Method != "POST" {
		t.Errorf("expected POST method, got %q", next.Method)
	}
	if next.Href != testBase+"search" {
		t.Errorf("unexpected href %q", next.Href)
	}
	if next.Body["token"] != "tok456" {
		t.Errorf("token not injected into body: %+v", next.Body)
	}
	if next.Body["limit"] != 10 {
		t.Errorf("original body fields lost: %+v", next.Body)
	}
	if _, tainted := body["token"]; tainted {
		t.Error("original request body mutated")
	}
}

func TestPagingLinksNoToken(t *testing.T) {
	t.Parallel()

	next := PagingLinks{BaseLinks: NewBaseLinks(testBase), URL: testBase + "search", Method: "GET"}.NextLink()
	if next != nil {
		t.Errorf("expected nil next link without token, got %+v", next)
	}
}

func TestStripInferredLinks(t *testing.T) {
	t.Parallel()

	links := []Link{
		{Rel: RelSelf, Href: "a"},
		{Rel: RelRoot, Href: "b"},
		{Rel: RelParent, Href: "c"},
		{Rel: "license", Href: "d"},
		{Rel: RelCollection, Href: "e"},
	}
	kept := StripInferredLinks(links)
	if len(kept) != 1 || kept[0].Rel != "license" {
		t.Errorf("expected only the license link to survive, got %+v", kept)
	}
}
