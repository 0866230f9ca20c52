// stac-api-server - SpatioTemporal Asset Catalog API over Elasticsearch and OpenSearch
// Copyright 2026 EO-DataHub contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/EO-DataHub/stac-api-server

package search

import (
	"encoding/base64"
	"fmt"

	"github.com/goccy/go-json"
)

// Pagination tokens are the sort values of the last hit on a page,
// JSON-encoded and wrapped in unpadded base64url. Opaque to clients;
// decoded straight into search_after on the next request.

// EncodeToken packs sort values into an opaque pagination token.
func EncodeToken(sortValues []any) string {
	if len(sortValues) == 0 {
		return ""
	}
	raw, err := json.Marshal(sortValues)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeToken unpacks a pagination token into search_after sort values.
func DecodeToken(token string) ([]any, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	var sortValues []any
	if err := json.Unmarshal(raw, &sortValues); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	if len(sortValues) == 0 {
		return nil, fmt.Errorf("%w: empty token", ErrBadToken)
	}
	return sortValues, nil
}
