package cache

import (
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every cache key written by this package.
const KeyPrefix = "catalog"

// Key identifies a cached catalog API response.
type Key struct {
	// Path is the request path relative to the API base (e.g. "/pokemon/25").
	Path string

	// Query holds the request query parameters (e.g. offset, limit).
	Query url.Values
}

// String generates a deterministic cache key string.
// Format: catalog:path:query1=val1:query2=val2
//
// Example:
//
//	catalog:pokemon:limit=20:offset=40
func (k Key) String() string {
	parts := []string{KeyPrefix}

	if path := strings.Trim(k.Path, "/"); path != "" {
		parts = append(parts, path)
	}

	if len(k.Query) > 0 {
		names := make([]string, 0, len(k.Query))
		for name := range k.Query {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, name+"="+k.Query.Get(name))
		}
	}

	return strings.Join(parts, ":")
}
