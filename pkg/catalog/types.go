// Package catalog defines the catalog data model and the HTTP clients for the
// paginated listing endpoint and the per-item detail endpoint.
package catalog

import (
	"net/url"
	"path"
	"strconv"
	"strings"
)

// DefaultPageSize is the number of records requested per page.
const DefaultPageSize = 20

// Summary is a catalog listing entry. Name is the unique key; Reference is
// the opaque locator of the item's detail resource.
type Summary struct {
	Name      string `json:"name"`
	Reference string `json:"url"`
}

// Page is one page of summaries as returned by the listing endpoint.
type Page struct {
	Records []Summary
	HasMore bool
}

// Detail holds the secondary attributes of one catalog item.
// A zero NumericID, empty ImageRef and no Categories mean "nothing known".
type Detail struct {
	Identifier string
	NumericID  int
	ImageRef   string
	Categories []string
}

// EmptyDetail returns the sentinel detail used when a lookup fails.
func EmptyDetail(identifier string) Detail {
	return Detail{Identifier: identifier}
}

// IsEmpty reports whether d carries no attributes.
func (d Detail) IsEmpty() bool {
	return d.NumericID == 0 && d.ImageRef == "" && len(d.Categories) == 0
}

// Identifier returns the key used to look up a summary's detail: the numeric
// id at the end of Reference when there is one, the name otherwise.
func Identifier(s Summary) string {
	if id, ok := numericIDFromReference(s.Reference); ok {
		return strconv.Itoa(id)
	}
	return s.Name
}

func numericIDFromReference(ref string) (int, bool) {
	if ref == "" {
		return 0, false
	}
	p := ref
	if u, err := url.Parse(ref); err == nil {
		p = u.Path
	}
	last := path.Base(strings.TrimRight(p, "/"))
	id, err := strconv.Atoi(last)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
