package catalog

import (
	"bytes"
	"encoding/json"
	"sort"
)

// listResponse is the listing endpoint payload.
type listResponse struct {
	Count   int             `json:"count"`
	Next    json.RawMessage `json:"next"`
	Results []Summary       `json:"results"`
}

// hasNext interprets the boolean-ish "next" field: absent, null, false and
// the empty string all mean there are no further pages.
func (r listResponse) hasNext() bool {
	raw := bytes.TrimSpace(r.Next)
	switch string(raw) {
	case "", "null", "false", `""`, "0":
		return false
	}
	return true
}

// detailResponse is the detail endpoint payload.
type detailResponse struct {
	ID      int `json:"id"`
	Sprites struct {
		FrontDefault *string `json:"front_default"`
	} `json:"sprites"`
	Types []struct {
		Slot int `json:"slot"`
		Type struct {
			Name string `json:"name"`
		} `json:"type"`
	} `json:"types"`
}

func (r detailResponse) toDetail(identifier string) Detail {
	d := Detail{
		Identifier: identifier,
		NumericID:  r.ID,
	}
	if r.Sprites.FrontDefault != nil {
		d.ImageRef = *r.Sprites.FrontDefault
	}

	types := r.Types
	sort.SliceStable(types, func(i, j int) bool { return types[i].Slot < types[j].Slot })
	for _, t := range types {
		if t.Type.Name != "" {
			d.Categories = append(d.Categories, t.Type.Name)
		}
	}
	return d
}
