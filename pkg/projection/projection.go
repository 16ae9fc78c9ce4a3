// Package projection derives the visible subset of accumulated records for a
// search term. Projections are recomputed on every call and never cached.
package projection

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Sternrassler/catalog-client/pkg/catalog"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Mode selects the matching strategy.
type Mode string

const (
	// ModeSubstring keeps records whose name contains the term, ignoring case,
	// in their original order.
	ModeSubstring Mode = "substring"

	// ModeFuzzy keeps records whose name contains the term's characters in
	// order, ranked by edit distance.
	ModeFuzzy Mode = "fuzzy"
)

// ParseMode converts a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeSubstring:
		return ModeSubstring, nil
	case ModeFuzzy:
		return ModeFuzzy, nil
	default:
		return "", fmt.Errorf("unknown projection mode %q", s)
	}
}

// Project returns the records whose name contains term case-insensitively,
// preserving order. An empty term returns records itself.
func Project(records []catalog.Summary, term string) []catalog.Summary {
	if term == "" {
		return records
	}

	needle := strings.ToLower(term)
	out := make([]catalog.Summary, 0, len(records))
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Name), needle) {
			out = append(out, r)
		}
	}
	return out
}

// ProjectWith applies the given mode. An empty term returns records itself
// regardless of mode.
func ProjectWith(mode Mode, records []catalog.Summary, term string) []catalog.Summary {
	if mode == ModeFuzzy {
		return projectFuzzy(records, term)
	}
	return Project(records, term)
}

func projectFuzzy(records []catalog.Summary, term string) []catalog.Summary {
	if term == "" {
		return records
	}

	targets := make([]string, len(records))
	for i, r := range records {
		targets[i] = r.Name
	}

	ranks := fuzzy.RankFindFold(term, targets)
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].OriginalIndex < ranks[j].OriginalIndex
	})

	out := make([]catalog.Summary, len(ranks))
	for i, rank := range ranks {
		out[i] = records[rank.OriginalIndex]
	}
	return out
}
