package ops

import (
	"database/sql"
	"strings"

	"github.com/hyesung/opsbundle/internal/bundle"
	"github.com/hyesung/opsbundle/internal/db"
	"github.com/hyesung/opsbundle/internal/errors"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	Dataset string
	ID      string

	// IncludeLinks attaches the bundle's link entries, each resolved
	// against the current command list.
	IncludeLinks bool
}

// FetchOutput contains the full bundle aggregate.
type FetchOutput struct {
	Bundle *bundle.Bundle `json:"bundle"`
	Links  []ResolvedLink `json:"links,omitempty"`
}

// ResolvedLink pairs a link entry with its display-time resolution state.
// Orphaned links are kept, not errors (a stale reference degrades, it does
// not fail).
type ResolvedLink struct {
	bundle.LinkEntry
	Orphaned bool `json:"orphaned"`
}

// Fetch loads a bundle with its ordered memo list.
func Fetch(database *sql.DB, input FetchInput) (*FetchOutput, error) {
	dataset, err := requireDataset(input.Dataset)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.ID) == "" {
		return nil, errors.NewValidation("id is required")
	}

	b, err := db.GetBundle(database, dataset, input.ID)
	if err != nil {
		return nil, err
	}
	b.Memos, err = db.MemosForBundle(database, dataset, b.ID)
	if err != nil {
		return nil, err
	}

	out := &FetchOutput{Bundle: b}
	if input.IncludeLinks {
		links, err := db.ListLinks(database, dataset, b.ID)
		if err != nil {
			return nil, err
		}
		out.Links = resolveLinks(links, map[string]int{b.ID: len(b.Memos)})
	}
	return out, nil
}

// resolveLinks flags each link whose bundle or command position no longer
// exists. commandCounts maps live bundle ids to their command count.
func resolveLinks(links []bundle.LinkEntry, commandCounts map[string]int) []ResolvedLink {
	resolved := make([]ResolvedLink, len(links))
	for i, l := range links {
		r := ResolvedLink{LinkEntry: l}
		if l.BundleID != "" {
			count, ok := commandCounts[l.BundleID]
			if !ok {
				r.Orphaned = true
			} else if l.CommandID > count {
				r.Orphaned = true
			}
		}
		resolved[i] = r
	}
	return resolved
}
