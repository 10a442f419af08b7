package ops

import (
	"database/sql"
	"strings"

	"github.com/hyesung/opsbundle/internal/bundle"
	"github.com/hyesung/opsbundle/internal/db"
	"github.com/hyesung/opsbundle/internal/errors"
)

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Dataset string

	// Name and Keyword are case-insensitive substring filters combined
	// disjunctively: a bundle matches when either non-empty filter hits.
	// Both empty means match everything.
	Name    string
	Keyword string
}

// SearchOutput contains matching bundles in insertion order.
type SearchOutput struct {
	Bundles []bundle.Bundle `json:"bundles"`
	Total   int             `json:"total"`
}

// Search filters bundles by name and keyword. Keyword filtering happens in
// Go because keywords are stored as a JSON array and a SQL LIKE over the
// serialized form would match across element boundaries.
func Search(database *sql.DB, input SearchInput) (*SearchOutput, error) {
	dataset, err := requireDataset(input.Dataset)
	if err != nil {
		return nil, err
	}

	all, err := db.ListBundles(database, dataset, db.OrderByInsertion)
	if err != nil {
		return nil, errors.NewStorage(err)
	}

	name := strings.ToLower(strings.TrimSpace(input.Name))
	keyword := strings.ToLower(strings.TrimSpace(input.Keyword))

	matched := make([]bundle.Bundle, 0, len(all))
	for _, b := range all {
		nameHit := name != "" && strings.Contains(strings.ToLower(b.BundleName), name)
		keywordHit := keyword != "" && matchesKeyword(b.Keywords, keyword)
		if name == "" && keyword == "" {
			matched = append(matched, b)
			continue
		}
		if nameHit || keywordHit {
			matched = append(matched, b)
		}
	}
	return &SearchOutput{Bundles: matched, Total: len(matched)}, nil
}

func matchesKeyword(keywords []string, needle string) bool {
	for _, k := range keywords {
		if strings.Contains(strings.ToLower(k), needle) {
			return true
		}
	}
	return false
}
