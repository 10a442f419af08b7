package ops

import (
	"database/sql"

	"github.com/hyesung/opsbundle/internal/bundle"
	"github.com/hyesung/opsbundle/internal/db"
	"github.com/hyesung/opsbundle/internal/errors"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Dataset string

	// KeywordLimit caps the keyword candidate list. Zero or negative
	// disables candidates.
	KeywordLimit int
}

// ListOutput contains all bundles ordered by most recent update, plus the
// most frequent keywords across the dataset for search shortcuts.
type ListOutput struct {
	Bundles  []bundle.Bundle `json:"bundles"`
	Keywords []string        `json:"keywords,omitempty"`
	Total    int             `json:"total"`
}

// List returns every bundle in the dataset, newest update first.
func List(database *sql.DB, input ListInput) (*ListOutput, error) {
	dataset, err := requireDataset(input.Dataset)
	if err != nil {
		return nil, err
	}

	bundles, err := db.ListBundles(database, dataset, db.OrderByUpdatedDate)
	if err != nil {
		return nil, errors.NewStorage(err)
	}

	out := &ListOutput{Bundles: bundles, Total: len(bundles)}
	if input.KeywordLimit > 0 {
		out.Keywords = bundle.KeywordCandidates(bundles, input.KeywordLimit)
	}
	return out, nil
}
