package ops

import (
	"database/sql"
	"strings"
	"time"

	"github.com/hyesung/opsbundle/internal/bundle"
	"github.com/hyesung/opsbundle/internal/db"
	"github.com/hyesung/opsbundle/internal/errors"
)

// UpdateInput contains parameters for the Update operation.
type UpdateInput struct {
	Dataset string
	ID      string
	Fields  BundleFields
}

// UpdateOutput contains the updated aggregate.
type UpdateOutput struct {
	Bundle *bundle.Bundle `json:"bundle"`
}

// Update replaces a bundle's fields and re-synchronizes its memo set
// against the new Command text. The read of the current memos and the
// write of the reconciled set happen in one transaction, so a concurrent
// writer can never interleave and drop or duplicate memo rows.
func Update(database *sql.DB, input UpdateInput) (*UpdateOutput, error) {
	dataset, err := requireDataset(input.Dataset)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.ID) == "" {
		return nil, errors.NewValidation("id is required")
	}
	if strings.TrimSpace(input.Fields.BundleName) == "" {
		return nil, errors.NewValidation("bundle_name is required")
	}

	var updated *bundle.Bundle
	err = inTx(database, func(tx *sql.Tx) error {
		current, err := db.GetBundle(tx, dataset, input.ID)
		if err != nil {
			return err
		}

		b := bundleFromFields(dataset, current.ID, input.Fields)
		b.CreatedAt = current.CreatedAt
		b.UpdatedAt = time.Now().Unix()

		oldMemos, err := db.MemosForBundle(tx, dataset, b.ID)
		if err != nil {
			return err
		}
		b.Memos = ownedMemos(b, bundle.SyncMemos(oldMemos, b.Commands()))

		if err := db.UpdateBundle(tx, b); err != nil {
			return err
		}
		if err := db.ReplaceMemos(tx, dataset, b.ID, b.Memos); err != nil {
			return err
		}

		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &UpdateOutput{Bundle: updated}, nil
}
