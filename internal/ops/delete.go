package ops

import (
	"database/sql"
	"strings"

	"github.com/hyesung/opsbundle/internal/db"
	"github.com/hyesung/opsbundle/internal/errors"
)

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	Dataset string
	ID      string
}

// DeleteOutput confirms the deletion.
type DeleteOutput struct {
	ID string `json:"id"`
}

// Delete removes a bundle and its memos. Link entries that pointed at the
// bundle are left in place and surface as orphaned on the links page.
func Delete(database *sql.DB, input DeleteInput) (*DeleteOutput, error) {
	dataset, err := requireDataset(input.Dataset)
	if err != nil {
		return nil, err
	}
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewValidation("id is required")
	}

	err = inTx(database, func(tx *sql.Tx) error {
		return db.DeleteBundle(tx, dataset, id)
	})
	if err != nil {
		return nil, err
	}
	return &DeleteOutput{ID: id}, nil
}
