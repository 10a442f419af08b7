package ops

import (
	"database/sql"
	"sort"
	"strings"

	"github.com/hyesung/opsbundle/internal/db"
	"github.com/hyesung/opsbundle/internal/errors"
)

// MemoEdit carries user edits to one memo's fields. Nil means "leave the
// field as it is".
type MemoEdit struct {
	Description   *string
	MemoText      *string
	ReferenceLink *string
}

// UpdateMemosInput contains parameters for the UpdateMemos operation,
// keyed by 1-based command position.
type UpdateMemosInput struct {
	Dataset string
	ID      string
	Edits   map[int]MemoEdit
}

// UpdateMemosOutput contains the result of the UpdateMemos operation.
type UpdateMemosOutput struct {
	Updated int `json:"updated"`
}

// UpdateMemos applies per-command edits to description, memo text, and
// reference link. It never changes command text or the memo count; an edit
// addressing a position the bundle doesn't have is a validation error and
// nothing is written.
func UpdateMemos(database *sql.DB, input UpdateMemosInput) (*UpdateMemosOutput, error) {
	dataset, err := requireDataset(input.Dataset)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.ID) == "" {
		return nil, errors.NewValidation("id is required")
	}
	if len(input.Edits) == 0 {
		return &UpdateMemosOutput{}, nil
	}

	// Apply in position order so failures are deterministic.
	positions := make([]int, 0, len(input.Edits))
	for commandID := range input.Edits {
		if commandID < 1 {
			return nil, errors.NewValidationf("command id %d is not a valid position", commandID)
		}
		positions = append(positions, commandID)
	}
	sort.Ints(positions)

	updated := 0
	err = inTx(database, func(tx *sql.Tx) error {
		memos, err := db.MemosForBundle(tx, dataset, input.ID)
		if err != nil {
			return err
		}
		if len(memos) == 0 {
			// Distinguish "bundle has no commands" from "bundle missing".
			if _, err := db.GetBundle(tx, dataset, input.ID); err != nil {
				return err
			}
		}

		byID := make(map[int]int, len(memos))
		for i, m := range memos {
			byID[m.CommandID] = i
		}

		for _, commandID := range positions {
			i, ok := byID[commandID]
			if !ok {
				return errors.NewValidationf("command %d does not exist on bundle %s", commandID, input.ID)
			}

			m := memos[i]
			edit := input.Edits[commandID]
			if edit.Description != nil {
				m.Description = *edit.Description
			}
			if edit.MemoText != nil {
				m.MemoText = *edit.MemoText
			}
			if edit.ReferenceLink != nil {
				m.ReferenceLink = *edit.ReferenceLink
			}

			if err := db.UpdateMemoFields(tx, &m); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &UpdateMemosOutput{Updated: updated}, nil
}
