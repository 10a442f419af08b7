package ops

import (
	"database/sql"
	"strings"
	"time"

	"github.com/hyesung/opsbundle/internal/bundle"
	"github.com/hyesung/opsbundle/internal/db"
	"github.com/hyesung/opsbundle/internal/errors"
)

// BundleFields carries the user-editable bundle fields as they arrive from
// a form or the CLI. Keywords is the comma-separated wire form.
type BundleFields struct {
	Part            string
	BundleName      string
	CommandText     string
	Description     string
	Keywords        string
	ExpectedOutcome string
	Interpretation  string
	UpdatedDate     string
	Todo            string
}

// CreateInput contains parameters for the Create operation.
type CreateInput struct {
	Dataset string
	Fields  BundleFields
}

// CreateOutput contains the result of the Create operation.
type CreateOutput struct {
	ID string `json:"id"`
}

// Create validates the fields, assigns a new id, splits the Command text,
// and persists the bundle together with its freshly synchronized memos.
func Create(database *sql.DB, input CreateInput) (*CreateOutput, error) {
	dataset, err := requireDataset(input.Dataset)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Fields.BundleName) == "" {
		return nil, errors.NewValidation("bundle_name is required")
	}

	now := time.Now().Unix()
	b := bundleFromFields(dataset, newULID(), input.Fields)
	b.CreatedAt = now
	b.UpdatedAt = now
	b.Memos = ownedMemos(b, bundle.SyncMemos(nil, b.Commands()))

	err = inTx(database, func(tx *sql.Tx) error {
		if err := db.InsertBundle(tx, b); err != nil {
			return err
		}
		return db.ReplaceMemos(tx, dataset, b.ID, b.Memos)
	})
	if err != nil {
		return nil, err
	}

	return &CreateOutput{ID: b.ID}, nil
}

// bundleFromFields builds a Bundle from wire-form fields.
func bundleFromFields(dataset, id string, f BundleFields) *bundle.Bundle {
	return &bundle.Bundle{
		ID:              id,
		Dataset:         dataset,
		Part:            strings.TrimSpace(f.Part),
		BundleName:      strings.TrimSpace(f.BundleName),
		CommandText:     strings.TrimSpace(f.CommandText),
		Description:     f.Description,
		Keywords:        bundle.ParseKeywords(f.Keywords),
		ExpectedOutcome: f.ExpectedOutcome,
		Interpretation:  f.Interpretation,
		UpdatedDate:     bundle.ParseDate(f.UpdatedDate),
		Todo:            f.Todo,
	}
}

// ownedMemos stamps dataset and bundle ownership onto a synchronized memo
// list.
func ownedMemos(b *bundle.Bundle, memos []bundle.CommandMemo) []bundle.CommandMemo {
	for i := range memos {
		memos[i].Dataset = b.Dataset
		memos[i].BundleID = b.ID
	}
	return memos
}
