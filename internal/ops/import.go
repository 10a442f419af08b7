package ops

import (
	"database/sql"
	"io"
	"time"

	"github.com/hyesung/opsbundle/internal/bundle"
	"github.com/hyesung/opsbundle/internal/csvio"
	"github.com/hyesung/opsbundle/internal/db"
	"github.com/hyesung/opsbundle/internal/errors"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // abort on collision, nothing imported
	ImportModeReplace ImportMode = "replace" // overwrite on collision
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Dataset string
	Kind    ExportKind
	Path    string     // required
	Mode    ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors,omitempty"`
}

// ImportError describes one rejected row.
type ImportError struct {
	Line    int    `json:"line"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// Import reads a CSV export file back into the dataset. Mode error is
// atomic: if any row collides with an existing record or fails to parse,
// nothing is imported.
func Import(database *sql.DB, input ImportInput) (*ImportOutput, error) {
	if input.Path == "" {
		return nil, errors.NewValidation("path is required")
	}
	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ImportFrom(database, file, ImportInput{
		Dataset: input.Dataset,
		Kind:    input.Kind,
		Mode:    input.Mode,
	})
}

// ImportFrom is Import over an already-open reader. The web upload handler
// feeds the multipart file through this.
func ImportFrom(database *sql.DB, r io.Reader, input ImportInput) (*ImportOutput, error) {
	dataset, err := requireDataset(input.Dataset)
	if err != nil {
		return nil, err
	}
	kind, err := requireKind(input.Kind)
	if err != nil {
		return nil, err
	}
	mode := input.Mode
	if mode == "" {
		mode = ImportModeError
	}
	if mode != ImportModeError && mode != ImportModeReplace {
		return nil, errors.NewValidationf("mode must be one of: %s, %s", ImportModeError, ImportModeReplace)
	}

	out := &ImportOutput{}
	err = inTx(database, func(tx *sql.Tx) error {
		switch kind {
		case ExportMain:
			return importBundles(tx, dataset, r, mode, out)
		case ExportMemos:
			return importMemos(tx, dataset, r, mode, out)
		default:
			return importLinks(tx, dataset, r, mode, out)
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func importBundles(tx *sql.Tx, dataset string, r io.Reader, mode ImportMode, out *ImportOutput) error {
	bundles, rowErrors, err := csvio.ReadBundles(r)
	if err != nil {
		return errors.NewValidationf("invalid CSV: %v", err)
	}
	if err := recordRowErrors(rowErrors, mode, out); err != nil {
		return err
	}

	now := time.Now().Unix()
	for i := range bundles {
		b := &bundles[i]
		b.Dataset = dataset
		if b.ID == "" {
			b.ID = newULID()
		}

		exists, err := db.BundleExists(tx, dataset, b.ID)
		if err != nil {
			return err
		}
		if exists && mode == ImportModeError {
			return errors.NewValidationf("bundle %s already exists", b.ID)
		}

		b.Memos = ownedMemos(b, bundle.SyncMemos(nil, b.Commands()))
		if exists {
			current, err := db.GetBundle(tx, dataset, b.ID)
			if err != nil {
				return err
			}
			old, err := db.MemosForBundle(tx, dataset, b.ID)
			if err != nil {
				return err
			}
			b.CreatedAt = current.CreatedAt
			b.UpdatedAt = now
			b.Memos = ownedMemos(b, bundle.SyncMemos(old, b.Commands()))
			if err := db.UpdateBundle(tx, b); err != nil {
				return err
			}
		} else {
			b.CreatedAt = now
			b.UpdatedAt = now
			if err := db.InsertBundle(tx, b); err != nil {
				return err
			}
		}
		if err := db.ReplaceMemos(tx, dataset, b.ID, b.Memos); err != nil {
			return err
		}
		out.Imported++
	}
	return nil
}

// importMemos applies memo fields from a memos CSV onto existing bundles.
// Rows whose bundle or command position does not exist are skipped; the
// command text in the file never overrides the live command list.
func importMemos(tx *sql.Tx, dataset string, r io.Reader, mode ImportMode, out *ImportOutput) error {
	byBundle, rowErrors, err := csvio.ReadMemos(r)
	if err != nil {
		return errors.NewValidationf("invalid CSV: %v", err)
	}
	if err := recordRowErrors(rowErrors, mode, out); err != nil {
		return err
	}

	for bundleID, memos := range byBundle {
		existing, err := db.MemosForBundle(tx, dataset, bundleID)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			if mode == ImportModeError {
				return errors.NewValidationf("bundle %s does not exist", bundleID)
			}
			out.Skipped += len(memos)
			continue
		}
		for _, m := range memos {
			if m.CommandID < 1 || m.CommandID > len(existing) {
				if mode == ImportModeError {
					return errors.NewValidationf("command %d does not exist on bundle %s", m.CommandID, bundleID)
				}
				out.Skipped++
				continue
			}
			m.Dataset = dataset
			m.BundleID = bundleID
			if err := db.UpdateMemoFields(tx, &m); err != nil {
				return err
			}
			out.Imported++
		}
	}
	return nil
}

func importLinks(tx *sql.Tx, dataset string, r io.Reader, mode ImportMode, out *ImportOutput) error {
	links, rowErrors, err := csvio.ReadLinks(r)
	if err != nil {
		return errors.NewValidationf("invalid CSV: %v", err)
	}
	if err := recordRowErrors(rowErrors, mode, out); err != nil {
		return err
	}

	now := time.Now().Unix()
	for i := range links {
		l := &links[i]
		l.Dataset = dataset
		if l.ID == "" {
			l.ID = newULID()
		}

		current, err := db.GetLink(tx, dataset, l.ID)
		switch {
		case err == nil:
			if mode == ImportModeError {
				return errors.NewValidationf("link %s already exists", l.ID)
			}
			l.CreatedAt = current.CreatedAt
			l.UpdatedAt = now
			if err := db.UpdateLink(tx, l); err != nil {
				return err
			}
		case errors.Is(err, errors.ErrNotFound):
			l.CreatedAt = now
			l.UpdatedAt = now
			if err := db.InsertLink(tx, l); err != nil {
				return err
			}
		default:
			return err
		}
		out.Imported++
	}
	return nil
}

// recordRowErrors folds CSV row errors into the output. Mode error treats
// any malformed row as fatal.
func recordRowErrors(rowErrors []csvio.RowError, mode ImportMode, out *ImportOutput) error {
	if len(rowErrors) == 0 {
		return nil
	}
	if mode == ImportModeError {
		first := rowErrors[0]
		return errors.NewValidationf("line %d: %s", first.Line, first.Message)
	}
	for _, re := range rowErrors {
		out.Errors = append(out.Errors, ImportError{
			Line:    re.Line,
			Message: re.Message,
		})
		out.Skipped++
	}
	return nil
}
