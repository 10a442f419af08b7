package ops

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hyesung/opsbundle/internal/csvio"
	"github.com/hyesung/opsbundle/internal/db"
	"github.com/hyesung/opsbundle/internal/errors"
)

// ExportKind selects which CSV file an export produces.
type ExportKind string

const (
	ExportMain  ExportKind = "main"  // bundle rows
	ExportMemos ExportKind = "memos" // per-command memo rows
	ExportLinks ExportKind = "links" // link entries
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Dataset string
	Kind    ExportKind
	Path    string // optional, default: <baseDir>/exports/<dataset>-<kind>-<timestamp>.csv
	BaseDir string // used when Path is empty
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// Export writes one dataset's bundles, memos, or links to a CSV file. The
// file is written to a temp path and renamed into place so a failed export
// never clobbers an existing file.
func Export(database *sql.DB, input ExportInput) (*ExportOutput, error) {
	dataset, err := requireDataset(input.Dataset)
	if err != nil {
		return nil, err
	}
	kind, err := requireKind(input.Kind)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	exportPath := input.Path
	if exportPath == "" {
		name := fmt.Sprintf("%s-%s-%s.csv", dataset, kind, now.Format("20060102-150405"))
		exportPath = filepath.Join(input.BaseDir, "exports", name)
	}

	dir := filepath.Dir(exportPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.NewStorage(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewStorage(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewStorage(fmt.Errorf("failed to create export file: %w", err))
	}

	// Clean up the temp file on failure; the original file is preserved.
	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	count, err := WriteExport(file, database, dataset, kind)
	if err != nil {
		return nil, err
	}

	if err := file.Sync(); err != nil {
		return nil, errors.NewStorage(err)
	}
	if err := file.Close(); err != nil {
		return nil, errors.NewStorage(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink at the destination.
	if info, err := os.Lstat(exportPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewStorage(fmt.Errorf("export path is a symlink"))
	}
	if err := os.Rename(tempPath, exportPath); err != nil {
		return nil, errors.NewStorage(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return &ExportOutput{
		Path:       exportPath,
		Count:      count,
		ExportedAt: now.Unix(),
	}, nil
}

// WriteExport streams one dataset's CSV of the given kind to w and returns
// the row count. The web download handler writes straight to the response
// through this.
func WriteExport(w io.Writer, database *sql.DB, dataset string, kind ExportKind) (int, error) {
	kind, err := requireKind(kind)
	if err != nil {
		return 0, err
	}

	switch kind {
	case ExportLinks:
		links, err := db.ListLinks(database, dataset, "")
		if err != nil {
			return 0, err
		}
		if err := csvio.WriteLinks(w, links); err != nil {
			return 0, errors.NewStorage(err)
		}
		return len(links), nil

	default:
		bundles, err := db.ListBundles(database, dataset, db.OrderByInsertion)
		if err != nil {
			return 0, err
		}
		if kind == ExportMain {
			if err := csvio.WriteBundles(w, bundles); err != nil {
				return 0, errors.NewStorage(err)
			}
			return len(bundles), nil
		}
		count := 0
		for i := range bundles {
			bundles[i].Memos, err = db.MemosForBundle(database, dataset, bundles[i].ID)
			if err != nil {
				return 0, err
			}
			count += len(bundles[i].Memos)
		}
		if err := csvio.WriteMemos(w, bundles); err != nil {
			return 0, errors.NewStorage(err)
		}
		return count, nil
	}
}

// ParseExportKind validates a kind string at the caller's boundary. An empty
// string selects the main export.
func ParseExportKind(s string) (ExportKind, error) {
	return requireKind(ExportKind(s))
}

func requireKind(kind ExportKind) (ExportKind, error) {
	switch kind {
	case "":
		return ExportMain, nil
	case ExportMain, ExportMemos, ExportLinks:
		return kind, nil
	}
	return "", errors.NewValidationf("kind must be one of: %s, %s, %s", ExportMain, ExportMemos, ExportLinks)
}
