// Package csvio owns the tabular wire format: typed records in, CSV rows
// out, and back. Nothing outside this package touches raw rows.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hyesung/opsbundle/internal/bundle"
)

// Column headers for the three row shapes. Legacy files produced by the
// predecessor tool use these exact names, including the odd casing of
// "Memo text" and "onenote link".
var (
	MainColumns = []string{"ID", "Part", "Bundle Name", "Command", "Description",
		"Keywords", "Expected Outcome", "Interpretation", "Updated Date", "Todo"}
	MemoColumns = []string{"ID", "Command ID", "Command Text", "Description",
		"Memo text", "onenote link"}
	LinkColumns = []string{"ID", "Bundle ID", "Command ID", "URL", "Description", "Tags"}
)

// RowError describes a row that could not be decoded.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// WriteBundles writes the main CSV: one row per bundle, Command as the
// multi-line join of its commands.
func WriteBundles(w io.Writer, bundles []bundle.Bundle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(MainColumns); err != nil {
		return err
	}
	for _, b := range bundles {
		row := []string{
			b.ID, b.Part, b.BundleName, b.CommandText, b.Description,
			bundle.JoinKeywords(b.Keywords), b.ExpectedOutcome, b.Interpretation,
			b.UpdatedDate, b.Todo,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMemos writes the memo CSV: one row per live CommandMemo, ordered by
// bundle then command position.
func WriteMemos(w io.Writer, bundles []bundle.Bundle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(MemoColumns); err != nil {
		return err
	}
	for _, b := range bundles {
		for _, m := range b.Memos {
			row := []string{
				b.ID, strconv.Itoa(m.CommandID), m.CommandText,
				m.Description, m.MemoText, m.ReferenceLink,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteLinks writes the link CSV. Bundle ID and Command ID columns are
// empty for unattached links.
func WriteLinks(w io.Writer, links []bundle.LinkEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(LinkColumns); err != nil {
		return err
	}
	for _, l := range links {
		commandID := ""
		if l.CommandID > 0 {
			commandID = strconv.Itoa(l.CommandID)
		}
		row := []string{
			l.ID, l.BundleID, commandID, l.URL, l.Description,
			bundle.JoinKeywords(l.Tags),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadBundles decodes a main CSV. Rows with an empty ID are reported as
// row errors and skipped; memos are not attached (they come from the memo
// CSV or from resynchronization).
func ReadBundles(r io.Reader) ([]bundle.Bundle, []RowError, error) {
	rows, header, err := readAll(r)
	if err != nil {
		return nil, nil, err
	}

	var (
		bundles   []bundle.Bundle
		rowErrors []RowError
	)
	for _, row := range rows {
		id := row.get(header, "ID")
		if id == "" {
			rowErrors = append(rowErrors, RowError{Line: row.line, Message: "missing ID"})
			continue
		}
		bundles = append(bundles, bundle.Bundle{
			ID:              id,
			Part:            row.get(header, "Part"),
			BundleName:      row.get(header, "Bundle Name"),
			CommandText:     row.get(header, "Command"),
			Description:     row.get(header, "Description"),
			Keywords:        bundle.ParseKeywords(row.get(header, "Keywords")),
			ExpectedOutcome: row.get(header, "Expected Outcome"),
			Interpretation:  row.get(header, "Interpretation"),
			UpdatedDate:     bundle.ParseDate(row.get(header, "Updated Date")),
			Todo:            row.get(header, "Todo"),
		})
	}
	return bundles, rowErrors, nil
}

// ReadMemos decodes a memo CSV into per-bundle memo lists keyed by bundle
// id. A missing Description column (legacy files) decodes as empty.
func ReadMemos(r io.Reader) (map[string][]bundle.CommandMemo, []RowError, error) {
	rows, header, err := readAll(r)
	if err != nil {
		return nil, nil, err
	}

	memos := make(map[string][]bundle.CommandMemo)
	var rowErrors []RowError
	for _, row := range rows {
		bundleID := row.get(header, "ID")
		if bundleID == "" {
			rowErrors = append(rowErrors, RowError{Line: row.line, Message: "missing ID"})
			continue
		}
		commandID, err := strconv.Atoi(row.get(header, "Command ID"))
		if err != nil || commandID < 1 {
			rowErrors = append(rowErrors, RowError{Line: row.line, Message: "Command ID must be a positive integer"})
			continue
		}
		memos[bundleID] = append(memos[bundleID], bundle.CommandMemo{
			BundleID:      bundleID,
			CommandID:     commandID,
			CommandText:   row.get(header, "Command Text"),
			Description:   row.get(header, "Description"),
			MemoText:      row.get(header, "Memo text"),
			ReferenceLink: row.get(header, "onenote link"),
		})
	}
	return memos, rowErrors, nil
}

// ReadLinks decodes a link CSV.
func ReadLinks(r io.Reader) ([]bundle.LinkEntry, []RowError, error) {
	rows, header, err := readAll(r)
	if err != nil {
		return nil, nil, err
	}

	var (
		links     []bundle.LinkEntry
		rowErrors []RowError
	)
	for _, row := range rows {
		id := row.get(header, "ID")
		if id == "" {
			rowErrors = append(rowErrors, RowError{Line: row.line, Message: "missing ID"})
			continue
		}
		url := row.get(header, "URL")
		if url == "" {
			rowErrors = append(rowErrors, RowError{Line: row.line, Message: "missing URL"})
			continue
		}

		commandID := 0
		if s := row.get(header, "Command ID"); s != "" {
			commandID, err = strconv.Atoi(s)
			if err != nil || commandID < 0 {
				rowErrors = append(rowErrors, RowError{Line: row.line, Message: "Command ID must be a non-negative integer"})
				continue
			}
		}

		links = append(links, bundle.LinkEntry{
			ID:          id,
			BundleID:    row.get(header, "Bundle ID"),
			CommandID:   commandID,
			URL:         url,
			Description: row.get(header, "Description"),
			Tags:        bundle.ParseKeywords(row.get(header, "Tags")),
		})
	}
	return links, rowErrors, nil
}

// row is one data row with its 1-based source line for error reporting.
type row struct {
	line   int
	fields []string
}

// get returns the trimmed value of a named column, or "" when the column
// is absent (tolerates older files with fewer columns).
func (r row) get(header map[string]int, column string) string {
	idx, ok := header[column]
	if !ok || idx >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[idx])
}

// readAll parses the CSV into a header index and data rows. The first
// header cell may carry a UTF-8 BOM (files written by spreadsheet tools).
func readAll(r io.Reader) ([]row, map[string]int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty CSV: missing header row")
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		if i == 0 {
			name = strings.TrimPrefix(name, "\uFEFF")
		}
		header[strings.TrimSpace(name)] = i
	}

	rows := make([]row, 0, len(records)-1)
	for i, fields := range records[1:] {
		rows = append(rows, row{line: i + 2, fields: fields})
	}
	return rows, header, nil
}
