package db

import (
	"database/sql"
	"encoding/json"

	"github.com/hyesung/opsbundle/internal/bundle"
	"github.com/hyesung/opsbundle/internal/errors"
)

// Queryer is satisfied by both *sql.DB and *sql.Tx, so the same queries run
// standalone or inside a write transaction. Mutating operations always go
// through a transaction (the per-dataset critical section).
type Queryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

const bundleColumns = `dataset, id, part, bundle_name, command_text, description,
	keywords_json, expected_outcome, interpretation, updated_date, todo,
	created_at, updated_at`

// InsertBundle stores a new bundle row (memos are written separately).
func InsertBundle(q Queryer, b *bundle.Bundle) error {
	keywordsJSON, err := marshalStrings(b.Keywords)
	if err != nil {
		return errors.NewStorage(err)
	}

	query := `
		INSERT INTO bundles (` + bundleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = q.Exec(query,
		b.Dataset, b.ID, b.Part, b.BundleName, b.CommandText, b.Description,
		keywordsJSON, b.ExpectedOutcome, b.Interpretation, b.UpdatedDate, b.Todo,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return errors.NewStorage(err)
	}
	return nil
}

// GetBundle retrieves a bundle row by id. Memos are not attached; use
// MemosForBundle for the ordered memo list.
func GetBundle(q Queryer, dataset, id string) (*bundle.Bundle, error) {
	query := `SELECT ` + bundleColumns + ` FROM bundles WHERE dataset = ? AND id = ?`

	b, err := scanBundle(q.QueryRow(query, dataset, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("bundle", id)
	}
	if err != nil {
		return nil, errors.NewStorage(err)
	}
	return b, nil
}

// ListBundles returns all bundles in a dataset. Order is controlled by the
// caller: OrderByInsertion (stable create order) or OrderByUpdatedDate
// (newest revision first, the home page order).
func ListBundles(q Queryer, dataset string, order BundleOrder) ([]bundle.Bundle, error) {
	query := `SELECT ` + bundleColumns + ` FROM bundles WHERE dataset = ?`
	switch order {
	case OrderByUpdatedDate:
		query += ` ORDER BY updated_date DESC, created_at DESC, id DESC`
	default:
		query += ` ORDER BY created_at ASC, id ASC`
	}

	rows, err := q.Query(query, dataset)
	if err != nil {
		return nil, errors.NewStorage(err)
	}
	defer rows.Close()

	var bundles []bundle.Bundle
	for rows.Next() {
		b, err := scanBundleRows(rows)
		if err != nil {
			return nil, errors.NewStorage(err)
		}
		bundles = append(bundles, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorage(err)
	}
	return bundles, nil
}

// BundleOrder selects the ordering of ListBundles results.
type BundleOrder int

const (
	OrderByInsertion BundleOrder = iota
	OrderByUpdatedDate
)

// UpdateBundle updates all mutable fields of an existing bundle row.
// Does NOT change: dataset, id, created_at.
func UpdateBundle(q Queryer, b *bundle.Bundle) error {
	keywordsJSON, err := marshalStrings(b.Keywords)
	if err != nil {
		return errors.NewStorage(err)
	}

	query := `
		UPDATE bundles
		SET part = ?, bundle_name = ?, command_text = ?, description = ?,
			keywords_json = ?, expected_outcome = ?, interpretation = ?,
			updated_date = ?, todo = ?, updated_at = ?
		WHERE dataset = ? AND id = ?
	`
	result, err := q.Exec(query,
		b.Part, b.BundleName, b.CommandText, b.Description,
		keywordsJSON, b.ExpectedOutcome, b.Interpretation,
		b.UpdatedDate, b.Todo, b.UpdatedAt,
		b.Dataset, b.ID,
	)
	if err != nil {
		return errors.NewStorage(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewStorage(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("bundle", b.ID)
	}
	return nil
}

// DeleteBundle removes a bundle row and all its memos. Links are left in
// place and degrade to unresolvable references.
func DeleteBundle(q Queryer, dataset, id string) error {
	result, err := q.Exec(`DELETE FROM bundles WHERE dataset = ? AND id = ?`, dataset, id)
	if err != nil {
		return errors.NewStorage(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewStorage(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("bundle", id)
	}

	if _, err := q.Exec(`DELETE FROM memos WHERE dataset = ? AND bundle_id = ?`, dataset, id); err != nil {
		return errors.NewStorage(err)
	}
	return nil
}

// MemosForBundle returns a bundle's memos ordered by command_id.
func MemosForBundle(q Queryer, dataset, bundleID string) ([]bundle.CommandMemo, error) {
	query := `
		SELECT dataset, bundle_id, command_id, command_text, description, memo_text, reference_link
		FROM memos
		WHERE dataset = ? AND bundle_id = ?
		ORDER BY command_id ASC
	`
	rows, err := q.Query(query, dataset, bundleID)
	if err != nil {
		return nil, errors.NewStorage(err)
	}
	defer rows.Close()

	var memos []bundle.CommandMemo
	for rows.Next() {
		var m bundle.CommandMemo
		if err := rows.Scan(&m.Dataset, &m.BundleID, &m.CommandID, &m.CommandText,
			&m.Description, &m.MemoText, &m.ReferenceLink); err != nil {
			return nil, errors.NewStorage(err)
		}
		memos = append(memos, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorage(err)
	}
	return memos, nil
}

// ReplaceMemos swaps a bundle's full memo set for the given list. Run it
// inside the same transaction as the bundle write so the count invariant
// is never observable broken.
func ReplaceMemos(q Queryer, dataset, bundleID string, memos []bundle.CommandMemo) error {
	if _, err := q.Exec(`DELETE FROM memos WHERE dataset = ? AND bundle_id = ?`, dataset, bundleID); err != nil {
		return errors.NewStorage(err)
	}

	query := `
		INSERT INTO memos (dataset, bundle_id, command_id, command_text, description, memo_text, reference_link)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for _, m := range memos {
		if _, err := q.Exec(query, dataset, bundleID, m.CommandID, m.CommandText,
			m.Description, m.MemoText, m.ReferenceLink); err != nil {
			return errors.NewStorage(err)
		}
	}
	return nil
}

// UpdateMemoFields updates the user-owned fields of one memo. Command text
// and position never change here; that is synchronization's job.
func UpdateMemoFields(q Queryer, m *bundle.CommandMemo) error {
	query := `
		UPDATE memos
		SET description = ?, memo_text = ?, reference_link = ?
		WHERE dataset = ? AND bundle_id = ? AND command_id = ?
	`
	result, err := q.Exec(query, m.Description, m.MemoText, m.ReferenceLink,
		m.Dataset, m.BundleID, m.CommandID)
	if err != nil {
		return errors.NewStorage(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewStorage(err)
	}
	if rowsAffected == 0 {
		return errors.NewValidationf("command %d does not exist on bundle %s", m.CommandID, m.BundleID)
	}
	return nil
}

const linkColumns = `dataset, id, bundle_id, command_id, url, description, tags_json, created_at, updated_at`

// InsertLink stores a new link entry.
func InsertLink(q Queryer, l *bundle.LinkEntry) error {
	tagsJSON, err := marshalStrings(l.Tags)
	if err != nil {
		return errors.NewStorage(err)
	}

	query := `INSERT INTO links (` + linkColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = q.Exec(query, l.Dataset, l.ID, l.BundleID, l.CommandID,
		l.URL, l.Description, tagsJSON, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return errors.NewStorage(err)
	}
	return nil
}

// GetLink retrieves a link entry by id.
func GetLink(q Queryer, dataset, id string) (*bundle.LinkEntry, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE dataset = ? AND id = ?`

	l, err := scanLink(q.QueryRow(query, dataset, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("link", id)
	}
	if err != nil {
		return nil, errors.NewStorage(err)
	}
	return l, nil
}

// ListLinks returns all links in a dataset in insertion order. When
// bundleID is non-empty, only links attached to that bundle are returned.
func ListLinks(q Queryer, dataset, bundleID string) ([]bundle.LinkEntry, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE dataset = ?`
	args := []any{dataset}
	if bundleID != "" {
		query += ` AND bundle_id = ?`
		args = append(args, bundleID)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, errors.NewStorage(err)
	}
	defer rows.Close()

	var links []bundle.LinkEntry
	for rows.Next() {
		l, err := scanLinkRows(rows)
		if err != nil {
			return nil, errors.NewStorage(err)
		}
		links = append(links, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorage(err)
	}
	return links, nil
}

// UpdateLink updates the mutable fields of an existing link entry.
func UpdateLink(q Queryer, l *bundle.LinkEntry) error {
	tagsJSON, err := marshalStrings(l.Tags)
	if err != nil {
		return errors.NewStorage(err)
	}

	query := `
		UPDATE links
		SET bundle_id = ?, command_id = ?, url = ?, description = ?, tags_json = ?, updated_at = ?
		WHERE dataset = ? AND id = ?
	`
	result, err := q.Exec(query, l.BundleID, l.CommandID, l.URL, l.Description,
		tagsJSON, l.UpdatedAt, l.Dataset, l.ID)
	if err != nil {
		return errors.NewStorage(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewStorage(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("link", l.ID)
	}
	return nil
}

// DeleteLink removes a link entry.
func DeleteLink(q Queryer, dataset, id string) error {
	result, err := q.Exec(`DELETE FROM links WHERE dataset = ? AND id = ?`, dataset, id)
	if err != nil {
		return errors.NewStorage(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewStorage(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("link", id)
	}
	return nil
}

// BundleExists reports whether a bundle row exists.
func BundleExists(q Queryer, dataset, id string) (bool, error) {
	var one int
	err := q.QueryRow(`SELECT 1 FROM bundles WHERE dataset = ? AND id = ? LIMIT 1`, dataset, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewStorage(err)
	}
	return true, nil
}

// CommandCounts maps every bundle id in the dataset to its command count.
// Bundles without memos map to zero.
func CommandCounts(q Queryer, dataset string) (map[string]int, error) {
	counts := make(map[string]int)

	rows, err := q.Query(`SELECT id FROM bundles WHERE dataset = ?`, dataset)
	if err != nil {
		return nil, errors.NewStorage(err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewStorage(err)
		}
		counts[id] = 0
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorage(err)
	}

	memoRows, err := q.Query(
		`SELECT bundle_id, COUNT(*) FROM memos WHERE dataset = ? GROUP BY bundle_id`,
		dataset,
	)
	if err != nil {
		return nil, errors.NewStorage(err)
	}
	defer memoRows.Close()
	for memoRows.Next() {
		var (
			id    string
			count int
		)
		if err := memoRows.Scan(&id, &count); err != nil {
			return nil, errors.NewStorage(err)
		}
		if _, ok := counts[id]; ok {
			counts[id] = count
		}
	}
	if err := memoRows.Err(); err != nil {
		return nil, errors.NewStorage(err)
	}
	return counts, nil
}

// scanner abstracts *sql.Row and *sql.Rows for the scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanBundle(row *sql.Row) (*bundle.Bundle, error) { return scanBundleFrom(row) }

func scanBundleRows(rows *sql.Rows) (*bundle.Bundle, error) { return scanBundleFrom(rows) }

func scanBundleFrom(s scanner) (*bundle.Bundle, error) {
	var (
		b            bundle.Bundle
		keywordsJSON sql.NullString
	)
	err := s.Scan(
		&b.Dataset, &b.ID, &b.Part, &b.BundleName, &b.CommandText, &b.Description,
		&keywordsJSON, &b.ExpectedOutcome, &b.Interpretation, &b.UpdatedDate, &b.Todo,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if keywordsJSON.Valid && keywordsJSON.String != "" {
		if err := json.Unmarshal([]byte(keywordsJSON.String), &b.Keywords); err != nil {
			return nil, err
		}
	}
	return &b, nil
}

func scanLink(row *sql.Row) (*bundle.LinkEntry, error) { return scanLinkFrom(row) }

func scanLinkRows(rows *sql.Rows) (*bundle.LinkEntry, error) { return scanLinkFrom(rows) }

func scanLinkFrom(s scanner) (*bundle.LinkEntry, error) {
	var (
		l        bundle.LinkEntry
		tagsJSON sql.NullString
	)
	err := s.Scan(&l.Dataset, &l.ID, &l.BundleID, &l.CommandID,
		&l.URL, &l.Description, &tagsJSON, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &l.Tags); err != nil {
			return nil, err
		}
	}
	return &l, nil
}

// marshalStrings converts a string list to its nullable JSON column form.
func marshalStrings(values []string) (sql.NullString, error) {
	if len(values) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
