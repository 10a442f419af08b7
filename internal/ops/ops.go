// Package ops implements the bundle store: every operation over one
// dataset's bundles, memos, and links. Each mutating operation runs inside
// a single SQL transaction, which is the per-dataset critical section —
// either the bundle fields and the full memo set land together, or nothing
// does.
package ops

import (
	"crypto/rand"
	"database/sql"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hyesung/opsbundle/internal/errors"
)

// inTx runs fn inside a transaction, rolling back on any error.
func inTx(database *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := database.Begin()
	if err != nil {
		return errors.NewStorage(err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.NewStorage(err)
	}
	return nil
}

// newULID generates a new ULID.
func newULID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// requireDataset validates the dataset identifier common to every input.
func requireDataset(dataset string) (string, error) {
	dataset = strings.TrimSpace(dataset)
	if dataset == "" {
		return "", errors.NewValidation("dataset is required")
	}
	return dataset, nil
}
