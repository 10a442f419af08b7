package ops

import (
	"database/sql"
	"testing"

	"github.com/hyesung/opsbundle/internal/db"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func sampleFields(name, commandText string) BundleFields {
	return BundleFields{
		Part:        "network",
		BundleName:  name,
		CommandText: commandText,
		Description: "checks connectivity",
		Keywords:    "dns, timeout",
		UpdatedDate: "2024-03-15",
	}
}

func mustCreate(t *testing.T, database *sql.DB, dataset string, fields BundleFields) string {
	t.Helper()
	out, err := Create(database, CreateInput{Dataset: dataset, Fields: fields})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return out.ID
}

func strPtr(s string) *string {
	return &s
}
