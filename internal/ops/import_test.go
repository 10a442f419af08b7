package ops

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hyesung/opsbundle/internal/errors"
)

func TestImport_RoundTripMain(t *testing.T) {
	database := testDB(t)
	id := mustCreate(t, database, "set_a", sampleFields("round trip", "ping host\nnslookup host"))

	var buf bytes.Buffer
	if _, err := WriteExport(&buf, database, "set_a", ExportMain); err != nil {
		t.Fatalf("WriteExport failed: %v", err)
	}

	// Import into a fresh dataset: the bundle arrives with its id and
	// fields intact and freshly synchronized memos.
	out, err := ImportFrom(database, &buf, ImportInput{Dataset: "set_b", Kind: ExportMain})
	if err != nil {
		t.Fatalf("ImportFrom failed: %v", err)
	}
	if out.Imported != 1 {
		t.Fatalf("Imported = %d, want 1", out.Imported)
	}

	fetched, err := Fetch(database, FetchInput{Dataset: "set_b", ID: id})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if fetched.Bundle.BundleName != "round trip" {
		t.Errorf("BundleName = %q, want %q", fetched.Bundle.BundleName, "round trip")
	}
	if len(fetched.Bundle.Memos) != 2 {
		t.Errorf("len(Memos) = %d, want one memo per command", len(fetched.Bundle.Memos))
	}
}

func TestImport_LegacyNumericIDs(t *testing.T) {
	database := testDB(t)

	csvText := strings.Join([]string{
		"ID,Part,Bundle Name,Command,Description,Keywords,Expected Outcome,Interpretation,Updated Date,Todo",
		`42,network,legacy bundle,"ping host",old desc,"dns, timeout",,,2023-11-02,`,
	}, "\n")

	out, err := ImportFrom(database, strings.NewReader(csvText), ImportInput{Dataset: "set_a", Kind: ExportMain})
	if err != nil {
		t.Fatalf("ImportFrom failed: %v", err)
	}
	if out.Imported != 1 {
		t.Fatalf("Imported = %d, want 1", out.Imported)
	}

	fetched, err := Fetch(database, FetchInput{Dataset: "set_a", ID: "42"})
	if err != nil {
		t.Fatalf("Fetch by legacy id failed: %v", err)
	}
	if fetched.Bundle.BundleName != "legacy bundle" {
		t.Errorf("BundleName = %q, want %q", fetched.Bundle.BundleName, "legacy bundle")
	}
}

func TestImport_ModeErrorOnCollision(t *testing.T) {
	database := testDB(t)
	mustCreate(t, database, "set_a", sampleFields("existing", "a"))

	var buf bytes.Buffer
	if _, err := WriteExport(&buf, database, "set_a", ExportMain); err != nil {
		t.Fatalf("WriteExport failed: %v", err)
	}

	// Same dataset, same ids: mode error must refuse and change nothing.
	_, err := ImportFrom(database, &buf, ImportInput{Dataset: "set_a", Kind: ExportMain, Mode: ImportModeError})
	if !errors.Is(err, errors.ErrValidation) {
		t.Fatalf("ImportFrom should return validation error on collision, got: %v", err)
	}

	listed, err := List(database, ListInput{Dataset: "set_a"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if listed.Total != 1 {
		t.Errorf("Total = %d, collision abort must leave the dataset unchanged", listed.Total)
	}
}

func TestImport_ModeReplaceOverwrites(t *testing.T) {
	database := testDB(t)
	id := mustCreate(t, database, "set_a", sampleFields("before", "ping host"))

	_, err := UpdateMemos(database, UpdateMemosInput{
		Dataset: "set_a",
		ID:      id,
		Edits:   map[int]MemoEdit{1: {MemoText: strPtr("survives replace")}},
	})
	if err != nil {
		t.Fatalf("UpdateMemos failed: %v", err)
	}

	csvText := strings.Join([]string{
		"ID,Part,Bundle Name,Command,Description,Keywords,Expected Outcome,Interpretation,Updated Date,Todo",
		id + `,network,after,"ping host",,,,,2024-05-01,`,
	}, "\n")

	out, err := ImportFrom(database, strings.NewReader(csvText), ImportInput{
		Dataset: "set_a", Kind: ExportMain, Mode: ImportModeReplace,
	})
	if err != nil {
		t.Fatalf("ImportFrom failed: %v", err)
	}
	if out.Imported != 1 {
		t.Fatalf("Imported = %d, want 1", out.Imported)
	}

	fetched, err := Fetch(database, FetchInput{Dataset: "set_a", ID: id})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if fetched.Bundle.BundleName != "after" {
		t.Errorf("BundleName = %q, want %q", fetched.Bundle.BundleName, "after")
	}
	// The command list is unchanged, so the memo carries forward.
	if fetched.Bundle.Memos[0].MemoText != "survives replace" {
		t.Errorf("MemoText = %q, want preserved across replace", fetched.Bundle.Memos[0].MemoText)
	}
}

func TestImport_MemosAppliesInRangeOnly(t *testing.T) {
	database := testDB(t)
	id := mustCreate(t, database, "set_a", sampleFields("short", "only command"))

	csvText := strings.Join([]string{
		"ID,Command ID,Command Text,Description,Memo text,onenote link",
		id + `,1,only command,step,first note,https://wiki/one`,
		id + `,5,phantom,,out of range,`,
	}, "\n")

	out, err := ImportFrom(database, strings.NewReader(csvText), ImportInput{
		Dataset: "set_a", Kind: ExportMemos, Mode: ImportModeReplace,
	})
	if err != nil {
		t.Fatalf("ImportFrom failed: %v", err)
	}
	if out.Imported != 1 || out.Skipped != 1 {
		t.Errorf("Imported = %d, Skipped = %d, want 1 and 1", out.Imported, out.Skipped)
	}

	fetched, err := Fetch(database, FetchInput{Dataset: "set_a", ID: id})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	m := fetched.Bundle.Memos[0]
	if m.MemoText != "first note" || m.ReferenceLink != "https://wiki/one" || m.Description != "step" {
		t.Errorf("memo = %+v, in-range row should apply", m)
	}
}

func TestImport_MemosUnknownBundle(t *testing.T) {
	database := testDB(t)

	csvText := strings.Join([]string{
		"ID,Command ID,Command Text,Description,Memo text,onenote link",
		`ghost,1,cmd,,note,`,
	}, "\n")

	// Mode error refuses the unknown bundle.
	_, err := ImportFrom(database, strings.NewReader(csvText), ImportInput{
		Dataset: "set_a", Kind: ExportMemos, Mode: ImportModeError,
	})
	if !errors.Is(err, errors.ErrValidation) {
		t.Errorf("mode error should refuse unknown bundle, got: %v", err)
	}

	// Mode replace skips it.
	out, err := ImportFrom(database, strings.NewReader(csvText), ImportInput{
		Dataset: "set_a", Kind: ExportMemos, Mode: ImportModeReplace,
	})
	if err != nil {
		t.Fatalf("ImportFrom failed: %v", err)
	}
	if out.Imported != 0 || out.Skipped != 1 {
		t.Errorf("Imported = %d, Skipped = %d, want 0 and 1", out.Imported, out.Skipped)
	}
}

func TestImport_Links(t *testing.T) {
	database := testDB(t)
	id := mustCreate(t, database, "set_a", sampleFields("target", "a"))

	csvText := strings.Join([]string{
		"ID,Bundle ID,Command ID,URL,Description,Tags",
		`lnk1,` + id + `,1,https://wiki/a,runbook,"network, dns"`,
	}, "\n")

	out, err := ImportFrom(database, strings.NewReader(csvText), ImportInput{
		Dataset: "set_a", Kind: ExportLinks,
	})
	if err != nil {
		t.Fatalf("ImportFrom failed: %v", err)
	}
	if out.Imported != 1 {
		t.Fatalf("Imported = %d, want 1", out.Imported)
	}

	listed, err := ListLinks(database, ListLinksInput{Dataset: "set_a"})
	if err != nil {
		t.Fatalf("ListLinks failed: %v", err)
	}
	if listed.Total != 1 || listed.Links[0].URL != "https://wiki/a" {
		t.Errorf("links = %+v", listed.Links)
	}
	if listed.Links[0].Orphaned {
		t.Error("imported link should resolve against the live bundle")
	}
}

func TestImport_MissingFile(t *testing.T) {
	database := testDB(t)

	_, err := Import(database, ImportInput{Dataset: "set_a", Path: "/nonexistent/file.csv"})
	if err == nil {
		t.Fatal("Import of a missing file should fail")
	}
}
