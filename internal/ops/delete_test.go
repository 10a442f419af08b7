package ops

import (
	"testing"

	"github.com/hyesung/opsbundle/internal/errors"
)

func TestDelete_RemovesBundleAndMemos(t *testing.T) {
	database := testDB(t)
	id := mustCreate(t, database, "set_a", sampleFields("doomed", "a\nb"))

	out, err := Delete(database, DeleteInput{Dataset: "set_a", ID: id})
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if out.ID != id {
		t.Errorf("ID = %q, want %q", out.ID, id)
	}

	_, err = Fetch(database, FetchInput{Dataset: "set_a", ID: id})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Fetch after delete should return not found, got: %v", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	database := testDB(t)

	_, err := Delete(database, DeleteInput{Dataset: "set_a", ID: "missing"})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Delete should return not found, got: %v", err)
	}
}

func TestDelete_LeavesLinksOrphaned(t *testing.T) {
	database := testDB(t)
	id := mustCreate(t, database, "set_a", sampleFields("doomed", "a"))

	_, err := CreateLink(database, CreateLinkInput{
		Dataset: "set_a",
		Fields:  LinkFields{BundleID: id, CommandID: 1, URL: "https://wiki/a"},
	})
	if err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}

	if _, err := Delete(database, DeleteInput{Dataset: "set_a", ID: id}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	links, err := ListLinks(database, ListLinksInput{Dataset: "set_a"})
	if err != nil {
		t.Fatalf("ListLinks failed: %v", err)
	}
	if len(links.Links) != 1 {
		t.Fatalf("len(Links) = %d, link entries survive bundle deletion", len(links.Links))
	}
	if !links.Links[0].Orphaned {
		t.Error("surviving link should be flagged orphaned")
	}
}

func TestDelete_DatasetIsolation(t *testing.T) {
	database := testDB(t)
	id := mustCreate(t, database, "set_a", sampleFields("safe", "a"))

	_, err := Delete(database, DeleteInput{Dataset: "set_b", ID: id})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Delete across datasets should return not found, got: %v", err)
	}
	if _, err := Fetch(database, FetchInput{Dataset: "set_a", ID: id}); err != nil {
		t.Errorf("bundle in set_a should survive: %v", err)
	}
}
