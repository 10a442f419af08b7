package ops

import (
	"testing"

	"github.com/hyesung/opsbundle/internal/errors"
)

func TestCreateLink_HappyPath(t *testing.T) {
	database := testDB(t)
	bundleID := mustCreate(t, database, "set_a", sampleFields("target", "a\nb"))

	out, err := CreateLink(database, CreateLinkInput{
		Dataset: "set_a",
		Fields: LinkFields{
			BundleID:    bundleID,
			CommandID:   1,
			URL:         "https://wiki/a",
			Description: "runbook",
			Tags:        "network; dns",
		},
	})
	if err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}
	if out.ID == "" {
		t.Fatal("ID should not be empty")
	}

	listed, err := ListLinks(database, ListLinksInput{Dataset: "set_a"})
	if err != nil {
		t.Fatalf("ListLinks failed: %v", err)
	}
	if listed.Total != 1 {
		t.Fatalf("Total = %d, want 1", listed.Total)
	}
	l := listed.Links[0]
	if l.Orphaned {
		t.Error("link to a live command should resolve")
	}
	if len(l.Tags) != 2 || l.Tags[0] != "network" || l.Tags[1] != "dns" {
		t.Errorf("Tags = %v, want [network dns]", l.Tags)
	}
}

func TestCreateLink_RequiresURL(t *testing.T) {
	database := testDB(t)

	_, err := CreateLink(database, CreateLinkInput{Dataset: "set_a", Fields: LinkFields{BundleID: "x"}})
	if !errors.Is(err, errors.ErrValidation) {
		t.Errorf("CreateLink should return validation error, got: %v", err)
	}
}

func TestCreateLink_DanglingBundleAllowed(t *testing.T) {
	database := testDB(t)

	_, err := CreateLink(database, CreateLinkInput{
		Dataset: "set_a",
		Fields:  LinkFields{BundleID: "never-existed", CommandID: 1, URL: "https://wiki/x"},
	})
	if err != nil {
		t.Fatalf("CreateLink with a dangling bundle should succeed: %v", err)
	}

	listed, err := ListLinks(database, ListLinksInput{Dataset: "set_a"})
	if err != nil {
		t.Fatalf("ListLinks failed: %v", err)
	}
	if !listed.Links[0].Orphaned {
		t.Error("dangling link should be flagged orphaned")
	}
}

func TestUpdateLink_ReplacesFields(t *testing.T) {
	database := testDB(t)
	bundleID := mustCreate(t, database, "set_a", sampleFields("target", "a"))

	created, err := CreateLink(database, CreateLinkInput{
		Dataset: "set_a",
		Fields:  LinkFields{BundleID: bundleID, CommandID: 1, URL: "https://wiki/old"},
	})
	if err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}

	out, err := UpdateLink(database, UpdateLinkInput{
		Dataset: "set_a",
		ID:      created.ID,
		Fields:  LinkFields{BundleID: bundleID, CommandID: 1, URL: "https://wiki/new", Description: "updated"},
	})
	if err != nil {
		t.Fatalf("UpdateLink failed: %v", err)
	}
	if out.Link.URL != "https://wiki/new" || out.Link.Description != "updated" {
		t.Errorf("Link = %+v, fields not replaced", out.Link)
	}
	if out.Link.ID != created.ID {
		t.Errorf("ID = %q, want %q", out.Link.ID, created.ID)
	}
}

func TestUpdateLink_NotFound(t *testing.T) {
	database := testDB(t)

	_, err := UpdateLink(database, UpdateLinkInput{
		Dataset: "set_a",
		ID:      "missing",
		Fields:  LinkFields{URL: "https://wiki/x"},
	})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("UpdateLink should return not found, got: %v", err)
	}
}

func TestDeleteLink(t *testing.T) {
	database := testDB(t)

	created, err := CreateLink(database, CreateLinkInput{
		Dataset: "set_a",
		Fields:  LinkFields{URL: "https://wiki/x"},
	})
	if err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}

	if _, err := DeleteLink(database, DeleteLinkInput{Dataset: "set_a", ID: created.ID}); err != nil {
		t.Fatalf("DeleteLink failed: %v", err)
	}
	listed, err := ListLinks(database, ListLinksInput{Dataset: "set_a"})
	if err != nil {
		t.Fatalf("ListLinks failed: %v", err)
	}
	if listed.Total != 0 {
		t.Errorf("Total = %d, want 0", listed.Total)
	}

	_, err = DeleteLink(database, DeleteLinkInput{Dataset: "set_a", ID: created.ID})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second delete should return not found, got: %v", err)
	}
}

func TestListLinks_FilterByBundle(t *testing.T) {
	database := testDB(t)
	first := mustCreate(t, database, "set_a", sampleFields("first", "a"))
	second := mustCreate(t, database, "set_a", sampleFields("second", "a"))

	for _, bid := range []string{first, second} {
		_, err := CreateLink(database, CreateLinkInput{
			Dataset: "set_a",
			Fields:  LinkFields{BundleID: bid, CommandID: 1, URL: "https://wiki/" + bid},
		})
		if err != nil {
			t.Fatalf("CreateLink failed: %v", err)
		}
	}

	listed, err := ListLinks(database, ListLinksInput{Dataset: "set_a", BundleID: first})
	if err != nil {
		t.Fatalf("ListLinks failed: %v", err)
	}
	if listed.Total != 1 || listed.Links[0].BundleID != first {
		t.Errorf("filter by bundle returned %+v", listed.Links)
	}
}
