package ops

import (
	"testing"
)

func TestList_OrderedByUpdatedDate(t *testing.T) {
	database := testDB(t)

	fields := sampleFields("older", "a")
	fields.UpdatedDate = "2024-01-01"
	mustCreate(t, database, "set_a", fields)

	fields = sampleFields("newer", "b")
	fields.UpdatedDate = "2024-06-01"
	mustCreate(t, database, "set_a", fields)

	out, err := List(database, ListInput{Dataset: "set_a"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if out.Total != 2 {
		t.Fatalf("Total = %d, want 2", out.Total)
	}
	if out.Bundles[0].BundleName != "newer" {
		t.Errorf("Bundles[0] = %q, newest update should come first", out.Bundles[0].BundleName)
	}
}

func TestList_KeywordCandidates(t *testing.T) {
	database := testDB(t)

	for _, kw := range []string{"dns, network", "dns", "disk"} {
		fields := sampleFields("b-"+kw, "a")
		fields.Keywords = kw
		mustCreate(t, database, "set_a", fields)
	}

	out, err := List(database, ListInput{Dataset: "set_a", KeywordLimit: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(out.Keywords) != 2 {
		t.Fatalf("len(Keywords) = %d, want 2", len(out.Keywords))
	}
	if out.Keywords[0] != "dns" {
		t.Errorf("Keywords[0] = %q, most frequent keyword should rank first", out.Keywords[0])
	}
}

func TestList_NoKeywordLimit(t *testing.T) {
	database := testDB(t)
	mustCreate(t, database, "set_a", sampleFields("plain", "a"))

	out, err := List(database, ListInput{Dataset: "set_a"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if out.Keywords != nil {
		t.Errorf("Keywords = %v, want none without a limit", out.Keywords)
	}
}
