package csvio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hyesung/opsbundle/internal/bundle"
)

func TestBundlesRoundTrip(t *testing.T) {
	bundles := []bundle.Bundle{
		{
			ID: "b1", Part: "nic", BundleName: "Reboot NIC",
			CommandText: "ifdown eth0\nifup eth0",
			Description: "bounce the interface",
			Keywords:    []string{"network", "nic"},
			UpdatedDate: "2024-03-15",
			Todo:        "verify on rev2 hardware",
		},
	}

	var buf bytes.Buffer
	if err := WriteBundles(&buf, bundles); err != nil {
		t.Fatalf("WriteBundles failed: %v", err)
	}

	got, rowErrors, err := ReadBundles(&buf)
	if err != nil {
		t.Fatalf("ReadBundles failed: %v", err)
	}
	if len(rowErrors) != 0 {
		t.Fatalf("rowErrors = %+v", rowErrors)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}

	b := got[0]
	if b.ID != "b1" || b.BundleName != "Reboot NIC" {
		t.Errorf("got %+v", b)
	}
	if b.CommandText != "ifdown eth0\nifup eth0" {
		t.Errorf("CommandText = %q, multi-line Command not preserved", b.CommandText)
	}
	if len(b.Keywords) != 2 || b.Keywords[1] != "nic" {
		t.Errorf("Keywords = %v", b.Keywords)
	}
	if b.UpdatedDate != "2024-03-15" {
		t.Errorf("UpdatedDate = %q", b.UpdatedDate)
	}
}

func TestMemosRoundTrip(t *testing.T) {
	bundles := []bundle.Bundle{
		{
			ID: "b1",
			Memos: []bundle.CommandMemo{
				{CommandID: 1, CommandText: "ifdown eth0", Description: "down", MemoText: "careful", ReferenceLink: "https://wiki/1"},
				{CommandID: 2, CommandText: "ifup eth0"},
			},
		},
	}

	var buf bytes.Buffer
	if err := WriteMemos(&buf, bundles); err != nil {
		t.Fatalf("WriteMemos failed: %v", err)
	}

	got, rowErrors, err := ReadMemos(&buf)
	if err != nil {
		t.Fatalf("ReadMemos failed: %v", err)
	}
	if len(rowErrors) != 0 {
		t.Fatalf("rowErrors = %+v", rowErrors)
	}

	memos := got["b1"]
	if len(memos) != 2 {
		t.Fatalf("len = %d, want 2", len(memos))
	}
	if memos[0].Description != "down" || memos[0].ReferenceLink != "https://wiki/1" {
		t.Errorf("memos[0] = %+v", memos[0])
	}
	if memos[1].CommandID != 2 {
		t.Errorf("memos[1].CommandID = %d", memos[1].CommandID)
	}
}

func TestReadMemos_LegacyWithoutDescription(t *testing.T) {
	legacy := "ID,Command ID,Command Text,Memo text,onenote link\n" +
		"3,1,ping host,works fine,https://notes/3\n"

	got, rowErrors, err := ReadMemos(strings.NewReader(legacy))
	if err != nil {
		t.Fatalf("ReadMemos failed: %v", err)
	}
	if len(rowErrors) != 0 {
		t.Fatalf("rowErrors = %+v", rowErrors)
	}

	memos := got["3"]
	if len(memos) != 1 {
		t.Fatalf("len = %d, want 1", len(memos))
	}
	if memos[0].Description != "" || memos[0].MemoText != "works fine" {
		t.Errorf("got %+v", memos[0])
	}
}

func TestReadBundles_BOMAndErrors(t *testing.T) {
	input := "\uFEFFID,Part,Bundle Name,Command,Keywords\n" +
		"1,nic,Reboot NIC,ifup eth0,network\n" +
		",nic,No ID,x,\n"

	got, rowErrors, err := ReadBundles(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadBundles failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("got %+v", got)
	}
	if len(rowErrors) != 1 || rowErrors[0].Line != 3 {
		t.Errorf("rowErrors = %+v, want one error on line 3", rowErrors)
	}
}

func TestLinksRoundTrip(t *testing.T) {
	links := []bundle.LinkEntry{
		{ID: "l1", BundleID: "b1", CommandID: 2, URL: "https://wiki/a", Description: "wiki", Tags: []string{"network"}},
		{ID: "l2", URL: "https://wiki/b"},
	}

	var buf bytes.Buffer
	if err := WriteLinks(&buf, links); err != nil {
		t.Fatalf("WriteLinks failed: %v", err)
	}

	got, rowErrors, err := ReadLinks(&buf)
	if err != nil {
		t.Fatalf("ReadLinks failed: %v", err)
	}
	if len(rowErrors) != 0 {
		t.Fatalf("rowErrors = %+v", rowErrors)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].CommandID != 2 || got[0].BundleID != "b1" {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].CommandID != 0 || got[1].BundleID != "" {
		t.Errorf("got[1] = %+v, want unattached", got[1])
	}
}

func TestReadLinks_BadCommandID(t *testing.T) {
	input := "ID,Bundle ID,Command ID,URL,Description,Tags\n" +
		"l1,b1,abc,https://x,,\n"

	got, rowErrors, _ := ReadLinks(strings.NewReader(input))
	if len(got) != 0 {
		t.Errorf("got = %+v, want skipped", got)
	}
	if len(rowErrors) != 1 {
		t.Errorf("rowErrors = %+v", rowErrors)
	}
}

func TestReadBundles_EmptyFile(t *testing.T) {
	if _, _, err := ReadBundles(strings.NewReader("")); err == nil {
		t.Error("ReadBundles should fail on an empty file")
	}
}
