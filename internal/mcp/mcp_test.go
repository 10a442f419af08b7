package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hyesung/opsbundle/internal/config"
	"github.com/hyesung/opsbundle/internal/db"
)

// testSetup creates a temporary database and config for testing.
func testSetup(t *testing.T) (*sql.DB, *Handlers) {
	t.Helper()

	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return database, NewHandlers(database, config.DefaultConfig())
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// resultText extracts the text payload from a tool result.
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		t.Fatalf("content is not text: %T", result.Content[0])
	}
	return text.Text
}

// storeBundle calls bundle_store and returns the new bundle's id.
func storeBundle(t *testing.T, h *Handlers, dataset, name, commands string) string {
	t.Helper()
	result, err := h.HandleStore(context.Background(), makeRequest(map[string]any{
		"dataset":      dataset,
		"bundle_name":  name,
		"command_text": commands,
		"keywords":     "dns, outage",
	}))
	if err != nil {
		t.Fatalf("HandleStore: %v", err)
	}
	if result.IsError {
		t.Fatalf("HandleStore returned error result: %s", resultText(t, result))
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &out); err != nil {
		t.Fatalf("decode store result: %v", err)
	}
	return out.ID
}

func TestHandleStore_AndFetch(t *testing.T) {
	_, h := testSetup(t)
	id := storeBundle(t, h, "set_a", "dns triage", "ping host\nnslookup host")

	result, err := h.HandleFetch(context.Background(), makeRequest(map[string]any{
		"dataset": "set_a",
		"id":      id,
	}))
	if err != nil {
		t.Fatalf("HandleFetch: %v", err)
	}
	if result.IsError {
		t.Fatalf("fetch error: %s", resultText(t, result))
	}

	text := resultText(t, result)
	if !strings.Contains(text, "dns triage") {
		t.Error("fetch result should contain the bundle name")
	}
	if !strings.Contains(text, "nslookup host") {
		t.Error("fetch result should contain the commands")
	}
}

func TestHandleStore_MissingName(t *testing.T) {
	_, h := testSetup(t)

	result, err := h.HandleStore(context.Background(), makeRequest(map[string]any{
		"dataset": "set_a",
	}))
	if err != nil {
		t.Fatalf("HandleStore: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(resultText(t, result), "VALIDATION") {
		t.Errorf("expected VALIDATION code in %s", resultText(t, result))
	}
}

func TestHandleStore_MissingDataset(t *testing.T) {
	_, h := testSetup(t)

	result, err := h.HandleStore(context.Background(), makeRequest(map[string]any{
		"bundle_name": "no scope",
	}))
	if err != nil {
		t.Fatalf("HandleStore: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}
	text := resultText(t, result)
	if !strings.Contains(text, "VALIDATION") || !strings.Contains(text, "dataset is required") {
		t.Errorf("expected dataset validation error in %s", text)
	}
}

func TestHandleFetch_NotFound(t *testing.T) {
	_, h := testSetup(t)

	result, err := h.HandleFetch(context.Background(), makeRequest(map[string]any{
		"dataset": "set_a",
		"id":      "missing",
	}))
	if err != nil {
		t.Fatalf("HandleFetch: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}
	text := resultText(t, result)
	if !strings.Contains(text, "NOT_FOUND") {
		t.Errorf("expected NOT_FOUND code in %s", text)
	}
}

func TestHandleUpdate_ResyncsMemos(t *testing.T) {
	_, h := testSetup(t)
	id := storeBundle(t, h, "set_a", "editable", "first\nsecond")

	result, err := h.HandleUpdateMemos(context.Background(), makeRequest(map[string]any{
		"dataset": "set_a",
		"id":      id,
		"edits": map[string]any{
			"1": map[string]any{"memo_text": "note on first"},
		},
	}))
	if err != nil {
		t.Fatalf("HandleUpdateMemos: %v", err)
	}
	if result.IsError {
		t.Fatalf("update_memos error: %s", resultText(t, result))
	}

	result, err = h.HandleUpdate(context.Background(), makeRequest(map[string]any{
		"dataset":      "set_a",
		"id":           id,
		"bundle_name":  "editable",
		"command_text": "first",
	}))
	if err != nil {
		t.Fatalf("HandleUpdate: %v", err)
	}
	if result.IsError {
		t.Fatalf("update error: %s", resultText(t, result))
	}

	text := resultText(t, result)
	if !strings.Contains(text, "note on first") {
		t.Error("memo at position 1 should survive truncation")
	}
	if strings.Contains(text, "second") {
		t.Error("dropped command should not appear in the updated bundle")
	}
}

func TestHandleUpdateMemos_BadPositionKey(t *testing.T) {
	_, h := testSetup(t)
	id := storeBundle(t, h, "set_a", "bundle", "ls")

	result, err := h.HandleUpdateMemos(context.Background(), makeRequest(map[string]any{
		"dataset": "set_a",
		"id":      id,
		"edits": map[string]any{
			"first": map[string]any{"memo_text": "x"},
		},
	}))
	if err != nil {
		t.Fatalf("HandleUpdateMemos: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for non-numeric position key")
	}
}

func TestHandleDelete(t *testing.T) {
	_, h := testSetup(t)
	id := storeBundle(t, h, "set_a", "doomed", "ls")

	result, err := h.HandleDelete(context.Background(), makeRequest(map[string]any{
		"dataset": "set_a",
		"id":      id,
	}))
	if err != nil {
		t.Fatalf("HandleDelete: %v", err)
	}
	if result.IsError {
		t.Fatalf("delete error: %s", resultText(t, result))
	}

	result, err = h.HandleFetch(context.Background(), makeRequest(map[string]any{
		"dataset": "set_a",
		"id":      id,
	}))
	if err != nil {
		t.Fatalf("HandleFetch: %v", err)
	}
	if !result.IsError {
		t.Fatal("fetch after delete should be an error result")
	}
}

func TestHandleSearch(t *testing.T) {
	_, h := testSetup(t)
	storeBundle(t, h, "set_a", "dns checkup", "ls")
	storeBundle(t, h, "set_a", "disk audit", "ls")

	result, err := h.HandleSearch(context.Background(), makeRequest(map[string]any{
		"dataset": "set_a",
		"name":    "DNS",
	}))
	if err != nil {
		t.Fatalf("HandleSearch: %v", err)
	}
	if result.IsError {
		t.Fatalf("search error: %s", resultText(t, result))
	}

	text := resultText(t, result)
	if !strings.Contains(text, "dns checkup") {
		t.Error("search should match case-insensitively")
	}
	if strings.Contains(text, "disk audit") {
		t.Error("search should filter out non-matching bundles")
	}
}

func TestHandleList_DatasetIsolation(t *testing.T) {
	_, h := testSetup(t)
	storeBundle(t, h, "set_a", "only in a", "ls")

	result, err := h.HandleList(context.Background(), makeRequest(map[string]any{
		"dataset": "set_b",
	}))
	if err != nil {
		t.Fatalf("HandleList: %v", err)
	}
	if result.IsError {
		t.Fatalf("list error: %s", resultText(t, result))
	}

	var out struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &out); err != nil {
		t.Fatalf("decode list result: %v", err)
	}
	if out.Total != 0 {
		t.Errorf("total = %d, set_b should be empty", out.Total)
	}
}

func TestToolRegistry_Complete(t *testing.T) {
	want := []string{
		"bundle_store", "bundle_fetch", "bundle_update", "bundle_update_memos",
		"bundle_delete", "bundle_search", "bundle_list",
	}
	names := AllToolNames()
	if len(names) != len(want) {
		t.Fatalf("len(names) = %d, want %d", len(names), len(want))
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	for _, w := range want {
		if !set[w] {
			t.Errorf("registry missing %s", w)
		}
	}
}
