package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hyesung/opsbundle/internal/config"
	"github.com/hyesung/opsbundle/internal/errors"
	"github.com/hyesung/opsbundle/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config) *Handlers {
	return &Handlers{db: db, cfg: cfg}
}

// Request types for each tool

// StoreRequest represents the arguments for bundle_store.
type StoreRequest struct {
	Dataset         string `json:"dataset"`
	Part            string `json:"part,omitempty"`
	BundleName      string `json:"bundle_name"`
	CommandText     string `json:"command_text,omitempty"`
	Description     string `json:"description,omitempty"`
	Keywords        string `json:"keywords,omitempty"`
	ExpectedOutcome string `json:"expected_outcome,omitempty"`
	Interpretation  string `json:"interpretation,omitempty"`
	UpdatedDate     string `json:"updated_date,omitempty"`
	Todo            string `json:"todo,omitempty"`
}

// FetchRequest represents the arguments for bundle_fetch.
type FetchRequest struct {
	Dataset      string `json:"dataset"`
	ID           string `json:"id"`
	IncludeLinks bool   `json:"include_links,omitempty"`
}

// UpdateRequest represents the arguments for bundle_update.
type UpdateRequest struct {
	Dataset         string `json:"dataset"`
	ID              string `json:"id"`
	Part            string `json:"part,omitempty"`
	BundleName      string `json:"bundle_name"`
	CommandText     string `json:"command_text,omitempty"`
	Description     string `json:"description,omitempty"`
	Keywords        string `json:"keywords,omitempty"`
	ExpectedOutcome string `json:"expected_outcome,omitempty"`
	Interpretation  string `json:"interpretation,omitempty"`
	UpdatedDate     string `json:"updated_date,omitempty"`
	Todo            string `json:"todo,omitempty"`
}

// MemoEditRequest is one per-command edit inside bundle_update_memos.
type MemoEditRequest struct {
	Description   *string `json:"description,omitempty"`
	MemoText      *string `json:"memo_text,omitempty"`
	ReferenceLink *string `json:"reference_link,omitempty"`
}

// UpdateMemosRequest represents the arguments for bundle_update_memos.
// Edits are keyed by 1-based command position; JSON objects force the keys
// to be strings.
type UpdateMemosRequest struct {
	Dataset string                     `json:"dataset"`
	ID      string                     `json:"id"`
	Edits   map[string]MemoEditRequest `json:"edits"`
}

// DeleteRequest represents the arguments for bundle_delete.
type DeleteRequest struct {
	Dataset string `json:"dataset"`
	ID      string `json:"id"`
}

// SearchRequest represents the arguments for bundle_search.
type SearchRequest struct {
	Dataset string `json:"dataset"`
	Name    string `json:"name,omitempty"`
	Keyword string `json:"keyword,omitempty"`
}

// ListRequest represents the arguments for bundle_list.
type ListRequest struct {
	Dataset      string `json:"dataset"`
	KeywordLimit *int   `json:"keyword_limit,omitempty"`
}

// Handler implementations

// HandleStore handles the bundle_store tool call.
func (h *Handlers) HandleStore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StoreRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := ops.Create(h.db, ops.CreateInput{
		Dataset: input.Dataset,
		Fields:  bundleFields(input.Part, input.BundleName, input.CommandText, input.Description, input.Keywords, input.ExpectedOutcome, input.Interpretation, input.UpdatedDate, input.Todo),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFetch handles the bundle_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := ops.Fetch(h.db, ops.FetchInput{
		Dataset:      input.Dataset,
		ID:           input.ID,
		IncludeLinks: input.IncludeLinks,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleUpdate handles the bundle_update tool call.
func (h *Handlers) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := ops.Update(h.db, ops.UpdateInput{
		Dataset: input.Dataset,
		ID:      input.ID,
		Fields:  bundleFields(input.Part, input.BundleName, input.CommandText, input.Description, input.Keywords, input.ExpectedOutcome, input.Interpretation, input.UpdatedDate, input.Todo),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleUpdateMemos handles the bundle_update_memos tool call.
func (h *Handlers) HandleUpdateMemos(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpdateMemosRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	edits := make(map[int]ops.MemoEdit, len(input.Edits))
	for key, edit := range input.Edits {
		position, err := strconv.Atoi(key)
		if err != nil {
			return errorResult(errors.NewValidationf("edit key %q is not a command position", key)), nil
		}
		edits[position] = ops.MemoEdit{
			Description:   edit.Description,
			MemoText:      edit.MemoText,
			ReferenceLink: edit.ReferenceLink,
		}
	}

	result, err := ops.UpdateMemos(h.db, ops.UpdateMemosInput{
		Dataset: input.Dataset,
		ID:      input.ID,
		Edits:   edits,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDelete handles the bundle_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := ops.Delete(h.db, ops.DeleteInput{Dataset: input.Dataset, ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSearch handles the bundle_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := ops.Search(h.db, ops.SearchInput{
		Dataset: input.Dataset,
		Name:    input.Name,
		Keyword: input.Keyword,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the bundle_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	limit := h.cfg.KeywordLimit
	if input.KeywordLimit != nil {
		limit = *input.KeywordLimit
	}

	result, err := ops.List(h.db, ops.ListInput{Dataset: input.Dataset, KeywordLimit: limit})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

func bundleFields(part, name, commandText, description, keywords, expectedOutcome, interpretation, updatedDate, todo string) ops.BundleFields {
	return ops.BundleFields{
		Part:            part,
		BundleName:      name,
		CommandText:     commandText,
		Description:     description,
		Keywords:        keywords,
		ExpectedOutcome: expectedOutcome,
		Interpretation:  interpretation,
		UpdatedDate:     updatedDate,
		Todo:            todo,
	}
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Storage error details are not exposed to avoid leaking paths or SQL.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if appErr, ok := err.(*errors.Error); ok {
		errorObj := map[string]any{
			"code":    appErr.Code,
			"message": appErr.Message,
			"status":  appErr.Status,
		}
		if appErr.Code != errors.ErrStorage && appErr.Details != nil {
			errorObj["details"] = appErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "STORAGE",
				"message": "a storage error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
