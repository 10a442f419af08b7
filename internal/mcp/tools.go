package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var storeToolDef = mcp.NewTool("bundle_store",
	mcp.WithDescription("Create an action bundle: a named, ordered list of commands with per-command memos. Commands come in as one multi-line string, one command per line."),
	mcp.WithString("dataset", mcp.Required(), mcp.Description("Dataset id the bundle belongs to")),
	mcp.WithString("bundle_name", mcp.Required(), mcp.Description("Bundle name")),
	mcp.WithString("command_text", mcp.Description("Commands, one per line")),
	mcp.WithString("part", mcp.Description("Grouping label, e.g. a subsystem name")),
	mcp.WithString("description", mcp.Description("What the bundle is for")),
	mcp.WithString("keywords", mcp.Description("Comma-separated keywords")),
	mcp.WithString("expected_outcome", mcp.Description("What running the bundle should produce")),
	mcp.WithString("interpretation", mcp.Description("How to read the results")),
	mcp.WithString("updated_date", mcp.Description("Date in 2006-01-02 form; defaults to today")),
	mcp.WithString("todo", mcp.Description("Open follow-ups")),
)

var fetchToolDef = mcp.NewTool("bundle_fetch",
	mcp.WithDescription("Fetch one bundle with its ordered command memos and attached links."),
	mcp.WithString("dataset", mcp.Required(), mcp.Description("Dataset id")),
	mcp.WithString("id", mcp.Required(), mcp.Description("Bundle id")),
	mcp.WithBoolean("include_links", mcp.Description("Attach link entries with orphan resolution")),
)

var updateToolDef = mcp.NewTool("bundle_update",
	mcp.WithDescription("Replace a bundle's fields. The memo list is resynchronized against the new command list by position: unchanged positions keep their memos, removed trailing positions drop theirs, new positions start blank."),
	mcp.WithString("dataset", mcp.Required(), mcp.Description("Dataset id")),
	mcp.WithString("id", mcp.Required(), mcp.Description("Bundle id")),
	mcp.WithString("bundle_name", mcp.Required(), mcp.Description("Bundle name")),
	mcp.WithString("command_text", mcp.Description("Commands, one per line")),
	mcp.WithString("part", mcp.Description("Grouping label")),
	mcp.WithString("description", mcp.Description("What the bundle is for")),
	mcp.WithString("keywords", mcp.Description("Comma-separated keywords")),
	mcp.WithString("expected_outcome", mcp.Description("What running the bundle should produce")),
	mcp.WithString("interpretation", mcp.Description("How to read the results")),
	mcp.WithString("updated_date", mcp.Description("Date in 2006-01-02 form; defaults to today")),
	mcp.WithString("todo", mcp.Description("Open follow-ups")),
)

var updateMemosToolDef = mcp.NewTool("bundle_update_memos",
	mcp.WithDescription("Edit the memo fields of individual commands without touching the command list. Edits are keyed by 1-based command position; omitted fields are left unchanged."),
	mcp.WithString("dataset", mcp.Required(), mcp.Description("Dataset id")),
	mcp.WithString("id", mcp.Required(), mcp.Description("Bundle id")),
	mcp.WithObject("edits", mcp.Required(), mcp.Description(`Map of command position to edit, e.g. {"1": {"memo_text": "expect sub-ms replies"}}. Each edit may set description, memo_text, and reference_link.`)),
)

var deleteToolDef = mcp.NewTool("bundle_delete",
	mcp.WithDescription("Delete a bundle and its memos. Link entries pointing at it are kept and flagged orphaned at display time."),
	mcp.WithString("dataset", mcp.Required(), mcp.Description("Dataset id")),
	mcp.WithString("id", mcp.Required(), mcp.Description("Bundle id")),
)

var searchToolDef = mcp.NewTool("bundle_search",
	mcp.WithDescription("Search bundles by name or keyword, case-insensitive substring match; either filter matching returns the bundle. Results keep insertion order."),
	mcp.WithString("dataset", mcp.Required(), mcp.Description("Dataset id")),
	mcp.WithString("name", mcp.Description("Substring of the bundle name")),
	mcp.WithString("keyword", mcp.Description("Substring of any keyword")),
)

var listToolDef = mcp.NewTool("bundle_list",
	mcp.WithDescription("List every bundle in a dataset, most recently updated first, with the dataset's most frequent keywords."),
	mcp.WithString("dataset", mcp.Required(), mcp.Description("Dataset id")),
	mcp.WithNumber("keyword_limit", mcp.Description("Cap on keyword candidates; 0 disables them")),
)
