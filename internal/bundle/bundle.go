package bundle

// Bundle is a named troubleshooting procedure: metadata plus an ordered
// list of commands, each annotated by a CommandMemo at the same position.
type Bundle struct {
	// ID is a ULID that uniquely identifies this bundle within its dataset.
	// Legacy numeric ids from imported CSV files are kept as-is.
	ID string

	// Dataset is the dataset this bundle belongs to. Identifiers are only
	// unique within a dataset.
	Dataset string

	// Part names the equipment part or subsystem the procedure applies to.
	Part string

	// BundleName is the display name of the procedure (required, non-empty).
	BundleName string

	// CommandText is the raw multi-line Command field as entered by the
	// user. The ordered command list is derived from it via SplitCommands.
	CommandText string

	// Description is a free-text summary of the procedure.
	Description string

	// Keywords is the set of search keywords (comma-separated on the wire,
	// stored as JSON in the DB).
	Keywords []string

	// ExpectedOutcome describes what a successful run looks like.
	ExpectedOutcome string

	// Interpretation explains how to read the command output.
	Interpretation string

	// UpdatedDate is the user-facing revision date, "2006-01-02".
	UpdatedDate string

	// Todo holds open follow-up notes for the procedure.
	Todo string

	// CreatedAt is the Unix timestamp when the bundle was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp when the bundle was last updated.
	UpdatedAt int64

	// Memos are the per-command annotations, ordered by CommandID.
	// len(Memos) always equals the number of commands in CommandText.
	Memos []CommandMemo
}

// Commands returns the ordered command list derived from CommandText.
func (b *Bundle) Commands() []string {
	return SplitCommands(b.CommandText)
}

// CommandMemo is the per-position annotation of a bundle command.
// Its identity is (bundle, CommandID); CommandID is a 1-based position and
// is reassigned on every synchronization, not a stable identifier.
type CommandMemo struct {
	BundleID string
	Dataset  string

	// CommandID is the 1-based position of the command within the bundle.
	CommandID int

	// CommandText mirrors the command string at this position.
	CommandText string

	// Description, MemoText and ReferenceLink are owned by the user and
	// carried across edits of the command list.
	Description   string
	MemoText      string
	ReferenceLink string
}

// LinkEntry is a reference link, optionally attached to a bundle or to a
// single command position within a bundle. Links are never touched by
// command synchronization; a link whose target position disappears becomes
// an unresolvable ("orphaned") reference and is only flagged at display time.
type LinkEntry struct {
	ID      string
	Dataset string

	// BundleID optionally ties the link to a bundle. CommandID is only
	// meaningful when BundleID is set.
	BundleID  string
	CommandID int

	URL         string
	Description string
	Tags        []string

	CreatedAt int64
	UpdatedAt int64
}
