package bundle

import "strings"

// SyncMemos reconciles the existing ordered memo list against a new ordered
// command list and returns the memo list for the new commands. It is the
// single place where memos are created, carried forward, or dropped.
//
// Matching is purely positional:
//   - same position, same text  → memo carried forward unchanged
//   - same position, new text   → edit in place: user fields kept, text swapped
//   - position only in commands → fresh memo with empty user fields
//   - position only in old      → memo dropped, its fields discarded
//
// CommandID is reassigned to the 1-based position in every case, so the
// result always satisfies the contiguous {1..n} invariant. The function is
// total: any inputs, including nil, produce a valid (possibly empty) result.
func SyncMemos(old []CommandMemo, commands []string) []CommandMemo {
	if len(commands) == 0 {
		return nil
	}

	result := make([]CommandMemo, 0, len(commands))
	for i, command := range commands {
		command = strings.TrimSpace(command)

		memo := CommandMemo{
			CommandID:   i + 1,
			CommandText: command,
		}
		if i < len(old) {
			prev := old[i]
			memo.BundleID = prev.BundleID
			memo.Dataset = prev.Dataset
			memo.Description = prev.Description
			memo.MemoText = prev.MemoText
			memo.ReferenceLink = prev.ReferenceLink
		}
		result = append(result, memo)
	}
	return result
}
