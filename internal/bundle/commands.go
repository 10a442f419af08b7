package bundle

import (
	"sort"
	"strings"
	"time"
)

// SplitCommands splits a raw multi-line Command field into the ordered
// command list: lines are trimmed, blank lines are dropped, order is kept.
func SplitCommands(commandText string) []string {
	if commandText == "" {
		return nil
	}

	var commands []string
	for _, line := range strings.Split(strings.ReplaceAll(commandText, "\r", ""), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			commands = append(commands, line)
		}
	}
	return commands
}

// ParseKeywords splits a comma-separated keyword string into a cleaned list.
// Semicolons are accepted as separators too (legacy CSV files use both).
func ParseKeywords(s string) []string {
	s = strings.ReplaceAll(s, ";", ",")

	var keywords []string
	for _, token := range strings.Split(s, ",") {
		token = strings.TrimSpace(token)
		if token != "" {
			keywords = append(keywords, token)
		}
	}
	return keywords
}

// JoinKeywords renders a keyword list back to its comma-separated wire form.
func JoinKeywords(keywords []string) string {
	return strings.Join(keywords, ", ")
}

// dateFormats lists the accepted input layouts for UpdatedDate, most
// common first.
var dateFormats = []string{"2006-01-02", "2006/01/02", "02-01-2006"}

// ParseDate parses a user-supplied date string leniently and returns it in
// canonical "2006-01-02" form. Empty or unparseable input falls back to
// today's date.
func ParseDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Now().Format("2006-01-02")
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return time.Now().Format("2006-01-02")
}

// KeywordCandidates returns up to limit keywords ranked by how many bundles
// use them, most frequent first. Keywords are compared case-insensitively;
// ties break alphabetically so the result is stable.
func KeywordCandidates(bundles []Bundle, limit int) []string {
	counts := make(map[string]int)
	for _, b := range bundles {
		for _, kw := range b.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				counts[kw]++
			}
		}
	}

	ranked := make([]string, 0, len(counts))
	for kw := range counts {
		ranked = append(ranked, kw)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if counts[ranked[i]] != counts[ranked[j]] {
			return counts[ranked[i]] > counts[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
