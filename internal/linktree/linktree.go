// Package linktree parses the optional per-dataset keyword tree file and
// groups link entries under its nodes.
//
// The tree file is plain text, one keyword per line, hierarchy expressed by
// leading spaces at 4 spaces per level:
//
//	network
//	    dns
//	        resolver
//	    routing
//	storage
package linktree

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/hyesung/opsbundle/internal/bundle"
)

const spacesPerLevel = 4

// Node is one keyword in the tree.
type Node struct {
	Keyword  string
	Level    int
	Children []*Node
}

// SubtreeKeywords returns the node's keyword and every descendant keyword,
// lowercased for matching.
func (n *Node) SubtreeKeywords() map[string]struct{} {
	keywords := make(map[string]struct{})
	n.collectKeywords(keywords)
	return keywords
}

func (n *Node) collectKeywords(into map[string]struct{}) {
	into[strings.ToLower(n.Keyword)] = struct{}{}
	for _, child := range n.Children {
		child.collectKeywords(into)
	}
}

// Parse reads an indent-based tree. Blank lines are skipped; a line
// indented deeper than its predecessor plus one level still attaches to
// that predecessor.
func Parse(r io.Reader) ([]*Node, error) {
	root := &Node{Level: -1}
	stack := []*Node{root}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" {
			continue
		}

		leading := len(line) - len(strings.TrimLeft(line, " "))
		level := leading / spacesPerLevel
		node := &Node{Keyword: strings.TrimSpace(line), Level: level}

		for len(stack) > 1 && stack[len(stack)-1].Level >= level {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		parent.Children = append(parent.Children, node)
		stack = append(stack, node)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return root.Children, nil
}

// ParseFile parses a tree file. A missing file is not an error: datasets
// without a tree simply have no tree view.
func ParseFile(path string) ([]*Node, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// View is a tree node with the link entries that belong under it.
type View struct {
	Keyword  string
	Level    int
	Links    []bundle.LinkEntry
	Children []*View
}

// Group lists each link under every node whose subtree contains one of the
// link's tags. Tag comparison is case-insensitive. Untagged links and links
// whose tags appear nowhere in the tree are returned separately.
func Group(nodes []*Node, links []bundle.LinkEntry) (views []*View, unmatched []bundle.LinkEntry) {
	matched := make([]bool, len(links))
	views = make([]*View, 0, len(nodes))
	for _, n := range nodes {
		views = append(views, groupNode(n, links, matched))
	}
	for i, l := range links {
		if !matched[i] {
			unmatched = append(unmatched, l)
		}
	}
	return views, unmatched
}

func groupNode(n *Node, links []bundle.LinkEntry, matched []bool) *View {
	keywords := n.SubtreeKeywords()
	view := &View{Keyword: n.Keyword, Level: n.Level}
	for i, l := range links {
		if tagsMatch(l.Tags, keywords) {
			view.Links = append(view.Links, l)
			matched[i] = true
		}
	}
	for _, child := range n.Children {
		view.Children = append(view.Children, groupNode(child, links, matched))
	}
	return view
}

func tagsMatch(tags []string, keywords map[string]struct{}) bool {
	for _, tag := range tags {
		if _, ok := keywords[strings.ToLower(tag)]; ok {
			return true
		}
	}
	return false
}
