package orgtree

import (
	"fmt"
	"regexp"
	"strings"
)

var slugStrip = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)

// AssignOutlineIDs gives every headline under root a unique slug ID
// derived from its title, suffixing -2, -3, ... on collisions. Returns
// the id to node mapping. Called once while a document is being built;
// trees are not re-identified afterward.
func AssignOutlineIDs(root *Node) map[string]*Node {
	assigned := make(map[string]*Node)
	for _, child := range root.Subheadings() {
		assignOutlineIDs(child, assigned)
	}
	return assigned
}

func assignOutlineIDs(n *Node, assigned map[string]*Node) {
	base := strings.Trim(slugStrip.ReplaceAllString(n.Title(), "-"), "-")
	id := base
	for i := 2; ; i++ {
		if _, taken := assigned[id]; !taken {
			break
		}
		id = fmt.Sprintf("%s-%d", base, i)
	}
	n.outlineID = id
	assigned[id] = n

	for _, child := range n.Subheadings() {
		assignOutlineIDs(child, assigned)
	}
}

// Target identifies a headline for navigation: any combination of file
// path, identity ID, CUSTOM_ID, raw title text and buffer position.
// Position 0 means unset (editor buffer positions start at 1).
type Target struct {
	File     string
	ID       string
	CustomID string
	Text     string
	Position int
}

// HeadlineIdentifiers collects the identifiers that can locate a headline
// in its source file.
func HeadlineIdentifiers(h *Node, file string) Target {
	t := Target{File: file}
	t.ID = h.StringProperty("ID")
	t.CustomID = h.StringProperty("CUSTOM_ID")
	t.Text = h.Title()
	if begin, ok := h.Begin(); ok {
		t.Position = begin
	}
	return t
}

// ParseTags splits a colon-separated tag string like ":work:urgent:".
func ParseTags(s string) []string {
	s = strings.Trim(s, ":")
	if s == "" {
		return nil
	}
	return strings.Split(s, ":")
}
