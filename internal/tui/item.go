package tui

import "github.com/nikbrunner/bmbox/internal/panel"

// RowKind distinguishes between folders and bookmarks in the list.
type RowKind int

const (
	RowSection RowKind = iota
	RowLink
)

// Row is one visible line of the panel: a section header or a link.
type Row struct {
	Kind    RowKind
	Depth   int
	Section *panel.Section
	Link    *panel.Link
	Parent  string // ID of the enclosing section, empty at top level

	MatchedIndexes []int // filter mode only
}

// Title returns a display title for the row.
func (r Row) Title() string {
	if r.Kind == RowSection {
		return r.Section.Title
	}
	return r.Link.Title
}

// IsSection returns true if this row is a folder.
func (r Row) IsSection() bool {
	return r.Kind == RowSection
}

// flattenView lists the visible rows of v: every top-level section, and
// the children of expanded sections.
func flattenView(v panel.View) []Row {
	var rows []Row
	var walk func(s *panel.Section, parent string)
	walk = func(s *panel.Section, parent string) {
		rows = append(rows, Row{Kind: RowSection, Depth: s.Depth, Section: s, Parent: parent})
		if !s.Expanded {
			return
		}
		for _, e := range s.Children {
			switch {
			case e.Section != nil:
				walk(e.Section, s.ID)
			case e.Link != nil:
				rows = append(rows, Row{Kind: RowLink, Depth: s.Depth + 1, Link: e.Link, Parent: s.ID})
			}
		}
	}
	for _, s := range v.Sections {
		walk(s, "")
	}
	return rows
}
