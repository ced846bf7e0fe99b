package panel

// Status is the overall state of the panel content.
type Status int

const (
	StatusLoading Status = iota
	StatusEmpty
	StatusError
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusEmpty:
		return "empty"
	case StatusError:
		return "error"
	case StatusReady:
		return "ready"
	}
	return "unknown"
}

// Messages shown for the non-ready states.
const (
	MsgLoading     = "Loading bookmarks..."
	MsgUnavailable = "Bookmarks API is not available."
	MsgLoadFailed  = "Failed to load bookmarks."
	MsgEmpty       = "No bookmarks found outside the bookmark bar"
)

// Folder icons by nesting tier.
var folderIcons = [...]string{"📁", "📂", "🗂️"}

// FolderIcon returns the icon for a section at depth. Depths past the
// last tier share its icon.
func FolderIcon(depth int) string {
	if depth < 0 {
		depth = 0
	}
	if depth >= len(folderIcons) {
		depth = len(folderIcons) - 1
	}
	return folderIcons[depth]
}

// Link is a rendered bookmark.
type Link struct {
	Title   string
	URL     string
	Domain  string
	IconSrc string // cached data URL or the lookup placeholder
}

// Entry is one child of a Section: exactly one of Section or Link is set.
type Entry struct {
	Section *Section
	Link    *Link
}

// Section is a rendered folder.
type Section struct {
	ID       string
	Title    string
	Depth    int
	Icon     string
	Expanded bool
	Children []Entry
}

// View is the render tree handed to surfaces.
type View struct {
	Status    Status
	Message   string
	Collapsed bool
	Sections  []*Section
}

// Clone returns a deep copy of v.
func (v View) Clone() View {
	out := v
	if v.Sections != nil {
		out.Sections = make([]*Section, len(v.Sections))
		for i, s := range v.Sections {
			out.Sections[i] = s.clone()
		}
	}
	return out
}

func (s *Section) clone() *Section {
	c := *s
	if s.Children != nil {
		c.Children = make([]Entry, len(s.Children))
		for i, e := range s.Children {
			if e.Section != nil {
				c.Children[i].Section = e.Section.clone()
			}
			if e.Link != nil {
				l := *e.Link
				c.Children[i].Link = &l
			}
		}
	}
	return &c
}

// Walk visits every section depth-first in render order.
func (v View) Walk(fn func(s *Section)) {
	var walk func(*Section)
	walk = func(s *Section) {
		fn(s)
		for _, e := range s.Children {
			if e.Section != nil {
				walk(e.Section)
			}
		}
	}
	for _, s := range v.Sections {
		walk(s)
	}
}

// FindSection returns the section with the given ID, or nil.
func (v View) FindSection(id string) *Section {
	var found *Section
	v.Walk(func(s *Section) {
		if found == nil && s.ID == id {
			found = s
		}
	})
	return found
}

// Links returns every link in render order.
func (v View) Links() []Link {
	var links []Link
	v.Walk(func(s *Section) {
		for _, e := range s.Children {
			if e.Link != nil {
				links = append(links, *e.Link)
			}
		}
	})
	return links
}

// Counts returns the number of sections and links in the view.
func (v View) Counts() (sections, links int) {
	v.Walk(func(s *Section) {
		sections++
		for _, e := range s.Children {
			if e.Link != nil {
				links++
			}
		}
	})
	return sections, links
}
