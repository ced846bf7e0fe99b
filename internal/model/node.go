package model

// NodeKind distinguishes folders from bookmarks in a tree.
type NodeKind int

const (
	KindFolder NodeKind = iota
	KindLeaf
)

// The browser's bookmark bar is recognised by either of these.
// The ID is provider-specific; the title is the fallback.
const (
	BarFolderID    = "1"
	BarFolderTitle = "Bookmarks bar"
)

// The folder holding bookmarks that sit outside the bar.
const (
	OtherFolderID    = "2"
	OtherFolderTitle = "Other bookmarks"
)

// Node is a node of a bookmark tree: a folder with ordered children,
// or a leaf with a URL.
type Node struct {
	Kind     NodeKind
	ID       string
	Title    string
	URL      string  // leaves only
	Children []*Node // folders only
}

// NewFolderParams holds parameters for creating a folder node.
type NewFolderParams struct {
	ID       string // generated when empty
	Title    string
	Children []*Node
}

// NewFolder creates a folder node.
func NewFolder(params NewFolderParams) *Node {
	id := params.ID
	if id == "" {
		id = GenerateUUID()
	}
	children := params.Children
	if children == nil {
		children = []*Node{}
	}
	return &Node{
		Kind:     KindFolder,
		ID:       id,
		Title:    params.Title,
		Children: children,
	}
}

// NewLeafParams holds parameters for creating a leaf node.
type NewLeafParams struct {
	ID    string // generated when empty
	Title string
	URL   string
}

// NewLeaf creates a leaf node.
func NewLeaf(params NewLeafParams) *Node {
	id := params.ID
	if id == "" {
		id = GenerateUUID()
	}
	return &Node{
		Kind:  KindLeaf,
		ID:    id,
		Title: params.Title,
		URL:   params.URL,
	}
}

// IsFolder returns true if the node is a folder.
func (n *Node) IsFolder() bool {
	return n.Kind == KindFolder
}

// IsBar reports whether n is the bookmark bar folder.
func (n *Node) IsBar() bool {
	return n.IsFolder() && (n.ID == BarFolderID || n.Title == BarFolderTitle)
}

// Bar returns the first direct child of n that is the bookmark bar, or nil.
func (n *Node) Bar() *Node {
	for _, c := range n.Children {
		if c.IsBar() {
			return c
		}
	}
	return nil
}

// Walk visits n and its descendants depth-first in child order.
// Returning false from fn skips the node's children.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	var walk func(*Node, int)
	walk = func(node *Node, depth int) {
		if !fn(node, depth) {
			return
		}
		for _, c := range node.Children {
			walk(c, depth+1)
		}
	}
	walk(n, 0)
}

// Leaves returns every leaf below n in tree order.
func (n *Node) Leaves() []*Node {
	var leaves []*Node
	n.Walk(func(node *Node, _ int) bool {
		if !node.IsFolder() {
			leaves = append(leaves, node)
		}
		return true
	})
	return leaves
}

// Find returns the node with the given ID, or nil.
func (n *Node) Find(id string) *Node {
	var found *Node
	n.Walk(func(node *Node, _ int) bool {
		if found != nil {
			return false
		}
		if node.ID == id {
			found = node
			return false
		}
		return true
	})
	return found
}

// Count returns the number of folders and leaves below n, excluding n.
func (n *Node) Count() (folders, leaves int) {
	n.Walk(func(node *Node, depth int) bool {
		if depth == 0 {
			return true
		}
		if node.IsFolder() {
			folders++
		} else {
			leaves++
		}
		return true
	})
	return folders, leaves
}
