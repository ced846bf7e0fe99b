package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/nikbrunner/bmbox/internal/model"
)

// ErrNoRoots is returned when a Chrome bookmarks file has no roots object.
var ErrNoRoots = errors.New("chrome bookmarks: missing roots")

// chromeNode mirrors a node of Chrome's Bookmarks JSON file.
type chromeNode struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Type     string       `json:"type"` // "folder" or "url"
	URL      string       `json:"url"`
	Children []chromeNode `json:"children"`
}

type chromeFile struct {
	Roots map[string]json.RawMessage `json:"roots"`
}

// chromeRootOrder is the order chrome.bookmarks.getTree reports the roots in.
var chromeRootOrder = []string{"bookmark_bar", "other", "synced"}

// ParseChromeBookmarks parses a Chrome/Chromium "Bookmarks" profile file
// into a tree rooted at a folder with ID "0".
func ParseChromeBookmarks(r io.Reader) (*model.Node, error) {
	var file chromeFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("chrome bookmarks: %w", err)
	}
	if len(file.Roots) == 0 {
		return nil, ErrNoRoots
	}

	root := model.NewFolder(model.NewFolderParams{ID: "0"})
	for _, key := range chromeRootOrder {
		raw, ok := file.Roots[key]
		if !ok {
			continue
		}
		var n chromeNode
		if err := json.Unmarshal(raw, &n); err != nil {
			// Not every roots entry is a node (e.g. sync_transaction_version)
			continue
		}
		root.Children = append(root.Children, convertChromeNode(n))
	}

	return root, nil
}

func convertChromeNode(n chromeNode) *model.Node {
	if n.Type == "url" {
		return model.NewLeaf(model.NewLeafParams{ID: n.ID, Title: n.Name, URL: n.URL})
	}

	children := make([]*model.Node, 0, len(n.Children))
	for _, c := range n.Children {
		children = append(children, convertChromeNode(c))
	}
	return model.NewFolder(model.NewFolderParams{ID: n.ID, Title: n.Name, Children: children})
}
