package importer

import (
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/nikbrunner/bmbox/internal/model"
)

// ParseHTMLBookmarks parses Netscape bookmark HTML into a tree rooted at a
// folder with ID "0". A folder flagged PERSONAL_TOOLBAR_FOLDER gets the
// bookmark bar ID. Everything else at the top level is gathered into an
// "Other bookmarks" folder, the shape a browser's own tree has.
func ParseHTMLBookmarks(r io.Reader) (*model.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	root := model.NewFolder(model.NewFolderParams{ID: "0"})

	// Stack of open folders; the top receives new children
	stack := []*model.Node{root}
	var pendingFolder *model.Node // folder waiting to be pushed on next DL

	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "h3":
				name := getTextContent(n)
				if name != "" {
					params := model.NewFolderParams{Title: name}
					if strings.EqualFold(getAttr(n, "personal_toolbar_folder"), "true") {
						params.ID = model.BarFolderID
					}
					folder := model.NewFolder(params)
					parent := stack[len(stack)-1]
					parent.Children = append(parent.Children, folder)

					// Pushed when we see the next DL
					pendingFolder = folder
				}
				return

			case "a":
				href := getAttr(n, "href")
				if href == "" {
					return
				}

				title := getTextContent(n)
				if title == "" {
					title = href
				}

				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, model.NewLeaf(model.NewLeafParams{
					Title: title,
					URL:   href,
				}))
				return

			case "dl":
				pushed := false
				if pendingFolder != nil {
					stack = append(stack, pendingFolder)
					pendingFolder = nil
					pushed = true
				}

				for c := n.FirstChild; c != nil; c = c.NextSibling {
					parse(c)
				}

				if pushed && len(stack) > 1 {
					stack = stack[:len(stack)-1]
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}

	parse(doc)
	gatherOther(root)
	return root, nil
}

// gatherOther moves the root's non-bar children into the other-bookmarks
// folder. An export that already has that folder as its only non-bar
// entry keeps it as is.
func gatherOther(root *model.Node) {
	var bar *model.Node
	var rest []*model.Node
	for _, c := range root.Children {
		if bar == nil && c.IsBar() {
			bar = c
			continue
		}
		rest = append(rest, c)
	}

	kept := []*model.Node{}
	if bar != nil {
		kept = append(kept, bar)
	}
	switch {
	case len(rest) == 0:
	case len(rest) == 1 && rest[0].IsFolder() && strings.EqualFold(rest[0].Title, model.OtherFolderTitle):
		rest[0].ID = model.OtherFolderID
		kept = append(kept, rest[0])
	default:
		kept = append(kept, model.NewFolder(model.NewFolderParams{
			ID:       model.OtherFolderID,
			Title:    model.OtherFolderTitle,
			Children: rest,
		}))
	}
	root.Children = kept
}

// getTextContent returns the text content of a node.
func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	key = strings.ToLower(key)
	for _, attr := range n.Attr {
		if strings.ToLower(attr.Key) == key {
			return attr.Val
		}
	}
	return ""
}
