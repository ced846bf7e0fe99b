package exporter

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nikbrunner/bmbox/internal/model"
)

// DefaultExportPath returns the default export file path.
// Format: ~/Downloads/bookmarks-export-YYYY-MM-DD.html
func DefaultExportPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("bookmarks-export-%s.html", time.Now().Format("2006-01-02"))
	return filepath.Join(home, "Downloads", filename), nil
}

// ExportHTML exports a bookmark tree to Netscape bookmark HTML format.
// The tree carries no timestamps, so every entry gets addDate.
func ExportHTML(root *model.Node, addDate time.Time) string {
	var b strings.Builder

	// Header
	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")

	if root != nil {
		writeItems(&b, root.Children, addDate.Unix(), 1)
	}

	// Footer
	b.WriteString("</DL><p>\n")

	return b.String()
}

// writeItems recursively writes nodes in tree order.
func writeItems(b *strings.Builder, nodes []*model.Node, timestamp int64, indent int) {
	prefix := strings.Repeat("    ", indent)

	for _, n := range nodes {
		if !n.IsFolder() {
			fmt.Fprintf(b,
				"%s<DT><A HREF=\"%s\" ADD_DATE=\"%d\">%s</A>\n",
				prefix,
				html.EscapeString(n.URL),
				timestamp,
				html.EscapeString(n.Title),
			)
			continue
		}

		toolbar := ""
		if n.IsBar() {
			toolbar = ` PERSONAL_TOOLBAR_FOLDER="true"`
		}
		fmt.Fprintf(b, "%s<DT><H3 ADD_DATE=\"%d\"%s>%s</H3>\n", prefix, timestamp, toolbar, html.EscapeString(n.Title))
		fmt.Fprintf(b, "%s<DL><p>\n", prefix)

		writeItems(b, n.Children, timestamp, indent+1)

		fmt.Fprintf(b, "%s</DL><p>\n", prefix)
	}
}
