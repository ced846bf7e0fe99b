package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/nikbrunner/bmbox/internal/panel"
)

const (
	headerTitle   = "📚 Bookmarks"
	toggleOpen    = "−"
	toggleClosed  = "+"
	arrowClosed   = "▶"
	arrowOpen     = "▼"
	defaultHeight = 20
)

// renderView renders the complete UI.
func (a App) renderView() string {
	if a.showHelp {
		return a.renderHelpOverlay()
	}

	var b strings.Builder
	b.WriteString(a.renderHeader())
	b.WriteString("\n")

	if !a.view.Collapsed {
		b.WriteString(a.styles.Pane.Render(a.renderContent()))
		b.WriteString("\n")
	}

	if a.filtering || a.filterInput.Value() != "" {
		b.WriteString(a.filterInput.View())
		b.WriteString("\n")
	}

	b.WriteString(a.renderHelpBar())

	content := a.styles.App.Render(b.String())
	if a.width > 0 && a.height > 0 {
		return lipgloss.Place(a.width, a.height, lipgloss.Left, lipgloss.Top, content)
	}
	return content
}

func (a App) renderHeader() string {
	toggle := toggleOpen
	if a.view.Collapsed {
		toggle = toggleClosed
	}
	return a.styles.Title.Render(headerTitle) + "  " + a.styles.Toggle.Render("["+toggle+"]")
}

// renderContent renders the panel body for the current status.
func (a App) renderContent() string {
	switch a.view.Status {
	case panel.StatusLoading:
		return a.styles.Empty.Render(a.view.Message)
	case panel.StatusEmpty:
		return a.styles.Empty.Render("📚 " + a.view.Message)
	case panel.StatusError:
		return a.styles.Error.Render("⚠️ " + a.view.Message)
	}

	rows := a.Rows()
	if len(rows) == 0 {
		return a.styles.Empty.Render("No matches")
	}

	// Keep the cursor on screen
	height := a.listHeight()
	start := 0
	if a.cursor >= height {
		start = a.cursor - height + 1
	}
	end := min(start+height, len(rows))

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, a.renderRow(rows[i], i == a.cursor))
	}
	return strings.Join(lines, "\n")
}

func (a App) listHeight() int {
	if a.height <= 0 {
		return defaultHeight
	}
	// header, pane borders, help bar and padding
	if h := a.height - 9; h > 1 {
		return h
	}
	return 1
}

func (a App) renderRow(row Row, isCursor bool) string {
	indent := strings.Repeat("  ", row.Depth)

	var line string
	if row.IsSection() {
		arrow := arrowClosed
		if row.Section.Expanded {
			arrow = arrowOpen
		}
		line = fmt.Sprintf("%s%s %s %s", indent, arrow, row.Section.Icon, a.styles.Folder.Render(row.Section.Title))
	} else {
		title := highlight(row.Link.Title, row.MatchedIndexes, a.styles.Match)
		line = fmt.Sprintf("%s  %s  %s", indent, a.styles.Bookmark.Render(title), a.styles.URL.Render(row.Link.Domain))
	}

	if isCursor {
		return a.styles.ItemSelected.Render(line)
	}
	return a.styles.Item.Render(line)
}

// highlight renders the runes at the matched byte offsets with style.
func highlight(s string, matched []int, style lipgloss.Style) string {
	if len(matched) == 0 {
		return s
	}
	set := make(map[int]bool, len(matched))
	for _, idx := range matched {
		set[idx] = true
	}

	var b strings.Builder
	for i, r := range s {
		if set[i] {
			b.WriteString(style.Render(string(r)))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (a App) renderHelpBar() string {
	var lines []string

	// Message replaces the gap
	if a.messageText != "" {
		lines = append(lines, a.renderMessageLine())
	} else {
		lines = append(lines, "")
	}

	bindings := []key.Binding{a.keys.TogglePanel, a.keys.Help, a.keys.Quit}
	if !a.view.Collapsed {
		bindings = []key.Binding{
			a.keys.Down, a.keys.Open, a.keys.Filter, a.keys.YankURL,
			a.keys.TogglePanel, a.keys.Help, a.keys.Quit,
		}
	}
	if a.filtering {
		bindings = []key.Binding{
			key.NewBinding(key.WithHelp("enter", "open")),
			key.NewBinding(key.WithHelp("esc", "clear")),
		}
	}
	lines = append(lines, a.renderHints(bindings))

	return a.styles.Help.Render(strings.Join(lines, "\n"))
}

func (a App) renderHints(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, a.styles.HintKey.Render(h.Key)+" "+a.styles.HintDesc.Render(h.Desc))
	}
	return strings.Join(parts, "  ")
}

// renderMessageLine renders the styled message with prefix icon based on type.
func (a App) renderMessageLine() string {
	var msgStyle lipgloss.Style
	var prefix string

	switch a.messageType {
	case MessageError:
		msgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#CC3333", Dark: "#FF6666"}).
			Bold(true)
		prefix = "✗ "
	case MessageWarning:
		msgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#CC8800", Dark: "#FFAA00"}).
			Bold(true)
		prefix = "⚠ "
	case MessageSuccess:
		msgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#338833", Dark: "#66CC66"}).
			Bold(true)
		prefix = "✓ "
	default: // MessageInfo
		msgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#4A7070", Dark: "#5F8787"}).
			Bold(true)
		prefix = ""
	}

	return msgStyle.Render(prefix + a.messageText)
}

func (a App) renderHelpOverlay() string {
	modalStyle := lipgloss.NewStyle().
		Padding(1, 2)

	var left strings.Builder
	left.WriteString(a.styles.Title.Render("nav") + "\n")
	left.WriteString("j/k    move\n")
	left.WriteString("h/l    collapse/expand\n")
	left.WriteString("gg     top\n")
	left.WriteString("G      bottom\n")
	left.WriteString("/      filter\n")

	var right strings.Builder
	right.WriteString(a.styles.Title.Render("act") + "\n")
	right.WriteString("enter  open/toggle\n")
	right.WriteString("space  show/hide panel\n")
	right.WriteString("Y      yank url\n")
	right.WriteString("r      reload\n")
	right.WriteString("R      refresh favicons\n")
	right.WriteString("\n")
	right.WriteString(a.styles.Help.Render("[?/esc] close  [q] quit"))

	cols := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(28).Render(left.String()),
		"  ",
		lipgloss.NewStyle().Width(28).Render(right.String()),
	)

	if a.width <= 0 || a.height <= 0 {
		return modalStyle.Render(cols)
	}
	return lipgloss.Place(
		a.width,
		a.height,
		lipgloss.Left,
		lipgloss.Top,
		modalStyle.Render(cols),
	)
}
