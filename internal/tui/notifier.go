package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nikbrunner/bmbox/internal/panel"
)

// Notifier is a panel surface that forwards renders to a running program.
// Only the latest pending view is delivered. Renders before Attach are
// dropped; the App reads the engine's view when it is created.
type Notifier struct {
	mu      sync.Mutex
	program *tea.Program
	pending *panel.View
	wake    chan struct{}
	done    chan struct{}
}

// NewNotifier returns a Notifier with no program attached.
func NewNotifier() *Notifier {
	return &Notifier{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Attach sets the program renders are sent to and starts delivering.
func (n *Notifier) Attach(p *tea.Program) {
	n.mu.Lock()
	first := n.program == nil
	n.program = p
	n.mu.Unlock()
	if first {
		go n.pump()
	}
}

// Close stops delivery.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	select {
	case <-n.done:
	default:
		close(n.done)
	}
}

// pump sends views from its own goroutine. The engine holds its lock
// while rendering and the update loop may be waiting on that lock.
func (n *Notifier) pump() {
	for {
		select {
		case <-n.done:
			return
		case <-n.wake:
		}
		n.mu.Lock()
		p, v := n.program, n.pending
		n.pending = nil
		n.mu.Unlock()
		if p != nil && v != nil {
			p.Send(ViewChangedMsg{View: *v})
		}
	}
}

// Render implements panel.Surface.
func (n *Notifier) Render(v panel.View) {
	n.mu.Lock()
	if n.program == nil {
		n.mu.Unlock()
		return
	}
	n.pending = &v
	n.mu.Unlock()

	select {
	case n.wake <- struct{}{}:
	default:
	}
}

// SetCollapsed implements panel.Surface. The App reads the state back itself.
func (n *Notifier) SetCollapsed(bool) {}

// SetFolderExpanded implements panel.Surface.
func (n *Notifier) SetFolderExpanded(string, bool) {}

var _ panel.Surface = (*Notifier)(nil)
