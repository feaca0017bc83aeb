package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"

	"github.com/osa030/vidbox/internal/app/notification"
	"github.com/osa030/vidbox/internal/app/screen"
)

// ErrNotAttached is returned while no program is attached to the bridge.
var ErrNotAttached = errors.New("tui: no program attached")

// Bridge delivers controller output to a running program. It implements the
// controller's picker and serves as a notification sink.
type Bridge struct {
	post func(func())

	mu   sync.RWMutex
	send func(tea.Msg)
}

// NewBridge creates a bridge. post hands work to the UI loop; picker choices
// go through it.
func NewBridge(post func(func())) *Bridge {
	return &Bridge{post: post}
}

// Attach connects the bridge to a program.
func (b *Bridge) Attach(p *tea.Program) {
	b.AttachFunc(p.Send)
}

// AttachFunc connects the bridge to a send function.
func (b *Bridge) AttachFunc(send func(tea.Msg)) {
	b.mu.Lock()
	b.send = send
	b.mu.Unlock()
}

// Detach disconnects the program. Later output is dropped.
func (b *Bridge) Detach() {
	b.AttachFunc(nil)
}

func (b *Bridge) deliver(msg tea.Msg) bool {
	b.mu.RLock()
	send := b.send
	b.mu.RUnlock()
	if send == nil {
		return false
	}
	// Blocks until the program reads msg. The model never waits on the
	// loop, so this cannot deadlock.
	send(msg)
	return true
}

// ShowChoice opens the picker. The choice is handed back through post.
func (b *Bridge) ShowChoice(title string, labels []string, onChosen func(index int)) {
	b.deliver(ShowPickerMsg{
		Title:  title,
		Labels: labels,
		OnChosen: func(index int) {
			b.post(func() { onChosen(index) })
		},
	})
}

// Send implements notification.Sink.
func (b *Bridge) Send(n notification.Notification) error {
	if !b.deliver(ToastMsg{Notification: n}) {
		return ErrNotAttached
	}
	return nil
}

// PublishStatus pushes a screen status.
func (b *Bridge) PublishStatus(st screen.Status) {
	b.deliver(StatusMsg{Status: st})
}
