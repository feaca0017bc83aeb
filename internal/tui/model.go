// Package tui renders the playback screen in the terminal.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/osa030/vidbox/internal/app/notification"
	"github.com/osa030/vidbox/internal/app/screen"
)

const refreshInterval = 500 * time.Millisecond

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	stateStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	toastStyle   = lipgloss.NewStyle().Padding(0, 1).Background(lipgloss.Color("236")).Foreground(lipgloss.Color("229"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
	screenMargin = lipgloss.NewStyle().Margin(1, 2)
)

// Actions are the user intents of the screen. Implementations hand them to
// the UI loop and must not block, except Background, which returns once the
// screen is in the background and is only called from a command.
type Actions interface {
	ShowPicker()
	TogglePlayPause()
	Recreate()
	Background()
	Foreground()
	Refresh()
	Quit()
}

// StatusMsg carries a fresh screen status.
type StatusMsg struct {
	Status screen.Status
}

// ToastMsg carries a notification to show.
type ToastMsg struct {
	Notification notification.Notification
}

// ShowPickerMsg opens the picker. OnChosen is called with the chosen index.
type ShowPickerMsg struct {
	Title    string
	Labels   []string
	OnChosen func(index int)
}

type tickMsg time.Time

type toastExpiredMsg struct {
	seq uint64
}

// Model is the root bubbletea model of the playback screen.
type Model struct {
	actions Actions

	status   screen.Status
	toast    *notification.Notification
	picker   *Picker
	onChosen func(int)

	width  int
	height int
}

// NewModel creates the screen model.
func NewModel(actions Actions) Model {
	return Model{actions: actions}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func expireToast(n notification.Notification) tea.Cmd {
	return tea.Tick(n.Length.Duration(), func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: n.SequenceNo}
	})
}

// Init starts the refresh ticker.
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.picker != nil {
			m.picker, _ = m.picker.Update(msg)
		}
		return m, nil

	case tickMsg:
		m.actions.Refresh()
		return m, tick()

	case tea.ResumeMsg:
		m.actions.Foreground()
		return m, nil

	case StatusMsg:
		m.status = msg.Status
		return m, nil

	case ToastMsg:
		n := msg.Notification
		m.toast = &n
		return m, expireToast(n)

	case toastExpiredMsg:
		if m.toast != nil && m.toast.SequenceNo == msg.seq {
			m.toast = nil
		}
		return m, nil

	case ShowPickerMsg:
		m.picker = NewPicker(msg.Title, msg.Labels, m.width, m.height)
		m.onChosen = msg.OnChosen
		return m, nil

	case ChosenMsg:
		if m.onChosen != nil {
			m.onChosen(msg.Index)
		}
		m.picker, m.onChosen = nil, nil
		return m, nil

	case CanceledMsg:
		m.picker, m.onChosen = nil, nil
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.actions.Quit()
			return m, tea.Quit
		}
		if m.picker != nil {
			var cmd tea.Cmd
			m.picker, cmd = m.picker.Update(msg)
			return m, cmd
		}
		return m.handleKey(msg)
	}

	if m.picker != nil {
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.actions.Quit()
		return m, tea.Quit
	case "l", "enter":
		m.actions.ShowPicker()
	case " ", "p":
		m.actions.TogglePlayPause()
	case "r":
		m.actions.Recreate()
	case "ctrl+z":
		return m, m.suspend()
	}
	return m, nil
}

// suspend backgrounds the screen and then suspends the program.
func (m Model) suspend() tea.Cmd {
	background := m.actions.Background
	return func() tea.Msg {
		background()
		return tea.Suspend()
	}
}

// View renders the screen.
func (m Model) View() string {
	if m.picker != nil {
		return m.picker.View()
	}

	var b strings.Builder
	snap := m.status.Session

	title := snap.Title
	if title == "" {
		title = "vidbox"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	play := "paused"
	if snap.Playing {
		play = "playing"
	}
	b.WriteString(stateStyle.Render(fmt.Sprintf("%s | %s", play, snap.State)))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %s  queue %d  screen %s",
		formatPosition(snap.Position), snap.QueueLength, m.status.Phase)))
	b.WriteString("\n")

	if len(snap.Labels) == 0 {
		b.WriteString(dimStyle.Render("no videos"))
		b.WriteString("\n")
	}

	if m.toast != nil {
		b.WriteString("\n")
		b.WriteString(toastStyle.Render(m.toast.Message))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("l: videos • space: play/pause • r: recreate • ctrl+z: background • q: quit"))
	return screenMargin.Render(b.String())
}

func formatPosition(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	if total >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", total/3600, total%3600/60, total%60)
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
