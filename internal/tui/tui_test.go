package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/vidbox/internal/app/dispatch"
	"github.com/osa030/vidbox/internal/app/notification"
	"github.com/osa030/vidbox/internal/app/playback"
	"github.com/osa030/vidbox/internal/app/screen"
)

type fakeActions struct {
	calls []string
}

func (f *fakeActions) ShowPicker()      { f.calls = append(f.calls, "picker") }
func (f *fakeActions) TogglePlayPause() { f.calls = append(f.calls, "toggle") }
func (f *fakeActions) Recreate()        { f.calls = append(f.calls, "recreate") }
func (f *fakeActions) Background()      { f.calls = append(f.calls, "background") }
func (f *fakeActions) Foreground()      { f.calls = append(f.calls, "foreground") }
func (f *fakeActions) Refresh()         { f.calls = append(f.calls, "refresh") }
func (f *fakeActions) Quit()            { f.calls = append(f.calls, "quit") }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func TestModel_Keys(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyMsg
		want []string
	}{
		{"picker", runes("l"), []string{"picker"}},
		{"toggle", tea.KeyMsg{Type: tea.KeySpace}, []string{"toggle"}},
		{"recreate", runes("r"), []string{"recreate"}},
		{"quit", runes("q"), []string{"quit"}},
		{"unbound", runes("x"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions := &fakeActions{}
			_, _ = update(t, NewModel(actions), tt.key)
			assert.Equal(t, tt.want, actions.calls)
		})
	}
}

func TestModel_BackgroundBeforeSuspend(t *testing.T) {
	actions := &fakeActions{}
	_, cmd := update(t, NewModel(actions), tea.KeyMsg{Type: tea.KeyCtrlZ})
	require.NotNil(t, cmd)
	assert.Empty(t, actions.calls)

	msg := cmd()
	assert.Equal(t, []string{"background"}, actions.calls)
	assert.Equal(t, tea.Suspend(), msg)
}

func TestModel_QuitCommand(t *testing.T) {
	_, cmd := update(t, NewModel(&fakeActions{}), runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_ResumeAndTick(t *testing.T) {
	actions := &fakeActions{}
	m := NewModel(actions)

	m, _ = update(t, m, tea.ResumeMsg{})
	_, cmd := update(t, m, tickMsg(time.Now()))

	assert.NotNil(t, cmd)
	assert.Equal(t, []string{"foreground", "refresh"}, actions.calls)
}

func TestModel_PickerChoice(t *testing.T) {
	actions := &fakeActions{}
	m := NewModel(actions)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	chosen := -1
	m, _ = update(t, m, ShowPickerMsg{
		Title:    "Videos",
		Labels:   []string{"file:///v/a.mp4", "file:///v/b.mp4"},
		OnChosen: func(i int) { chosen = i },
	})
	require.NotNil(t, m.picker)
	assert.Contains(t, m.View(), "Videos")

	// Keys go to the picker while it is open.
	m, _ = update(t, m, runes("l"))
	assert.Empty(t, actions.calls)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, ChosenMsg{Index: 1}, msg)

	m, _ = update(t, m, msg)
	assert.Equal(t, 1, chosen)
	assert.Nil(t, m.picker)
}

func TestModel_PickerCancel(t *testing.T) {
	m := NewModel(&fakeActions{})
	called := false
	m, _ = update(t, m, ShowPickerMsg{
		Title:    "Videos",
		Labels:   []string{"a"},
		OnChosen: func(int) { called = true },
	})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	assert.False(t, called)
	assert.Nil(t, m.picker)
}

func TestModel_Toast(t *testing.T) {
	m := NewModel(&fakeActions{})
	m, cmd := update(t, m, ToastMsg{Notification: notification.Notification{
		Message:    "2005 - file not found",
		Length:     notification.LengthLong,
		SequenceNo: 3,
	}})
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "2005 - file not found")

	m, _ = update(t, m, toastExpiredMsg{seq: 2})
	assert.Contains(t, m.View(), "2005 - file not found")

	m, _ = update(t, m, toastExpiredMsg{seq: 3})
	assert.NotContains(t, m.View(), "2005 - file not found")
}

func TestModel_ViewStatus(t *testing.T) {
	m := NewModel(&fakeActions{})
	m, _ = update(t, m, StatusMsg{Status: screen.Status{
		Phase: screen.PhaseResumed,
		Session: playback.Snapshot{
			State:       playback.StateReady,
			Title:       "Holiday",
			Playing:     true,
			Labels:      []string{"file:///v/a.mp4"},
			Position:    65 * time.Second,
			QueueLength: 1,
		},
	}})

	view := m.View()
	assert.Contains(t, view, "Holiday")
	assert.Contains(t, view, "playing")
	assert.Contains(t, view, "01:05")
	assert.Contains(t, view, "resumed")
	assert.NotContains(t, view, "no videos")
}

func TestFormatPosition(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00"},
		{-time.Second, "00:00"},
		{59*time.Second + 900*time.Millisecond, "00:59"},
		{10 * time.Minute, "10:00"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatPosition(tt.in))
		})
	}
}

func TestBridge(t *testing.T) {
	var posted []func()
	b := NewBridge(func(fn func()) { posted = append(posted, fn) })

	// Nothing attached yet.
	assert.ErrorIs(t, b.Send(notification.Notification{Message: "x"}), ErrNotAttached)

	var msgs []tea.Msg
	b.AttachFunc(func(msg tea.Msg) { msgs = append(msgs, msg) })

	require.NoError(t, b.Send(notification.Notification{Message: "hello"}))
	b.PublishStatus(screen.Status{Phase: screen.PhaseCreated})

	chosen := -1
	b.ShowChoice("Videos", []string{"a", "b"}, func(i int) { chosen = i })
	require.Len(t, msgs, 3)

	assert.Equal(t, "hello", msgs[0].(ToastMsg).Notification.Message)
	assert.Equal(t, screen.PhaseCreated, msgs[1].(StatusMsg).Status.Phase)

	pick := msgs[2].(ShowPickerMsg)
	assert.Equal(t, []string{"a", "b"}, pick.Labels)

	pick.OnChosen(1)
	assert.Equal(t, -1, chosen, "choice must go through the loop")
	require.Len(t, posted, 1)
	posted[0]()
	assert.Equal(t, 1, chosen)

	b.Detach()
	assert.ErrorIs(t, b.Send(notification.Notification{}), ErrNotAttached)
}

func TestHostActions_NoScreen(t *testing.T) {
	host := screen.NewHost(func() *playback.Controller { return nil })
	bridge := NewBridge(func(fn func()) { fn() })

	var statuses []screen.Status
	bridge.AttachFunc(func(msg tea.Msg) {
		if st, ok := msg.(StatusMsg); ok {
			statuses = append(statuses, st.Status)
		}
	})

	quit := false
	call := func(_ context.Context, fn func()) error { fn(); return nil }
	a := NewHostActions(func(fn func()) { fn() }, call, host, bridge, func() { quit = true })

	a.Foreground()
	a.Refresh()
	a.ShowPicker()
	a.TogglePlayPause()
	a.Quit()

	require.Len(t, statuses, 3)
	for _, st := range statuses {
		assert.Equal(t, screen.PhaseDestroyed, st.Phase)
	}
	assert.True(t, quit)
}

func TestHostActions_BackgroundWaitsForLoop(t *testing.T) {
	loop := dispatch.New()
	go func() { _ = loop.Run(context.Background()) }()
	defer loop.Close()

	earlier := false
	host := screen.NewHost(func() *playback.Controller { return nil })
	bridge := NewBridge(loop.Dispatch)
	var phases []screen.Phase
	bridge.AttachFunc(func(msg tea.Msg) {
		if st, ok := msg.(StatusMsg); ok {
			phases = append(phases, st.Status.Phase)
		}
	})

	a := NewHostActions(loop.Dispatch, loop.Call, host, bridge, nil)
	loop.Dispatch(func() {
		time.Sleep(20 * time.Millisecond)
		earlier = true
	})
	a.Background()

	assert.True(t, earlier)
	assert.Equal(t, []screen.Phase{screen.PhaseDestroyed}, phases)

	loop.Close()
	<-loop.Done()
	a.Background()
	assert.Len(t, phases, 1)
}
