package playback

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/vidbox/internal/app/notification"
	"github.com/osa030/vidbox/internal/app/permission"
	"github.com/osa030/vidbox/internal/domain/media"
)

type fakeEngine struct {
	listeners Listeners
	items     []media.Entry
	calls     []string
	state     State
	position  time.Duration
	volume    float64
	released  bool
}

func (e *fakeEngine) AddListener(l *Listener) { e.listeners.Add(l) }

func (e *fakeEngine) AddItem(entry media.Entry) {
	e.items = append(e.items, entry)
	e.calls = append(e.calls, "add:"+entry.URI)
}

func (e *fakeEngine) ItemCount() int { return len(e.items) }

func (e *fakeEngine) ClearItems() {
	e.items = nil
	e.calls = append(e.calls, "clear")
}

func (e *fakeEngine) SeekToDefault(index int) {
	e.position = 0
	e.calls = append(e.calls, fmt.Sprintf("seekDefault:%d", index))
}

func (e *fakeEngine) SeekTo(position time.Duration) {
	e.position = position
	e.calls = append(e.calls, fmt.Sprintf("seek:%d", position.Milliseconds()))
}

func (e *fakeEngine) Prepare() { e.calls = append(e.calls, "prepare") }
func (e *fakeEngine) Play()    { e.calls = append(e.calls, "play") }
func (e *fakeEngine) Pause()   { e.calls = append(e.calls, "pause") }
func (e *fakeEngine) Stop()    { e.calls = append(e.calls, "stop") }

func (e *fakeEngine) State() State { return e.state }

func (e *fakeEngine) CurrentPosition() time.Duration { return e.position }

func (e *fakeEngine) SetVolume(volume float64) { e.volume = volume }

func (e *fakeEngine) Release() {
	e.released = true
	e.calls = append(e.calls, "release")
}

func (e *fakeEngine) reset() { e.calls = nil }

// emitState moves the engine to state and reports it.
func (e *fakeEngine) emitState(state State) {
	e.state = state
	e.listeners.StateChanged(state)
}

type fakeEnumerator struct {
	records []media.Record
	err     error
	calls   int
}

func (f *fakeEnumerator) EnumerateVideoFiles(ctx context.Context) ([]media.Record, error) {
	f.calls++
	return f.records, f.err
}

type fakePermissions struct {
	granted  map[string]bool
	answer   permission.Status
	requests [][]string
	pending  []func()
}

func (f *fakePermissions) CheckGranted(name string) bool { return f.granted[name] }

func (f *fakePermissions) Request(names []string, requestCode int, callback permission.Callback) {
	f.requests = append(f.requests, names)
	results := make([]permission.Result, 0, len(names))
	for _, n := range names {
		results = append(results, permission.Result{Name: n, Status: f.answer})
	}
	f.pending = append(f.pending, func() { callback(requestCode, results) })
}

func (f *fakePermissions) deliver() {
	pending := f.pending
	f.pending = nil
	for _, fn := range pending {
		fn()
	}
}

type fakePicker struct {
	shown    int
	title    string
	labels   []string
	onChosen func(int)
}

func (f *fakePicker) ShowChoice(title string, labels []string, onChosen func(int)) {
	f.shown++
	f.title = title
	f.labels = labels
	f.onChosen = onChosen
}

type fakeNotifier struct {
	got []notification.Notification
}

func (f *fakeNotifier) Notify(n notification.Notification) {
	f.got = append(f.got, n)
}

type fixture struct {
	controller  *Controller
	engine      *fakeEngine
	enumerator  *fakeEnumerator
	permissions *fakePermissions
	picker      *fakePicker
	notifier    *fakeNotifier
	snapshots   []Snapshot
}

func newFixture(paths ...string) *fixture {
	f := &fixture{
		engine:     &fakeEngine{},
		enumerator: &fakeEnumerator{},
		permissions: &fakePermissions{
			granted: map[string]bool{
				permission.ReadMediaVideo:      true,
				permission.ReadExternalStorage: true,
			},
		},
		picker:   &fakePicker{},
		notifier: &fakeNotifier{},
	}
	for _, p := range paths {
		f.enumerator.records = append(f.enumerator.records, media.Record{Path: p})
	}
	f.controller = NewController(Config{Engine: DefaultEngineConfig()}, Deps{
		Builder:     func(EngineConfig) (Engine, error) { return f.engine, nil },
		Enumerator:  f.enumerator,
		Permissions: f.permissions,
		Picker:      f.picker,
		Notifier:    f.notifier,
		OnChange:    func(s Snapshot) { f.snapshots = append(f.snapshots, s) },
	})
	return f
}

func (f *fixture) create(t *testing.T, saved *SavedState) {
	t.Helper()
	require.NoError(t, f.controller.OnScreenCreated(saved))
}

func TestController_QueueFollowsEnumerationOrder(t *testing.T) {
	f := newFixture("/sdcard/Movies/a.MP4", "/sdcard/DCIM/b.mkv")
	f.create(t, nil)

	want := []string{"file:///sdcard/Movies/a.mp4", "file:///sdcard/DCIM/b.mkv"}
	assert.Equal(t, want, f.controller.Session().Playlist.URIs())
	assert.Equal(t, []string{"add:" + want[0], "add:" + want[1]}, f.engine.calls)
	assert.Equal(t, 2, f.engine.ItemCount())
	assert.InDelta(t, 0.1, f.engine.volume, 1e-9)
	assert.Empty(t, f.permissions.requests)

	assert.True(t, f.controller.ShowPicker())
	assert.Equal(t, "Videos", f.picker.title)
	assert.Equal(t, want, f.picker.labels)
}

func TestController_OnScreenCreated(t *testing.T) {
	t.Run("twice", func(t *testing.T) {
		f := newFixture()
		f.create(t, nil)
		err := f.controller.OnScreenCreated(nil)
		assert.True(t, errors.Is(err, ErrAlreadyCreated))
	})

	t.Run("builder failure", func(t *testing.T) {
		f := newFixture()
		f.controller.deps.Builder = func(EngineConfig) (Engine, error) {
			return nil, errors.New("no mpv")
		}
		err := f.controller.OnScreenCreated(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no mpv")
		assert.Nil(t, f.controller.Session())
	})

	t.Run("invalid config", func(t *testing.T) {
		f := newFixture()
		f.controller.config.Engine.Volume = 2
		assert.Error(t, f.controller.OnScreenCreated(nil))
	})

	t.Run("restores saved position", func(t *testing.T) {
		f := newFixture("/v/a.mp4")
		saved := NewSavedState()
		saved.PutPosition(12500 * time.Millisecond)
		f.create(t, saved)
		assert.Equal(t, 12500*time.Millisecond, f.controller.Session().LastSavedPosition)

		f.engine.reset()
		f.controller.OnScreenStarted()
		assert.Equal(t, []string{"prepare", "seek:12500"}, f.engine.calls)
	})

	t.Run("enumeration failure counts as empty", func(t *testing.T) {
		f := newFixture()
		f.enumerator.err = errors.New("boom")
		f.create(t, nil)
		assert.True(t, f.controller.Session().Playlist.IsEmpty())
		assert.Empty(t, f.engine.calls)
	})
}

func TestController_Permissions(t *testing.T) {
	tests := []struct {
		name      string
		granted   map[string]bool
		answer    permission.Status
		wantCount int
		wantAsked bool
	}{
		{
			name:      "all granted up front",
			granted:   map[string]bool{permission.ReadMediaVideo: true, permission.ReadExternalStorage: true},
			wantCount: 2,
		},
		{
			name:      "missing then granted",
			granted:   map[string]bool{permission.ReadMediaVideo: true},
			answer:    permission.StatusGranted,
			wantCount: 2,
			wantAsked: true,
		},
		{
			name:      "denied",
			granted:   map[string]bool{},
			answer:    permission.StatusDenied,
			wantCount: 0,
			wantAsked: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture("/v/a.mp4", "/v/b.mp4")
			f.permissions.granted = tt.granted
			f.permissions.answer = tt.answer
			f.create(t, nil)

			if tt.wantAsked {
				require.Len(t, f.permissions.requests, 1)
				assert.Equal(t, RequiredPermissions, f.permissions.requests[0])
				assert.True(t, f.controller.Session().Playlist.IsEmpty())
			} else {
				assert.Empty(t, f.permissions.requests)
			}

			f.permissions.deliver()
			assert.Equal(t, tt.wantCount, f.controller.Session().Playlist.Len())
			assert.Equal(t, tt.wantCount, f.engine.ItemCount())

			shown := f.controller.ShowPicker()
			assert.Equal(t, tt.wantCount > 0, shown)
		})
	}
}

func TestController_OnPermissionResult_IgnoresOtherCodes(t *testing.T) {
	f := newFixture("/v/a.mp4")
	f.permissions.granted = map[string]bool{}
	f.create(t, nil)

	f.controller.OnPermissionResult(99, []permission.Result{{Name: permission.ReadMediaVideo, Status: permission.StatusGranted}})
	assert.True(t, f.controller.Session().Playlist.IsEmpty())
	assert.Equal(t, 0, f.enumerator.calls)
}

func TestController_ShowPickerEmpty(t *testing.T) {
	f := newFixture()
	f.create(t, nil)
	assert.False(t, f.controller.ShowPicker())
	assert.Equal(t, 0, f.picker.shown)
}

func TestController_StopStartRoundTrip(t *testing.T) {
	f := newFixture("/v/a.mp4")
	f.create(t, nil)
	f.controller.OnScreenStarted()

	f.engine.position = 42 * time.Second
	f.controller.OnScreenStopped()
	assert.Equal(t, 42*time.Second, f.controller.Session().LastSavedPosition)

	saved := NewSavedState()
	f.controller.OnSaveState(saved)
	pos, ok := saved.Position()
	require.True(t, ok)
	assert.Equal(t, 42*time.Second, pos)

	f.engine.position = 0
	f.engine.reset()
	f.controller.OnScreenStarted()
	assert.Equal(t, []string{"prepare", "seek:42000"}, f.engine.calls)
	assert.Equal(t, 42*time.Second, f.engine.CurrentPosition())
}

func TestController_PauseResume(t *testing.T) {
	f := newFixture("/v/a.mp4")
	f.create(t, nil)
	f.controller.Session().LastSavedPosition = 5 * time.Second
	f.engine.reset()

	f.controller.OnScreenPaused()
	f.controller.OnScreenResumed()

	assert.Equal(t, []string{"pause"}, f.engine.calls)
	assert.Equal(t, 5*time.Second, f.controller.Session().LastSavedPosition)
}

func TestController_EndedResetsSession(t *testing.T) {
	f := newFixture("/v/a.mp4", "/v/b.mp4")
	f.create(t, nil)
	f.controller.Session().LastSavedPosition = 30 * time.Second
	f.engine.reset()

	f.engine.emitState(StateReady)
	assert.Equal(t, StateReady, f.controller.Session().State)

	f.engine.emitState(StateEnded)
	assert.Equal(t, []string{"clear"}, f.engine.calls)
	assert.Equal(t, 0, f.engine.ItemCount())
	assert.True(t, f.controller.Session().Playlist.IsEmpty())
	assert.Equal(t, time.Duration(0), f.controller.Session().LastSavedPosition)
	assert.Equal(t, StateIdle, f.controller.Session().State)
	assert.False(t, f.controller.ShowPicker())
}

func TestController_StaleEndedIgnored(t *testing.T) {
	tests := []struct {
		name   string
		engine State
	}{
		{name: "buffering", engine: StateBuffering},
		{name: "ready", engine: StateReady},
		{name: "idle", engine: StateIdle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture("/v/a.mp4", "/v/b.mp4")
			f.create(t, nil)
			f.controller.Session().LastSavedPosition = 30 * time.Second
			f.engine.state = tt.engine
			f.engine.reset()

			f.engine.listeners.StateChanged(StateEnded)
			assert.Empty(t, f.engine.calls)
			assert.Equal(t, 2, f.engine.ItemCount())
			assert.Equal(t, 2, f.controller.Session().Playlist.Len())
			assert.Equal(t, 30*time.Second, f.controller.Session().LastSavedPosition)
		})
	}
}

func TestController_FilesAddedAfterEndedStayAligned(t *testing.T) {
	f := newFixture("/v/a.mp4", "/v/b.mp4")
	f.create(t, nil)
	f.engine.emitState(StateEnded)

	f.controller.OnFilesAdded([]media.Entry{media.EntryFromPath("/v/c.mp4")})
	assert.Equal(t, []string{"file:///v/c.mp4"}, f.controller.Session().Playlist.URIs())
	require.Len(t, f.engine.items, 1)
	assert.Equal(t, "file:///v/c.mp4", f.engine.items[0].URI)

	require.True(t, f.controller.ShowPicker())
	assert.Equal(t, []string{"file:///v/c.mp4"}, f.picker.labels)
	f.engine.reset()
	f.picker.onChosen(0)
	assert.Equal(t, []string{"stop", "seekDefault:0", "play"}, f.engine.calls)
}

func TestController_OnUserSelect(t *testing.T) {
	tests := []struct {
		name  string
		index int
		want  []string
	}{
		{name: "first", index: 0, want: []string{"stop", "seekDefault:0", "play"}},
		{name: "second", index: 1, want: []string{"stop", "seekDefault:1", "play"}},
		{name: "negative", index: -1, want: nil},
		{name: "past end", index: 2, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture("/sdcard/Movies/a.MP4", "/sdcard/DCIM/b.mkv")
			f.create(t, nil)
			f.engine.position = 17 * time.Second
			f.engine.reset()

			f.controller.OnUserSelect(tt.index)
			assert.Equal(t, tt.want, f.engine.calls)
			if tt.want != nil {
				assert.Equal(t, time.Duration(0), f.engine.CurrentPosition())
			}
		})
	}
}

func TestController_PickerChoosesItem(t *testing.T) {
	f := newFixture("/sdcard/Movies/a.MP4", "/sdcard/DCIM/b.mkv")
	f.create(t, nil)
	require.True(t, f.controller.ShowPicker())
	f.engine.reset()

	f.picker.onChosen(1)
	assert.Equal(t, []string{"stop", "seekDefault:1", "play"}, f.engine.calls)

	f.engine.listeners.MediaItemTransition(&media.Entry{URI: "file:///sdcard/DCIM/b.mkv", Title: "b.mkv"}, TransitionSeek)
	require.Len(t, f.notifier.got, 1)
	assert.Equal(t, "Playing: id=file:///sdcard/DCIM/b.mkv, metadata: b.mkv", f.notifier.got[0].Message)
	assert.Equal(t, notification.LengthShort, f.notifier.got[0].Length)
}

func TestController_EngineErrorToast(t *testing.T) {
	f := newFixture("/v/a.mp4")
	f.create(t, nil)

	f.engine.listeners.Error(NewEngineError(ErrorCodeIOFileNotFound, "file not found"))

	require.Len(t, f.notifier.got, 1)
	assert.Equal(t, "2005 - file not found", f.notifier.got[0].Message)
	assert.Equal(t, notification.LengthLong, f.notifier.got[0].Length)
	assert.False(t, f.controller.Session().Released())
}

func TestController_NilTransitionNoToast(t *testing.T) {
	f := newFixture("/v/a.mp4")
	f.create(t, nil)

	f.engine.listeners.MediaItemTransition(nil, TransitionPlaylistChanged)
	assert.Empty(t, f.notifier.got)
}

func TestController_ListenerUpdatesSnapshot(t *testing.T) {
	f := newFixture("/v/a.mp4")
	f.create(t, nil)

	f.engine.listeners.MediaMetadataChanged(media.Metadata{Title: "Holiday"})
	f.engine.listeners.IsPlayingChanged(true)

	snap := f.controller.Snapshot()
	assert.Equal(t, "Holiday", snap.Title)
	assert.True(t, snap.Playing)
	assert.Equal(t, 1, snap.QueueLength)
	assert.Equal(t, []string{"file:///v/a.mp4"}, snap.Labels)
	require.NotEmpty(t, f.snapshots)
	assert.True(t, f.snapshots[len(f.snapshots)-1].Playing)

	f.engine.reset()
	f.controller.TogglePlayPause()
	f.engine.listeners.IsPlayingChanged(false)
	f.controller.TogglePlayPause()
	assert.Equal(t, []string{"pause", "play"}, f.engine.calls)
}

func TestController_IgnoresCallsAfterDestroy(t *testing.T) {
	f := newFixture("/v/a.mp4")
	f.create(t, nil)
	f.controller.OnScreenDestroyed()
	assert.True(t, f.engine.released)
	assert.True(t, f.controller.Session().Released())
	f.engine.reset()

	f.controller.OnScreenStarted()
	f.controller.OnScreenStopped()
	f.controller.OnUserSelect(0)
	f.controller.OnScreenDestroyed()
	f.controller.Play()
	f.engine.listeners.StateChanged(StateEnded)
	f.engine.listeners.Error(NewEngineError(ErrorCodeDecodingFailed, "late"))

	assert.Empty(t, f.engine.calls)
	assert.Empty(t, f.notifier.got)
	assert.False(t, f.controller.ShowPicker())
	assert.True(t, f.controller.Snapshot().Released)
}

func TestController_OnFilesAdded(t *testing.T) {
	f := newFixture("/v/a.mp4")
	f.create(t, nil)

	f.controller.OnFilesAdded([]media.Entry{media.EntryFromPath("/v/c.MOV")})
	assert.Equal(t, []string{"file:///v/a.mp4", "file:///v/c.mov"}, f.controller.Session().Playlist.URIs())
	assert.Equal(t, 2, f.engine.ItemCount())
}

func TestController_OnFilesAddedWithoutAccess(t *testing.T) {
	f := newFixture("/v/a.mp4")
	f.permissions.granted = map[string]bool{}
	f.create(t, nil)

	f.controller.OnFilesAdded([]media.Entry{media.EntryFromPath("/v/c.mp4")})
	assert.True(t, f.controller.Session().Playlist.IsEmpty())
}
