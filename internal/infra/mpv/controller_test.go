package mpv

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/vidbox/internal/app/permission"
	"github.com/osa030/vidbox/internal/app/playback"
	"github.com/osa030/vidbox/internal/domain/media"
	"github.com/osa030/vidbox/internal/infra/mediastore"
)

// controllerHarness runs a real controller on top of the engine harness,
// with the media store and permission manager reading a temp directory.
type controllerHarness struct {
	*harness
	controller *playback.Controller
	dir        string
}

func newControllerHarness(t *testing.T, granted []string, names ...string) *controllerHarness {
	t.Helper()

	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("video"), 0o644))
	}

	h := newHarness(t, playback.DefaultEngineConfig())
	ch := &controllerHarness{harness: h, dir: dir}
	ch.controller = playback.NewController(playback.Config{Engine: playback.DefaultEngineConfig()}, playback.Deps{
		Builder:     func(playback.EngineConfig) (playback.Engine, error) { return h.engine, nil },
		Enumerator:  mediastore.New(mediastore.Config{ExternalRoots: []string{dir}}),
		Permissions: permission.NewManager(permission.Config{Granted: granted, Roots: []string{dir}}, h.loop.Dispatch),
	})
	return ch
}

func (ch *controllerHarness) start(t *testing.T) {
	t.Helper()
	var err error
	ch.do(func(*Engine) {
		err = ch.controller.OnScreenCreated(nil)
		ch.controller.OnScreenStarted()
	})
	require.NoError(t, err)
}

// sync waits until everything posted so far has run on the loop.
func (ch *controllerHarness) sync() {
	ch.t.Helper()
	ch.do(func(*Engine) {})
}

func (ch *controllerHarness) snapshot() playback.Snapshot {
	var snap playback.Snapshot
	ch.do(func(*Engine) { snap = ch.controller.Snapshot() })
	return snap
}

func TestController_GrantAtStartupKeepsQueue(t *testing.T) {
	ch := newControllerHarness(t, []string{permission.ReadMediaVideo}, "a.mp4", "b.mkv")

	// The grant is posted during create and lands after Prepare already
	// reported Ended for the empty queue.
	var err error
	ch.do(func(*Engine) {
		err = ch.controller.OnScreenCreated(nil)
		ch.controller.OnScreenStarted()
		ch.controller.OnScreenResumed()
	})
	require.NoError(t, err)
	ch.expectEvent("state:ended")
	ch.expectEvent("state:buffering")
	load := ch.expectCommand("loadfile")
	assert.Equal(t, "a.mp4", filepath.Base(load[1].(string)))
	ch.sync()

	snap := ch.snapshot()
	assert.Len(t, snap.Labels, 2)
	assert.Equal(t, 2, snap.QueueLength)
	assert.Equal(t, playback.StateBuffering, snap.State)
}

func TestController_EndedThenStopSavesNothing(t *testing.T) {
	ch := newControllerHarness(t, []string{permission.ReadMediaVideo, permission.ReadExternalStorage}, "a.mp4")

	ch.start(t)
	ch.expectCommand("loadfile")
	ch.send(map[string]any{"event": "file-loaded"})
	ch.expectEvent("state:ready")

	ch.property(propTimePos, "time-pos", 95.0)
	require.Eventually(t, func() bool { return ch.position() == 95*time.Second }, waitTimeout, 10*time.Millisecond)

	ch.property(propEOFReached, "eof-reached", true)
	ch.expectEvent("state:ended")
	ch.expectEvent("transition:nil:PLAYLIST_CHANGED")
	ch.sync()

	snap := ch.snapshot()
	assert.Equal(t, time.Duration(0), snap.LastSavedPosition)
	assert.Equal(t, 0, snap.QueueLength)
	assert.Empty(t, snap.Labels)

	ch.do(func(*Engine) { ch.controller.OnScreenStopped() })
	assert.Equal(t, time.Duration(0), ch.snapshot().LastSavedPosition)

	saved := playback.NewSavedState()
	ch.do(func(*Engine) { ch.controller.OnSaveState(saved) })
	pos, ok := saved.Position()
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), pos)
}

func TestController_FilesAddedAfterEnded(t *testing.T) {
	ch := newControllerHarness(t, []string{permission.ReadMediaVideo, permission.ReadExternalStorage}, "a.mp4", "b.mp4")

	ch.start(t)
	ch.expectCommand("loadfile")
	ch.send(map[string]any{"event": "file-loaded"})
	ch.expectEvent("state:ready")

	ch.do(func(e *Engine) { e.SeekToDefault(1) })
	ch.expectCommand("loadfile")
	ch.send(map[string]any{"event": "file-loaded"})
	ch.property(propTimePos, "time-pos", 40.0)
	require.Eventually(t, func() bool { return ch.position() == 40*time.Second }, waitTimeout, 10*time.Millisecond)
	ch.property(propEOFReached, "eof-reached", true)
	ch.expectEvent("state:ended")
	ch.expectEvent("transition:nil:PLAYLIST_CHANGED")
	ch.sync()

	c := media.EntryFromPath(filepath.Join(ch.dir, "c.mp4"))
	ch.do(func(*Engine) { ch.controller.OnFilesAdded([]media.Entry{c}) })
	load := ch.expectCommand("loadfile")
	assert.Equal(t, "c.mp4", filepath.Base(load[1].(string)))
	ch.send(map[string]any{"event": "file-loaded"})
	ch.expectEvent("state:ready")
	assert.Equal(t, time.Duration(0), ch.position())

	snap := ch.snapshot()
	assert.Equal(t, []string{c.URI}, snap.Labels)
	assert.Equal(t, 1, snap.QueueLength)
}
