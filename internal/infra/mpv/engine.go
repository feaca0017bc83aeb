package mpv

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vidbox/internal/app/playback"
	"github.com/osa030/vidbox/internal/domain/media"
)

// ErrReleased is returned when a command is sent after Release.
var ErrReleased = errors.New("mpv engine released")

// MetadataSource reads the metadata of a loaded item.
type MetadataSource interface {
	ReadURI(uri string) (media.Metadata, error)
}

// Engine is a playback engine backed by one mpv process.
//
// Every exported method must be called on the UI loop. Messages from mpv are
// read on a background goroutine and handled on the loop through post, and
// listener callbacks are posted as well, never invoked inline.
type Engine struct {
	cfg  playback.EngineConfig
	post func(func())
	meta MetadataSource

	conn    io.ReadWriteCloser
	writeMu sync.Mutex
	enc     *json.Encoder
	nextID  atomic.Int64

	released atomic.Bool
	onClose  func()

	// Owned by the UI loop.
	listeners     playback.Listeners
	items         []media.Entry
	current       int
	prepared      bool
	loaded        bool
	firstFrame    bool
	state         playback.State
	playWhenReady bool
	playing       bool
	buffering     bool
	coreIdle      bool
	atEnd         bool
	position      time.Duration
	pendingSeek   time.Duration
}

func newEngine(cfg playback.EngineConfig, conn io.ReadWriteCloser, post func(func()), meta MetadataSource) *Engine {
	e := &Engine{
		cfg:     cfg,
		post:    post,
		meta:    meta,
		conn:    conn,
		enc:     json.NewEncoder(conn),
		current: -1,
		state:   playback.StateIdle,
	}

	for _, p := range observed {
		_ = e.command("observe_property", p.id, p.name)
	}
	e.SetVolume(cfg.Volume)

	go e.readLoop()
	return e
}

// AddListener registers a listener.
func (e *Engine) AddListener(l *playback.Listener) {
	e.listeners.Add(l)
}

// AddItem appends an entry to the queue. The first item becomes current.
func (e *Engine) AddItem(entry media.Entry) {
	e.items = append(e.items, entry)
	if e.current >= 0 {
		return
	}

	e.current = 0
	item := e.items[0]
	e.emit(func(ls playback.Listeners) { ls.MediaItemTransition(&item, playback.TransitionPlaylistChanged) })
	if e.prepared {
		e.load()
	}
}

// ItemCount returns the queue length.
func (e *Engine) ItemCount() int {
	return len(e.items)
}

// ClearItems empties the queue and unloads the current item.
func (e *Engine) ClearItems() {
	hadItems := len(e.items) > 0
	e.items = nil
	e.current = -1
	e.loaded = false
	e.atEnd = false
	e.position = 0
	e.pendingSeek = 0

	if hadItems {
		_ = e.command("stop")
		e.emit(func(ls playback.Listeners) { ls.MediaItemTransition(nil, playback.TransitionPlaylistChanged) })
	}
	if e.prepared {
		e.setState(playback.StateEnded)
	}
	e.updatePlaying()
}

// SeekToDefault makes item index current, starting from its beginning.
func (e *Engine) SeekToDefault(index int) {
	if index < 0 || index >= len(e.items) {
		zlog.Warn().Msgf("mpv: seek to invalid index %d (items=%d)", index, len(e.items))
		return
	}

	if index != e.current {
		e.current = index
		item := e.items[index]
		e.emit(func(ls playback.Listeners) { ls.MediaItemTransition(&item, playback.TransitionSeek) })
	}
	e.position = 0
	e.pendingSeek = 0
	e.atEnd = false

	if e.prepared {
		e.load()
	}
}

// SeekTo seeks within the current item.
func (e *Engine) SeekTo(position time.Duration) {
	if position < 0 {
		position = 0
	}
	e.position = position
	if e.loaded {
		_ = e.command("seek", position.Seconds(), "absolute")
		return
	}
	e.pendingSeek = position
}

// Prepare starts loading the current item. With an empty queue the engine
// goes straight to Ended.
func (e *Engine) Prepare() {
	e.prepared = true
	if e.current < 0 {
		e.setState(playback.StateEnded)
		return
	}
	e.load()
}

// Play sets play-when-ready. A stopped engine is prepared again, and an
// engine paused at the end of an item moves on to the next one.
func (e *Engine) Play() {
	e.setPlayWhenReady(true, playback.ReasonUserRequest)

	if e.atEnd {
		e.advance()
		return
	}
	if !e.prepared && e.current >= 0 {
		e.Prepare()
		return
	}
	_ = e.command("set_property", "pause", false)
	e.updatePlaying()
}

// Pause clears play-when-ready.
func (e *Engine) Pause() {
	e.setPlayWhenReady(false, playback.ReasonUserRequest)
	_ = e.command("set_property", "pause", true)
	e.updatePlaying()
}

// Stop unloads the current item and returns to Idle. The queue and the last
// known position are kept.
func (e *Engine) Stop() {
	if e.prepared || e.loaded {
		_ = e.command("stop")
	}
	e.prepared = false
	e.loaded = false
	e.buffering = false
	e.setState(playback.StateIdle)
	e.updatePlaying()
}

// State returns the state last reported to listeners.
func (e *Engine) State() playback.State {
	return e.state
}

// CurrentPosition returns the last position reported by mpv.
func (e *Engine) CurrentPosition() time.Duration {
	return e.position
}

// SetVolume sets the output volume in [0,1].
func (e *Engine) SetVolume(volume float64) {
	prop := "volume"
	if e.cfg.DeviceVolumeControl && e.loaded {
		prop = "ao-volume"
	}
	_ = e.command("set_property", prop, volumePercent(volume))
}

// Release quits mpv. No callbacks are delivered afterwards.
func (e *Engine) Release() {
	if !e.released.CompareAndSwap(false, true) {
		return
	}
	e.writeMu.Lock()
	_ = e.enc.Encode(request{Command: []any{"quit"}, RequestID: e.nextID.Add(1)})
	e.writeMu.Unlock()

	_ = e.conn.Close()
	e.listeners = nil
	if e.onClose != nil {
		e.onClose()
	}
	zlog.Debug().Msg("mpv: released")
}

func (e *Engine) load() {
	if e.current < 0 || e.current >= len(e.items) {
		return
	}
	entry := e.items[e.current]
	target := entry.URI
	if p, ok := entry.LocalPath(); ok {
		target = media.ResolveLocalPath(p)
	}

	e.loaded = false
	e.firstFrame = false
	e.atEnd = false
	if e.position > 0 && e.pendingSeek == 0 {
		e.pendingSeek = e.position
	}

	_ = e.command("set_property", "pause", !e.playWhenReady)
	_ = e.command("loadfile", target, "replace")
	e.setState(playback.StateBuffering)
	e.updatePlaying()
}

func (e *Engine) advance() {
	if e.current+1 >= len(e.items) {
		e.atEnd = false
		e.setState(playback.StateEnded)
		return
	}
	e.current++
	item := e.items[e.current]
	e.emit(func(ls playback.Listeners) { ls.MediaItemTransition(&item, playback.TransitionAuto) })
	e.position = 0
	e.pendingSeek = 0
	e.load()
}

func (e *Engine) setState(state playback.State) {
	if e.state == state {
		return
	}
	e.state = state
	e.emit(func(ls playback.Listeners) { ls.StateChanged(state) })
}

func (e *Engine) setPlayWhenReady(v bool, reason playback.PlayWhenReadyReason) {
	if e.playWhenReady == v {
		return
	}
	e.playWhenReady = v
	e.emit(func(ls playback.Listeners) { ls.PlayWhenReadyChanged(v, reason) })
}

func (e *Engine) updatePlaying() {
	playing := e.loaded && e.playWhenReady && !e.buffering && !e.coreIdle && e.state == playback.StateReady
	if playing == e.playing {
		return
	}
	e.playing = playing
	e.emit(func(ls playback.Listeners) { ls.IsPlayingChanged(playing) })
}

// emit delivers a callback on the UI loop unless the engine was released.
func (e *Engine) emit(fn func(ls playback.Listeners)) {
	e.post(func() {
		if e.released.Load() {
			return
		}
		fn(e.listeners)
	})
}

func (e *Engine) command(args ...any) error {
	if e.released.Load() {
		return ErrReleased
	}
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if err := e.enc.Encode(request{Command: args, RequestID: e.nextID.Add(1)}); err != nil {
		zlog.Warn().Msgf("mpv: failed to send %v: %v", args[0], err)
		return errors.Wrap(err, "failed to send mpv command")
	}
	return nil
}

func (e *Engine) readLoop() {
	scanner := bufio.NewScanner(e.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		m, err := parseMessage(scanner.Bytes())
		if err != nil {
			zlog.Debug().Msgf("mpv: %v", err)
			continue
		}
		if e.released.Load() {
			return
		}
		e.post(func() { e.handle(m) })
	}

	if e.released.Load() {
		return
	}
	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	e.post(func() { e.handleDisconnect(err) })
}

func (e *Engine) handle(m message) {
	if e.released.Load() {
		return
	}
	if m.isReply() {
		if m.Error != "success" {
			zlog.Debug().Msgf("mpv: request %d failed: %s", m.RequestID, m.Error)
		}
		return
	}

	switch m.Event {
	case "property-change":
		e.handleProperty(m)
	case "file-loaded":
		e.handleFileLoaded()
	case "playback-restart":
		if e.loaded && !e.firstFrame {
			e.firstFrame = true
			e.emit(func(ls playback.Listeners) { ls.RenderedFirstFrame() })
		}
	case "end-file":
		if m.Reason == "error" {
			e.handleLoadError(m.FileError)
		}
	}
}

func (e *Engine) handleProperty(m message) {
	switch m.ID {
	case propTimePos:
		if v, ok := m.floatData(); ok && e.loaded {
			e.position = time.Duration(v * float64(time.Second))
		}
	case propPausedForCache:
		if v, ok := m.boolData(); ok && e.loaded {
			e.buffering = v
			if v {
				e.setState(playback.StateBuffering)
			} else {
				e.setState(playback.StateReady)
			}
			e.updatePlaying()
		}
	case propEOFReached:
		if v, ok := m.boolData(); ok && v && e.loaded && !e.atEnd {
			e.handleEndOfItem()
		}
	case propPause:
		if v, ok := m.boolData(); ok && e.loaded && !e.atEnd && v == e.playWhenReady {
			e.setPlayWhenReady(!v, playback.ReasonRemote)
			e.updatePlaying()
		}
	case propCoreIdle:
		// mpv reports the core idle whenever playback is not advancing.
		if v, ok := m.boolData(); ok {
			e.coreIdle = v
			e.updatePlaying()
		}
	case propMediaTitle:
		if v, ok := m.stringData(); ok && e.loaded && e.meta == nil {
			e.emit(func(ls playback.Listeners) { ls.MediaMetadataChanged(media.Metadata{Title: v}) })
		}
	}
}

func (e *Engine) handleFileLoaded() {
	if e.current < 0 || !e.prepared {
		return
	}
	e.loaded = true
	if e.pendingSeek > 0 {
		_ = e.command("seek", e.pendingSeek.Seconds(), "absolute")
		e.position = e.pendingSeek
		e.pendingSeek = 0
	}
	if !e.buffering {
		e.setState(playback.StateReady)
	}
	if e.cfg.DeviceVolumeControl {
		e.SetVolume(e.cfg.Volume)
	}

	if e.meta != nil {
		go e.readMetadata(e.current, e.items[e.current])
	}
	e.updatePlaying()
}

// readMetadata parses the tags of entry off the loop. The result is dropped
// when another item was loaded in the meantime.
func (e *Engine) readMetadata(index int, entry media.Entry) {
	meta, err := e.meta.ReadURI(entry.URI)
	if err != nil {
		zlog.Debug().Msgf("mpv: failed to read metadata of %s: %v", entry.URI, err)
		meta = media.Metadata{Title: entry.Title}
	}

	e.post(func() {
		if e.released.Load() || !e.loaded || e.current != index || e.items[index].URI != entry.URI {
			zlog.Debug().Msgf("mpv: dropping metadata of %s", entry.URI)
			return
		}
		e.listeners.MediaMetadataChanged(meta)
	})
}

// handleEndOfItem pauses at the end of an item when configured to, and
// otherwise moves on. The last item ends the queue.
func (e *Engine) handleEndOfItem() {
	if e.current+1 >= len(e.items) {
		e.setState(playback.StateEnded)
		e.updatePlaying()
		return
	}
	if e.cfg.PauseAtEndOfMediaItems {
		e.atEnd = true
		e.setPlayWhenReady(false, playback.ReasonEndOfMediaItem)
		_ = e.command("set_property", "pause", true)
		e.updatePlaying()
		return
	}
	e.advance()
}

func (e *Engine) handleLoadError(fileError string) {
	path := ""
	if e.current >= 0 && e.current < len(e.items) {
		path, _ = e.items[e.current].LocalPath()
	}
	engineErr := loadError(fileError, path)
	zlog.Warn().Msgf("mpv: load failed: %s", engineErr)

	e.prepared = false
	e.loaded = false
	e.buffering = false
	e.emit(func(ls playback.Listeners) { ls.Error(engineErr) })
	e.setState(playback.StateIdle)
	e.updatePlaying()
}

func (e *Engine) handleDisconnect(err error) {
	if e.released.Load() {
		return
	}
	zlog.Error().Msgf("mpv: connection lost: %v", err)

	e.prepared = false
	e.loaded = false
	engineErr := playback.NewEngineError(playback.ErrorCodeRemoteError, "mpv exited: "+err.Error())
	e.emit(func(ls playback.Listeners) { ls.Error(engineErr) })
	e.setState(playback.StateIdle)
	e.updatePlaying()
}
