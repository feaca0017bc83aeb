package playback

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vidbox/internal/app/notification"
	"github.com/osa030/vidbox/internal/app/permission"
	"github.com/osa030/vidbox/internal/domain/media"
	"github.com/osa030/vidbox/internal/domain/playlist"
)

// Config holds controller configuration.
type Config struct {
	Engine      EngineConfig  // Fixed engine configuration
	ScanTimeout time.Duration // Upper bound for one enumeration (0 = none)
	PickerTitle string        // Title of the video list dialog
}

// Deps are the collaborators of a controller.
type Deps struct {
	Builder     EngineBuilder
	Enumerator  Enumerator
	Permissions Permissions
	Picker      Picker
	Notifier    Notifier
	OnChange    func(Snapshot) // Called after every state change (optional)
}

// Controller drives one playback session through the screen lifecycle.
//
// Every method must be called on the UI loop. Engine callbacks are expected
// on the same loop, so the controller holds no locks.
type Controller struct {
	config Config
	deps   Deps

	session *Session
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewController creates a controller. The session starts with OnScreenCreated.
func NewController(config Config, deps Deps) *Controller {
	if config.PickerTitle == "" {
		config.PickerTitle = "Videos"
	}
	return &Controller{
		config: config,
		deps:   deps,
	}
}

// Session returns the current session, or nil before OnScreenCreated.
func (c *Controller) Session() *Session {
	return c.session
}

// OnScreenCreated builds the engine, restores the saved position, loads the
// playlist and asks for media permissions when they are missing.
func (c *Controller) OnScreenCreated(saved *SavedState) error {
	if c.session != nil {
		return ErrAlreadyCreated
	}
	if err := c.config.Engine.Validate(); err != nil {
		return errors.Wrap(err, "invalid engine config")
	}

	s := newSession()
	if pos, ok := saved.Position(); ok {
		s.LastSavedPosition = pos
	}

	engine, err := c.deps.Builder(c.config.Engine)
	if err != nil {
		return errors.Wrap(err, "failed to build engine")
	}
	engine.SetVolume(c.config.Engine.Volume)
	engine.AddListener(c.listener())
	s.Engine = engine

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.session = s

	s.MediaAccess = c.permissionsGranted()

	zlog.Debug().Msgf("playback: screen created: session=%s saved_position=%v media_access=%v",
		s.ID, s.LastSavedPosition, s.MediaAccess)

	c.loadVideos()

	if !s.MediaAccess {
		c.deps.Permissions.Request(RequiredPermissions, PermissionRequestCode, c.OnPermissionResult)
	}

	c.changed()
	return nil
}

// OnPermissionResult loads the playlist once at least one of the requested
// permissions was granted. A denial leaves the playlist empty.
func (c *Controller) OnPermissionResult(requestCode int, results []permission.Result) {
	if !c.alive("permission result") {
		return
	}
	if requestCode != PermissionRequestCode {
		return
	}
	if !permission.AnyGranted(results) {
		zlog.Info().Msg("playback: media permissions denied, playlist stays empty")
		return
	}

	c.session.MediaAccess = true
	c.loadVideos()
	c.changed()
}

// OnFilesEnumerated replaces the playlist and queues every entry on the
// engine in enumeration order.
func (c *Controller) OnFilesEnumerated(entries []media.Entry) {
	if !c.alive("files enumerated") {
		return
	}

	s := c.session
	s.Playlist = playlist.New(entries...)
	for _, e := range entries {
		s.Engine.AddItem(e)
	}
	c.changed()
}

// OnFilesAdded appends entries discovered after the initial enumeration.
func (c *Controller) OnFilesAdded(entries []media.Entry) {
	if !c.alive("files added") {
		return
	}

	s := c.session
	if !s.MediaAccess {
		return
	}
	s.Playlist.Append(entries...)
	for _, e := range entries {
		s.Engine.AddItem(e)
	}
	c.changed()
}

// ShowPicker opens the video list. It does nothing while the playlist is
// empty and reports whether the picker was shown.
func (c *Controller) ShowPicker() bool {
	if !c.alive("show picker") {
		return false
	}
	s := c.session
	if s.Playlist.IsEmpty() || c.deps.Picker == nil {
		return false
	}

	c.deps.Picker.ShowChoice(c.config.PickerTitle, s.Playlist.Labels(), c.OnUserSelect)
	return true
}

// OnUserSelect jumps to the start of the chosen playlist item and plays it.
func (c *Controller) OnUserSelect(index int) {
	if !c.alive("user select") {
		return
	}

	s := c.session
	if !s.Playlist.Contains(index) {
		zlog.Error().Msgf("playback: selection out of range: index=%d size=%d", index, s.Playlist.Len())
		return
	}

	s.Engine.Stop()
	s.Engine.SeekToDefault(index)
	s.Engine.Play()
}

// OnScreenStarted prepares the engine and seeks to the saved position.
func (c *Controller) OnScreenStarted() {
	if !c.alive("screen started") {
		return
	}

	s := c.session
	s.Engine.Prepare()
	s.Engine.SeekTo(s.LastSavedPosition)
}

// OnScreenStopped stops playback and remembers where it stopped.
func (c *Controller) OnScreenStopped() {
	if !c.alive("screen stopped") {
		return
	}

	s := c.session
	s.Engine.Stop()
	s.LastSavedPosition = s.Engine.CurrentPosition()
	zlog.Debug().Msgf("playback: screen stopped: saved_position=%v", s.LastSavedPosition)
	c.changed()
}

// OnScreenPaused pauses playback. The saved position is not touched.
func (c *Controller) OnScreenPaused() {
	if !c.alive("screen paused") {
		return
	}
	c.session.Engine.Pause()
}

// OnScreenResumed does not restart playback; the user has to press play.
func (c *Controller) OnScreenResumed() {
	if !c.alive("screen resumed") {
		return
	}
	zlog.Debug().Msg("playback: screen resumed")
}

// OnSaveState writes the saved position into out.
func (c *Controller) OnSaveState(out *SavedState) {
	if c.session == nil || out == nil {
		return
	}
	out.PutPosition(c.session.LastSavedPosition)
}

// OnScreenDestroyed releases the engine. Later calls are ignored.
func (c *Controller) OnScreenDestroyed() {
	if !c.alive("screen destroyed") {
		return
	}

	s := c.session
	s.Engine.Release()
	s.released = true
	c.cancel()
	zlog.Debug().Msgf("playback: screen destroyed: session=%s", s.ID)
	c.changed()
}

// Play resumes playback of the current item.
func (c *Controller) Play() {
	if c.alive("play") {
		c.session.Engine.Play()
	}
}

// Pause pauses playback of the current item.
func (c *Controller) Pause() {
	if c.alive("pause") {
		c.session.Engine.Pause()
	}
}

// TogglePlayPause pauses while playing and plays otherwise.
func (c *Controller) TogglePlayPause() {
	if !c.alive("toggle") {
		return
	}
	if c.session.Playing {
		c.session.Engine.Pause()
	} else {
		c.session.Engine.Play()
	}
}

// OnEngineStateChanged records the engine state. A finished queue is
// cleared together with the playlist and the saved position reset, returning
// the session to idle.
//
// An Ended the engine has already left (an empty Prepare overtaken by queued
// files, or a new selection) is stale and ignored.
func (c *Controller) OnEngineStateChanged(state State) {
	if !c.alive("state change") {
		return
	}

	s := c.session
	if state == StateEnded && s.Engine.State() != StateEnded {
		zlog.Debug().Msgf("playback: ignoring stale state %s, engine is %s", state, s.Engine.State())
		return
	}
	zlog.Debug().Msgf("playback: state %s", state)
	s.State = state

	if state == StateEnded {
		s.Engine.ClearItems()
		s.Playlist = playlist.New()
		s.LastSavedPosition = 0
		s.State = StateIdle
	}
	c.changed()
}

// OnEngineError shows the failure to the user. The session stays alive and
// nothing is retried.
func (c *Controller) OnEngineError(err *EngineError) {
	if !c.alive("engine error") {
		return
	}

	zlog.Error().Msgf("playback: engine error: %s, code_name=%s", err.Message, err.CodeName())
	c.notify(fmt.Sprintf("%d - %s", err.Code, err.Message), notification.LengthLong)
	c.changed()
}

func (c *Controller) onMediaItemTransition(item *media.Entry, reason TransitionReason) {
	if !c.alive("media item transition") {
		return
	}

	title := ""
	if item != nil {
		title = item.Title
	}
	zlog.Debug().Msgf("playback: media item transition: reason=%s title=%s", reason, title)

	if item != nil {
		c.notify(fmt.Sprintf("Playing: id=%s, metadata: %s", item.ID(), item.Title), notification.LengthShort)
	}
}

func (c *Controller) onMediaMetadataChanged(meta media.Metadata) {
	if !c.alive("metadata change") {
		return
	}

	zlog.Debug().Msgf("playback: media metadata changed:%s", meta)
	c.session.Title = meta.Title
	c.changed()
}

func (c *Controller) onIsPlayingChanged(playing bool) {
	if !c.alive("playing change") {
		return
	}

	if playing {
		zlog.Debug().Msg("playback: playing")
	} else {
		zlog.Debug().Msg("playback: not playing")
	}
	c.session.Playing = playing
	c.changed()
}

func (c *Controller) onPlayWhenReadyChanged(playWhenReady bool, reason PlayWhenReadyReason) {
	if !c.alive("play when ready change") {
		return
	}
	zlog.Debug().Msgf("playback: play when ready changed: %v by reason %s", playWhenReady, reason)
}

func (c *Controller) onRenderedFirstFrame() {
	if !c.alive("first frame") {
		return
	}
	zlog.Debug().Msg("playback: rendered first frame")
}

// Snapshot returns a copy of the session state.
func (c *Controller) Snapshot() Snapshot {
	s := c.session
	if s == nil {
		return Snapshot{State: StateIdle, Labels: []string{}}
	}

	snap := Snapshot{
		SessionID:         s.ID,
		State:             s.State,
		Title:             s.Title,
		Playing:           s.Playing,
		Labels:            s.Playlist.Labels(),
		LastSavedPosition: s.LastSavedPosition,
		Released:          s.released,
	}
	if !s.released {
		snap.Position = s.Engine.CurrentPosition()
		snap.QueueLength = s.Engine.ItemCount()
	}
	return snap
}

func (c *Controller) listener() *Listener {
	return &Listener{
		OnStateChanged:         c.OnEngineStateChanged,
		OnError:                c.OnEngineError,
		OnMediaItemTransition:  c.onMediaItemTransition,
		OnMediaMetadataChanged: c.onMediaMetadataChanged,
		OnIsPlayingChanged:     c.onIsPlayingChanged,
		OnPlayWhenReadyChanged: c.onPlayWhenReadyChanged,
		OnRenderedFirstFrame:   c.onRenderedFirstFrame,
	}
}

func (c *Controller) permissionsGranted() bool {
	for _, name := range RequiredPermissions {
		if !c.deps.Permissions.CheckGranted(name) {
			return false
		}
	}
	return true
}

// loadVideos enumerates the media store and hands the result to
// OnFilesEnumerated. Failures count as an empty result.
func (c *Controller) loadVideos() {
	if !c.session.MediaAccess {
		zlog.Debug().Msg("playback: media access not granted, skipping enumeration")
		return
	}

	ctx := c.ctx
	if c.config.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ScanTimeout)
		defer cancel()
	}

	records, err := c.deps.Enumerator.EnumerateVideoFiles(ctx)
	if err != nil {
		zlog.Warn().Msgf("playback: failed to enumerate video files: %v", err)
		records = nil
	}

	entries := media.EntriesFromRecords(records)
	zlog.Debug().Msgf("playback: files (size=%d)", len(entries))
	c.OnFilesEnumerated(entries)
}

func (c *Controller) notify(message string, length notification.Length) {
	if c.deps.Notifier == nil {
		return
	}
	c.deps.Notifier.Notify(notification.Notification{Message: message, Length: length})
}

func (c *Controller) alive(op string) bool {
	if c.session == nil {
		zlog.Debug().Msgf("playback: ignoring %s before screen creation", op)
		return false
	}
	if c.session.released {
		zlog.Debug().Msgf("playback: ignoring %s after release", op)
		return false
	}
	return true
}

func (c *Controller) changed() {
	if c.deps.OnChange != nil {
		c.deps.OnChange(c.Snapshot())
	}
}
