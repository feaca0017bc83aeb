package playback

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/osa030/vidbox/internal/domain/media"
)

// LoadControl holds the buffering thresholds of the engine.
// The values are kept low so that playback starts quickly.
type LoadControl struct {
	MinBuffer                        time.Duration `validate:"gt=0"`
	MaxBuffer                        time.Duration `validate:"gt=0"`
	BufferForPlayback                time.Duration `validate:"gt=0"`
	BufferForPlaybackAfterRebuffer   time.Duration `validate:"gt=0"`
	PrioritizeTimeOverSizeThresholds bool
}

// EngineConfig holds the fixed configuration an engine is built with.
type EngineConfig struct {
	LoadControl            LoadControl
	PauseAtEndOfMediaItems bool
	DeviceVolumeControl    bool
	Volume                 float64 `validate:"gte=0,lte=1"`
}

// DefaultEngineConfig returns the configuration used for every screen.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		LoadControl: LoadControl{
			MinBuffer:                        500 * time.Millisecond,
			MaxBuffer:                        1500 * time.Millisecond,
			BufferForPlayback:                500 * time.Millisecond,
			BufferForPlaybackAfterRebuffer:   500 * time.Millisecond,
			PrioritizeTimeOverSizeThresholds: false,
		},
		PauseAtEndOfMediaItems: true,
		DeviceVolumeControl:    true,
		Volume:                 0.1,
	}
}

// Validate checks the buffering thresholds.
func (c EngineConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "engine config validation failed")
	}
	lc := c.LoadControl
	if lc.MinBuffer < lc.BufferForPlaybackAfterRebuffer {
		return errors.Newf("min buffer (%v) cannot be less than buffer for playback after rebuffer (%v)",
			lc.MinBuffer, lc.BufferForPlaybackAfterRebuffer)
	}
	if lc.MinBuffer < lc.BufferForPlayback {
		return errors.Newf("min buffer (%v) cannot be less than buffer for playback (%v)",
			lc.MinBuffer, lc.BufferForPlayback)
	}
	if lc.MaxBuffer < lc.MinBuffer {
		return errors.Newf("max buffer (%v) cannot be less than min buffer (%v)", lc.MaxBuffer, lc.MinBuffer)
	}
	return nil
}

// Engine is the external playback runtime. Calls never block on playback;
// results arrive later through the registered listeners, delivered on the
// UI loop.
type Engine interface {
	AddListener(l *Listener)
	AddItem(entry media.Entry)
	ItemCount() int
	ClearItems()
	SeekToDefault(index int)
	SeekTo(position time.Duration)
	Prepare()
	Play()
	Pause()
	Stop()
	State() State
	CurrentPosition() time.Duration
	SetVolume(volume float64)
	Release()
}

// EngineBuilder creates a new engine from a validated configuration.
type EngineBuilder func(cfg EngineConfig) (Engine, error)

// Listener is a set of independent engine callbacks. Any field may be nil.
type Listener struct {
	OnStateChanged         func(state State)
	OnError                func(err *EngineError)
	OnMediaItemTransition  func(item *media.Entry, reason TransitionReason)
	OnMediaMetadataChanged func(meta media.Metadata)
	OnIsPlayingChanged     func(playing bool)
	OnPlayWhenReadyChanged func(playWhenReady bool, reason PlayWhenReadyReason)
	OnRenderedFirstFrame   func()
}

// Listeners fans engine callbacks out to every registered listener.
// Engine implementations embed it.
type Listeners []*Listener

// Add registers a listener.
func (ls *Listeners) Add(l *Listener) {
	if l != nil {
		*ls = append(*ls, l)
	}
}

// StateChanged notifies a playback state change.
func (ls Listeners) StateChanged(state State) {
	for _, l := range ls {
		if l.OnStateChanged != nil {
			l.OnStateChanged(state)
		}
	}
}

// Error notifies a playback failure.
func (ls Listeners) Error(err *EngineError) {
	for _, l := range ls {
		if l.OnError != nil {
			l.OnError(err)
		}
	}
}

// MediaItemTransition notifies that the current item changed.
func (ls Listeners) MediaItemTransition(item *media.Entry, reason TransitionReason) {
	for _, l := range ls {
		if l.OnMediaItemTransition != nil {
			l.OnMediaItemTransition(item, reason)
		}
	}
}

// MediaMetadataChanged notifies new metadata for the current item.
func (ls Listeners) MediaMetadataChanged(meta media.Metadata) {
	for _, l := range ls {
		if l.OnMediaMetadataChanged != nil {
			l.OnMediaMetadataChanged(meta)
		}
	}
}

// IsPlayingChanged notifies that playback started or stopped advancing.
func (ls Listeners) IsPlayingChanged(playing bool) {
	for _, l := range ls {
		if l.OnIsPlayingChanged != nil {
			l.OnIsPlayingChanged(playing)
		}
	}
}

// PlayWhenReadyChanged notifies a play/pause intent change.
func (ls Listeners) PlayWhenReadyChanged(playWhenReady bool, reason PlayWhenReadyReason) {
	for _, l := range ls {
		if l.OnPlayWhenReadyChanged != nil {
			l.OnPlayWhenReadyChanged(playWhenReady, reason)
		}
	}
}

// RenderedFirstFrame notifies that the first frame of an item was shown.
func (ls Listeners) RenderedFirstFrame() {
	for _, l := range ls {
		if l.OnRenderedFirstFrame != nil {
			l.OnRenderedFirstFrame()
		}
	}
}
