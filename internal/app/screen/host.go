// Package screen hosts the playback screen: it drives the controller through
// the screen lifecycle and keeps the saved state across re-creation.
package screen

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vidbox/internal/app/playback"
	"github.com/osa030/vidbox/internal/domain/media"
)

// ErrInvalidTransition is returned for a lifecycle call out of order.
var ErrInvalidTransition = errors.New("invalid lifecycle transition")

// Phase is the lifecycle phase of the screen.
type Phase int

const (
	PhaseDestroyed Phase = iota // No screen instance
	PhaseCreated                // Created or stopped
	PhaseStarted                // Visible, not in the foreground
	PhaseResumed                // In the foreground
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseDestroyed:
		return "destroyed"
	case PhaseCreated:
		return "created"
	case PhaseStarted:
		return "started"
	case PhaseResumed:
		return "resumed"
	default:
		return "unknown"
	}
}

// Factory creates the controller of a new screen instance.
type Factory func() *playback.Controller

// Host owns the current screen instance and the saved state bundle.
// All methods must be called on the UI loop.
type Host struct {
	factory Factory
	current *playback.Controller
	phase   Phase

	// Survives re-creation, never process restarts.
	bundle *playback.SavedState
}

// NewHost creates a host with no screen.
func NewHost(factory Factory) *Host {
	return &Host{factory: factory}
}

// Current returns the controller of the current screen, or nil.
func (h *Host) Current() *playback.Controller {
	return h.current
}

// Phase returns the lifecycle phase.
func (h *Host) Phase() Phase {
	return h.phase
}

// Create creates a screen instance, handing it the saved bundle.
func (h *Host) Create() error {
	if h.phase != PhaseDestroyed {
		return h.invalid("create")
	}

	// The controller reports changes while it is being created.
	c := h.factory()
	h.current = c
	h.phase = PhaseCreated
	if err := c.OnScreenCreated(h.bundle); err != nil {
		h.current = nil
		h.phase = PhaseDestroyed
		return errors.Wrap(err, "failed to create screen")
	}
	zlog.Debug().Msg("screen: created")
	return nil
}

// Start makes the screen visible.
func (h *Host) Start() error {
	if h.phase != PhaseCreated {
		return h.invalid("start")
	}
	h.current.OnScreenStarted()
	h.phase = PhaseStarted
	return nil
}

// Resume brings the screen to the foreground.
func (h *Host) Resume() error {
	if h.phase != PhaseStarted {
		return h.invalid("resume")
	}
	h.current.OnScreenResumed()
	h.phase = PhaseResumed
	return nil
}

// Pause takes the screen out of the foreground.
func (h *Host) Pause() error {
	if h.phase != PhaseResumed {
		return h.invalid("pause")
	}
	h.current.OnScreenPaused()
	h.phase = PhaseStarted
	return nil
}

// Stop hides the screen and saves its state.
func (h *Host) Stop() error {
	if h.phase != PhaseStarted {
		return h.invalid("stop")
	}
	h.phase = PhaseCreated
	h.current.OnScreenStopped()

	bundle := playback.NewSavedState()
	h.current.OnSaveState(bundle)
	h.bundle = bundle
	return nil
}

// Background pauses and stops the screen, as far as its phase requires.
func (h *Host) Background() error {
	if h.phase == PhaseResumed {
		if err := h.Pause(); err != nil {
			return err
		}
	}
	if h.phase == PhaseStarted {
		return h.Stop()
	}
	return nil
}

// Foreground starts and resumes the screen, as far as its phase requires.
func (h *Host) Foreground() error {
	if h.phase == PhaseCreated {
		if err := h.Start(); err != nil {
			return err
		}
	}
	if h.phase == PhaseStarted {
		return h.Resume()
	}
	if h.phase == PhaseDestroyed {
		return h.invalid("foreground")
	}
	return nil
}

// Destroy moves the screen to the background and destroys it. The saved
// bundle is kept for the next Create.
func (h *Host) Destroy() error {
	if h.phase == PhaseDestroyed {
		return h.invalid("destroy")
	}
	if err := h.Background(); err != nil {
		return err
	}
	h.phase = PhaseDestroyed
	h.current.OnScreenDestroyed()
	h.current = nil
	zlog.Debug().Msg("screen: destroyed")
	return nil
}

// Recreate destroys the screen and creates a new one from the saved state,
// as on a configuration change.
func (h *Host) Recreate() error {
	if err := h.Destroy(); err != nil {
		return err
	}
	if err := h.Create(); err != nil {
		return err
	}
	return h.Foreground()
}

// Finish destroys the screen for good and drops the saved bundle.
func (h *Host) Finish() error {
	if h.phase != PhaseDestroyed {
		if err := h.Destroy(); err != nil {
			return err
		}
	}
	h.bundle = nil
	return nil
}

// Bundle returns the saved state bundle, or nil.
func (h *Host) Bundle() *playback.SavedState {
	return h.bundle
}

// ShowPicker opens the video list of the current screen.
func (h *Host) ShowPicker() bool {
	if h.current == nil {
		return false
	}
	return h.current.ShowPicker()
}

// Select plays playlist item index.
func (h *Host) Select(index int) error {
	if h.current == nil {
		return playback.ErrNotCreated
	}
	if !h.current.Session().Playlist.Contains(index) {
		return errors.Wrapf(playback.ErrIndexOutOfRange, "index %d", index)
	}
	h.current.OnUserSelect(index)
	return nil
}

// Play resumes playback on the current screen.
func (h *Host) Play() error {
	if h.current == nil {
		return playback.ErrNotCreated
	}
	h.current.Play()
	return nil
}

// PausePlayback pauses playback without changing the lifecycle phase.
func (h *Host) PausePlayback() error {
	if h.current == nil {
		return playback.ErrNotCreated
	}
	h.current.Pause()
	return nil
}

// TogglePlayPause toggles playback on the current screen.
func (h *Host) TogglePlayPause() {
	if h.current != nil {
		h.current.TogglePlayPause()
	}
}

// AddFiles appends newly discovered files to the current playlist.
func (h *Host) AddFiles(paths ...string) {
	if h.current == nil || len(paths) == 0 {
		return
	}
	entries := make([]media.Entry, 0, len(paths))
	for _, p := range paths {
		entries = append(entries, media.EntryFromPath(p))
	}
	h.current.OnFilesAdded(entries)
}

// Status returns the state of the current screen.
func (h *Host) Status() Status {
	st := Status{Phase: h.phase}
	if h.current != nil {
		st.Session = h.current.Snapshot()
	}
	return st
}

// Status is the host phase with the session snapshot.
type Status struct {
	Phase   Phase
	Session playback.Snapshot
}

func (h *Host) invalid(op string) error {
	return errors.Wrapf(ErrInvalidTransition, "%s in phase %s", op, h.phase)
}
