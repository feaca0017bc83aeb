package tui

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vidbox/internal/app/screen"
)

// backgroundTimeout bounds how long Background waits for the UI loop.
const backgroundTimeout = 5 * time.Second

// HostActions runs user intents against a screen host on the UI loop.
type HostActions struct {
	post   func(func())
	call   func(ctx context.Context, fn func()) error
	host   *screen.Host
	bridge *Bridge
	onQuit func()
}

// NewHostActions creates the actions. post queues work on the UI loop and
// call runs work there and waits for it. onQuit runs on the loop after the
// screen has been finished.
func NewHostActions(post func(func()), call func(context.Context, func()) error, host *screen.Host, bridge *Bridge, onQuit func()) *HostActions {
	return &HostActions{
		post:   post,
		call:   call,
		host:   host,
		bridge: bridge,
		onQuit: onQuit,
	}
}

func (a *HostActions) ShowPicker() {
	a.post(func() {
		if !a.host.ShowPicker() {
			zlog.Debug().Msg("tui: nothing to pick")
		}
	})
}

func (a *HostActions) TogglePlayPause() {
	a.post(func() {
		a.host.TogglePlayPause()
		a.publish()
	})
}

func (a *HostActions) Recreate() {
	a.lifecycle("recreate", a.host.Recreate)
}

// Background stops the screen and returns once the loop has done so, so the
// process can be suspended right after without leaving mpv playing.
func (a *HostActions) Background() {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()

	err := a.call(ctx, func() {
		if err := a.host.Background(); err != nil {
			zlog.Warn().Msgf("tui: background failed: %v", err)
		}
		a.publish()
	})
	if err != nil {
		zlog.Warn().Msgf("tui: background did not run: %v", err)
	}
}

func (a *HostActions) Foreground() {
	a.lifecycle("foreground", a.host.Foreground)
}

func (a *HostActions) Refresh() {
	a.post(a.publish)
}

func (a *HostActions) Quit() {
	a.post(func() {
		if err := a.host.Finish(); err != nil {
			zlog.Error().Msgf("tui: finish failed: %v", err)
		}
		if a.onQuit != nil {
			a.onQuit()
		}
	})
}

func (a *HostActions) lifecycle(name string, fn func() error) {
	a.post(func() {
		if err := fn(); err != nil {
			zlog.Warn().Msgf("tui: %s failed: %v", name, err)
		}
		a.publish()
	})
}

func (a *HostActions) publish() {
	a.bridge.PublishStatus(a.host.Status())
}
