package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vidbox/internal/app/dispatch"
	"github.com/osa030/vidbox/internal/app/screen"
	"github.com/osa030/vidbox/internal/infra/config"
)

// serve runs the player headless. The remote API is the only way to
// control it.
func serve(cfg *config.Config) error {
	loop := dispatch.New()
	a, err := newApplication(cfg, loop, nil, func(st screen.Status) {
		zlog.Debug().Msgf("vidbox: status: phase=%s state=%s playing=%t title=%q",
			st.Phase, st.Session.State, st.Session.Playing, st.Session.Title)
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.start(ctx); err != nil {
		a.stop()
		return errors.Wrap(err, "failed to open player")
	}

	remote := a.startRemote()

	// Execute startup hooks once the server is listening
	executeHooks(cfg.Remote.Hooks.OnStarted, "on_started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var serveErr error
	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case <-loop.Done():
		zlog.Info().Msg("Loop stopped, shutting down...")
	case err := <-remote.errCh:
		serveErr = errors.Wrap(err, "remote server error")
	}

	// Stop the loop first so open streams end
	cancel()
	a.stop()
	remote.shutdown()

	executeHooks(cfg.Remote.Hooks.OnStopped, "on_stopped")
	return serveErr
}
