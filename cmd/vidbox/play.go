package main

import (
	"context"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vidbox/internal/app/dispatch"
	"github.com/osa030/vidbox/internal/infra/config"
	"github.com/osa030/vidbox/internal/tui"
)

// play runs the player with the terminal UI.
func play(cfg *config.Config, withRemote bool) error {
	ctx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	loop := dispatch.New()
	bridge := tui.NewBridge(loop.Dispatch)
	a, err := newApplication(cfg, loop, bridge, bridge.PublishStatus)
	if err != nil {
		return err
	}
	a.notifications.Subscribe(bridge)

	actions := tui.NewHostActions(a.loop.Dispatch, a.loop.Call, a.host, bridge, nil)
	program := tea.NewProgram(tui.NewModel(actions), tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(program)

	// The program must be reading before the screen opens, since status
	// output blocks until it is received.
	runDone := make(chan error, 1)
	go func() {
		_, err := program.Run()
		runDone <- err
	}()

	if err := a.start(ctx); err != nil {
		program.Quit()
		<-runDone
		bridge.Detach()
		a.stop()
		return errors.Wrap(err, "failed to open player")
	}

	var remote *remoteServer
	if withRemote {
		remote = a.startRemote()
	}

	var runErr, remoteErr error
	select {
	case runErr = <-runDone:
	case remoteErr = <-remoteErrors(remote):
		program.Quit()
		runErr = <-runDone
	}
	bridge.Detach()

	a.stop()
	if remote != nil {
		remote.shutdown()
	}

	if remoteErr != nil {
		return errors.Wrap(remoteErr, "remote server failed")
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return errors.Wrap(runErr, "terminal UI failed")
	}
	zlog.Info().Msg("Player closed")
	return nil
}

// remoteErrors returns the error channel of rs, or nil when rs is nil.
func remoteErrors(rs *remoteServer) <-chan error {
	if rs == nil {
		return nil
	}
	return rs.errCh
}
