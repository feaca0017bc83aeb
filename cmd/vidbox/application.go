package main

import (
	"context"
	"net/http"
	"os"
	"os/exec"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/vidbox/internal/api/connect"
	"github.com/osa030/vidbox/internal/app/dispatch"
	"github.com/osa030/vidbox/internal/app/notification"
	"github.com/osa030/vidbox/internal/app/permission"
	"github.com/osa030/vidbox/internal/app/playback"
	"github.com/osa030/vidbox/internal/app/screen"
	"github.com/osa030/vidbox/internal/infra/config"
	"github.com/osa030/vidbox/internal/infra/mediastore"
	"github.com/osa030/vidbox/internal/infra/metadata"
	"github.com/osa030/vidbox/internal/infra/mpv"
)

// application holds the components shared by the play and serve commands.
type application struct {
	cfg           *config.Config
	loop          *dispatch.Loop
	host          *screen.Host
	notifications *notification.Manager
	store         *mediastore.Store
	watcher       *mediastore.Watcher
}

// newApplication wires the player around loop. picker may be nil when no UI
// can show a list; onChange receives every status change on the loop.
func newApplication(cfg *config.Config, loop *dispatch.Loop, picker playback.Picker, onChange func(screen.Status)) (*application, error) {
	opts, err := cfg.MpvOptions()
	if err != nil {
		return nil, errors.Wrap(err, "invalid engine options")
	}

	a := &application{
		cfg:           cfg,
		loop:          loop,
		notifications: notification.NewManager(),
		store:         mediastore.New(cfg.MediaStoreConfig()),
	}

	a.notifications.Subscribe(notification.LogSink())
	if cfg.Notifications.Desktop {
		a.notifications.Subscribe(notification.NewDesktopSink(cfg.Notifications.AppName))
	}

	builder := mpv.NewBuilder(opts, a.loop.Dispatch, metadata.NewReader())
	perms := permission.NewManager(cfg.PermissionConfig(), a.loop.Dispatch)
	controllerConfig := playback.Config{
		Engine:      cfg.PlaybackEngineConfig(),
		ScanTimeout: cfg.ScanTimeout(),
	}

	a.host = screen.NewHost(func() *playback.Controller {
		deps := playback.Deps{
			Builder:     builder,
			Enumerator:  a.store,
			Permissions: perms,
			Picker:      picker,
			Notifier:    a.notifications,
		}
		if onChange != nil {
			deps.OnChange = func(snap playback.Snapshot) {
				onChange(screen.Status{Phase: a.host.Phase(), Session: snap})
			}
		}
		return playback.NewController(controllerConfig, deps)
	})
	return a, nil
}

// start runs the loop, opens the screen and starts watching for new files.
// The loop runs until stop; ctx bounds the startup and the watcher.
func (a *application) start(ctx context.Context) error {
	go func() {
		if err := a.loop.Run(context.Background()); err != nil {
			zlog.Error().Msgf("vidbox: loop stopped: %v", err)
		}
	}()

	var err error
	if callErr := a.loop.Call(ctx, func() {
		if err = a.host.Create(); err == nil {
			err = a.host.Foreground()
		}
	}); callErr != nil {
		return callErr
	}
	if err != nil {
		return err
	}

	if !a.cfg.WatchEnabled() {
		return nil
	}
	a.watcher, err = a.store.Watch(ctx, a.cfg.SettleDelay(), func(path string) {
		zlog.Info().Msgf("vidbox: new video: %s", path)
		a.loop.Dispatch(func() { a.host.AddFiles(path) })
	})
	if err != nil {
		// Playback works without the watcher
		zlog.Warn().Msgf("vidbox: media watcher disabled: %v", err)
	}
	return nil
}

// stop finishes the screen and stops the loop.
func (a *application) stop() {
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			zlog.Warn().Msgf("vidbox: failed to close watcher: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := a.loop.Call(ctx, func() {
		if err := a.host.Finish(); err != nil {
			zlog.Error().Msgf("vidbox: failed to finish screen: %v", err)
		}
	})
	if err != nil && !errors.Is(err, dispatch.ErrClosed) {
		zlog.Warn().Msgf("vidbox: finish did not complete: %v", err)
	}

	a.loop.Close()
	a.notifications.Close()
}

// remoteServer serves the remote control API with h2c.
type remoteServer struct {
	server *http.Server
	errCh  chan error
}

func (a *application) startRemote() *remoteServer {
	service := apiconnect.NewRemoteService(a.loop, a.host, a.notifications, a.loop.Done())

	mux := http.NewServeMux()
	path, handler := service.Handler(
		connect.WithInterceptors(apiconnect.NewRemoteAuthInterceptor(a.cfg.Remote.Token)),
	)
	mux.Handle(path, handler)

	rs := &remoteServer{
		server: &http.Server{
			Addr:    a.cfg.Remote.Addr,
			Handler: h2c.NewHandler(mux, &http2.Server{}),
		},
		errCh: make(chan error, 1),
	}

	go func() {
		zlog.Info().Msgf("Starting remote server: addr=%s", rs.server.Addr)
		if err := rs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rs.errCh <- err
		}
	}()
	return rs
}

func (rs *remoteServer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rs.server.Shutdown(ctx); err != nil {
		zlog.Error().Msgf("Failed to shutdown remote server: %v", err)
	}
	zlog.Info().Msg("Remote server stopped")
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// sh -c allows redirection and pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
