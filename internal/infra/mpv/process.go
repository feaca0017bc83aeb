package mpv

import (
	"context"
	"net"
	"os"
	"os/exec"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vidbox/internal/app/playback"
)

const dialInterval = 50 * time.Millisecond

// NewBuilder returns an engine builder that starts one mpv process per
// engine. Callbacks are delivered through post.
func NewBuilder(opts Options, post func(func()), meta MetadataSource) playback.EngineBuilder {
	opts = opts.withDefaults()
	return func(cfg playback.EngineConfig) (playback.Engine, error) {
		return Start(context.Background(), opts, cfg, post, meta)
	}
}

// Start launches mpv and connects to its IPC socket.
func Start(ctx context.Context, opts Options, cfg playback.EngineConfig, post func(func()), meta MetadataSource) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	binary, err := exec.LookPath(opts.Binary)
	if err != nil {
		return nil, errors.Wrapf(err, "mpv binary %q not found", opts.Binary)
	}
	if err := os.MkdirAll(opts.SocketDir, 0o700); err != nil {
		return nil, errors.Wrap(err, "failed to create socket directory")
	}

	socket := opts.socketPath()
	cmd := exec.Command(binary, opts.Args(cfg, socket)...)
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "failed to start mpv")
	}
	zlog.Info().Msgf("mpv: started pid=%d socket=%s", cmd.Process.Pid, socket)

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
	}()

	conn, err := dial(ctx, socket, opts.StartTimeout, exited)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = os.Remove(socket)
		return nil, err
	}

	e := newEngine(cfg, conn, post, meta)
	e.onClose = func() {
		go reap(cmd, exited, socket)
	}
	return e, nil
}

func dial(ctx context.Context, socket string, timeout time.Duration, exited <-chan error) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "unix", socket)
		if err == nil {
			return conn, nil
		}

		select {
		case werr := <-exited:
			if werr == nil {
				return nil, errors.New("mpv exited before accepting connections")
			}
			return nil, errors.Wrap(werr, "mpv exited before accepting connections")
		case <-ctx.Done():
			return nil, errors.Wrapf(err, "failed to connect to mpv socket %s", socket)
		case <-time.After(dialInterval):
		}
	}
}

// reap waits for mpv to quit after a quit command, killing it when it does
// not exit in time.
func reap(cmd *exec.Cmd, exited <-chan error, socket string) {
	defer func() { _ = os.Remove(socket) }()

	select {
	case err := <-exited:
		if err != nil {
			zlog.Debug().Msgf("mpv: exited: %v", err)
		}
	case <-time.After(3 * time.Second):
		zlog.Warn().Msgf("mpv: pid=%d did not quit, killing", cmd.Process.Pid)
		_ = cmd.Process.Kill()
		<-exited
	}
}
