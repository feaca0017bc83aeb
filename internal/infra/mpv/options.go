// Package mpv implements the playback engine on top of an mpv process
// controlled through its JSON IPC socket.
package mpv

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/vidbox/internal/app/playback"
)

// Options configure the mpv process.
type Options struct {
	Binary       string         `mapstructure:"binary"`
	SocketDir    string         `mapstructure:"socket_dir"`
	StartTimeout time.Duration  `mapstructure:"start_timeout"`
	Hwdec        string         `mapstructure:"hwdec"`
	Vo           string         `mapstructure:"vo"`
	Fullscreen   bool           `mapstructure:"fullscreen"`
	Extra        map[string]any `mapstructure:",remain"` // Passed through as --key=value
}

// DecodeOptions decodes loosely typed settings into Options.
func DecodeOptions(settings map[string]any) (Options, error) {
	var opts Options
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           &opts,
	})
	if err != nil {
		return Options{}, errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return Options{}, errors.Wrap(err, "failed to decode mpv options")
	}
	return opts.withDefaults(), nil
}

func (o Options) withDefaults() Options {
	if o.Binary == "" {
		o.Binary = "mpv"
	}
	if o.SocketDir == "" {
		o.SocketDir = os.TempDir()
	}
	if o.StartTimeout <= 0 {
		o.StartTimeout = 5 * time.Second
	}
	return o
}

// socketPath returns a fresh IPC socket path.
func (o Options) socketPath() string {
	return filepath.Join(o.SocketDir, "vidbox-mpv-"+uuid.New().String()[:8]+".sock")
}

// Args builds the mpv command line for an engine configuration.
func (o Options) Args(cfg playback.EngineConfig, socket string) []string {
	lc := cfg.LoadControl
	args := []string{
		"--idle=yes",
		"--keep-open=yes",
		"--no-terminal",
		"--force-window=yes",
		"--input-ipc-server=" + socket,
		fmt.Sprintf("--volume=%d", volumePercent(cfg.Volume)),
		"--cache=yes",
		fmt.Sprintf("--cache-secs=%s", seconds(lc.MaxBuffer)),
		fmt.Sprintf("--demuxer-readahead-secs=%s", seconds(lc.MinBuffer)),
		"--cache-pause-initial=yes",
		fmt.Sprintf("--cache-pause-wait=%s", seconds(lc.BufferForPlaybackAfterRebuffer)),
	}
	if o.Hwdec != "" {
		args = append(args, "--hwdec="+o.Hwdec)
	}
	if o.Vo != "" {
		args = append(args, "--vo="+o.Vo)
	}
	if o.Fullscreen {
		args = append(args, "--fullscreen=yes")
	}

	keys := make([]string, 0, len(o.Extra))
	for k := range o.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, fmt.Sprintf("--%s=%s", k, flagValue(o.Extra[k])))
	}
	return args
}

func flagValue(v any) string {
	switch val := v.(type) {
	case bool:
		if val {
			return "yes"
		}
		return "no"
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

func volumePercent(v float64) int {
	return int(v*100 + 0.5)
}
