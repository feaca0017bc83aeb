// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/osa030/vidbox/internal/app/permission"
	"github.com/osa030/vidbox/internal/app/playback"
	"github.com/osa030/vidbox/internal/infra/mediastore"
	"github.com/osa030/vidbox/internal/infra/mpv"
)

// Config represents the application configuration.
type Config struct {
	Media         MediaConfig         `yaml:"media"`
	Engine        EngineConfig        `yaml:"engine"`
	Permissions   PermissionsConfig   `yaml:"permissions"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Remote        RemoteConfig        `yaml:"remote"`
}

// MediaConfig represents the media store configuration.
type MediaConfig struct {
	ExternalRoots []string `yaml:"external_roots" default:"[\"~/Videos\"]"`
	InternalRoots []string `yaml:"internal_roots"`
	Extensions    []string `yaml:"extensions"`
	Watch         *bool    `yaml:"watch" default:"true"`
	ScanTimeoutMs int      `yaml:"scan_timeout_ms" default:"10000" validate:"gte=0"`
	SettleDelayMs int      `yaml:"settle_delay_ms" default:"500" validate:"gte=0,lte=60000"`
}

// EngineConfig represents the playback engine configuration.
type EngineConfig struct {
	MpvPath                string            `yaml:"mpv_path" default:"mpv"`
	SocketDir              string            `yaml:"socket_dir"`
	Volume                 *float64          `yaml:"volume" default:"0.1" validate:"required,gte=0,lte=1"`
	LoadControl            LoadControlConfig `yaml:"load_control"`
	PauseAtEndOfMediaItems *bool             `yaml:"pause_at_end_of_media_items" default:"true"`
	DeviceVolumeControl    *bool             `yaml:"device_volume_control" default:"true"`
	Options                map[string]any    `yaml:"options"`
}

// LoadControlConfig represents the buffering thresholds.
type LoadControlConfig struct {
	MinBufferMs                      int  `yaml:"min_buffer_ms" default:"500" validate:"gt=0"`
	MaxBufferMs                      int  `yaml:"max_buffer_ms" default:"1500" validate:"gt=0"`
	BufferForPlaybackMs              int  `yaml:"buffer_for_playback_ms" default:"500" validate:"gt=0"`
	BufferForPlaybackAfterRebufferMs int  `yaml:"buffer_for_playback_after_rebuffer_ms" default:"500" validate:"gt=0"`
	PrioritizeTimeOverSizeThresholds bool `yaml:"prioritize_time_over_size_thresholds"`
}

// PermissionsConfig lists the permissions the user has granted.
type PermissionsConfig struct {
	Granted []string `yaml:"granted" default:"[\"READ_MEDIA_VIDEO\",\"READ_EXTERNAL_STORAGE\"]" validate:"dive,oneof=READ_MEDIA_VIDEO READ_EXTERNAL_STORAGE"`
}

// NotificationsConfig represents notification sink configuration.
type NotificationsConfig struct {
	Desktop bool   `yaml:"desktop"`
	AppName string `yaml:"app_name" default:"vidbox"`
}

// RemoteConfig represents the remote control server configuration.
type RemoteConfig struct {
	Addr  string      `yaml:"addr" default:":8080"`
	Token string      `yaml:"token"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse builds a configuration from YAML data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	cfg.expandPaths()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("VIDBOX_REMOTE_TOKEN"); v != "" {
		c.Remote.Token = v
	}
	if v := os.Getenv("VIDBOX_MPV_PATH"); v != "" {
		c.Engine.MpvPath = v
	}
}

func (c *Config) expandPaths() {
	for i, r := range c.Media.ExternalRoots {
		c.Media.ExternalRoots[i] = expandHome(r)
	}
	for i, r := range c.Media.InternalRoots {
		c.Media.InternalRoots[i] = expandHome(r)
	}
	c.Engine.SocketDir = expandHome(c.Engine.SocketDir)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if len(c.Media.ExternalRoots)+len(c.Media.InternalRoots) == 0 {
		return errors.New("at least one media root is required")
	}

	// Relational buffer checks live with the engine config
	if err := c.PlaybackEngineConfig().Validate(); err != nil {
		return err
	}

	return nil
}

// PlaybackEngineConfig returns the engine configuration.
func (c *Config) PlaybackEngineConfig() playback.EngineConfig {
	lc := c.Engine.LoadControl
	cfg := playback.EngineConfig{
		LoadControl: playback.LoadControl{
			MinBuffer:                        ms(lc.MinBufferMs),
			MaxBuffer:                        ms(lc.MaxBufferMs),
			BufferForPlayback:                ms(lc.BufferForPlaybackMs),
			BufferForPlaybackAfterRebuffer:   ms(lc.BufferForPlaybackAfterRebufferMs),
			PrioritizeTimeOverSizeThresholds: lc.PrioritizeTimeOverSizeThresholds,
		},
		PauseAtEndOfMediaItems: boolValue(c.Engine.PauseAtEndOfMediaItems, true),
		DeviceVolumeControl:    boolValue(c.Engine.DeviceVolumeControl, true),
		Volume:                 0.1,
	}
	if c.Engine.Volume != nil {
		cfg.Volume = *c.Engine.Volume
	}
	return cfg
}

// MpvOptions returns the mpv process options.
func (c *Config) MpvOptions() (mpv.Options, error) {
	settings := make(map[string]any, len(c.Engine.Options)+2)
	for k, v := range c.Engine.Options {
		settings[k] = v
	}
	settings["binary"] = c.Engine.MpvPath
	if c.Engine.SocketDir != "" {
		settings["socket_dir"] = c.Engine.SocketDir
	}
	return mpv.DecodeOptions(settings)
}

// MediaStoreConfig returns the media store configuration.
func (c *Config) MediaStoreConfig() mediastore.Config {
	return mediastore.Config{
		ExternalRoots: c.Media.ExternalRoots,
		InternalRoots: c.Media.InternalRoots,
		Extensions:    c.Media.Extensions,
	}
}

// PermissionConfig returns the permission manager configuration.
func (c *Config) PermissionConfig() permission.Config {
	roots := append(append([]string{}, c.Media.ExternalRoots...), c.Media.InternalRoots...)
	return permission.Config{
		Granted: c.Permissions.Granted,
		Roots:   roots,
	}
}

// WatchEnabled reports whether new files are watched for.
func (c *Config) WatchEnabled() bool {
	return boolValue(c.Media.Watch, true)
}

// ScanTimeout returns the enumeration timeout.
func (c *Config) ScanTimeout() time.Duration {
	return ms(c.Media.ScanTimeoutMs)
}

// SettleDelay returns how long new files settle before being reported.
func (c *Config) SettleDelay() time.Duration {
	return ms(c.Media.SettleDelayMs)
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func boolValue(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
