package mpv

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/osa030/vidbox/internal/app/playback"
)

// Observed property IDs.
const (
	propTimePos = iota + 1
	propPausedForCache
	propEOFReached
	propPause
	propCoreIdle
	propMediaTitle
)

var observed = []struct {
	id   int
	name string
}{
	{propTimePos, "time-pos"},
	{propPausedForCache, "paused-for-cache"},
	{propEOFReached, "eof-reached"},
	{propPause, "pause"},
	{propCoreIdle, "core-idle"},
	{propMediaTitle, "media-title"},
}

// request is a command sent to mpv.
type request struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

// message is either a command reply or an event.
type message struct {
	Event     string          `json:"event,omitempty"`
	ID        int             `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	FileError string          `json:"file_error,omitempty"`
	Error     string          `json:"error,omitempty"`
	RequestID int64           `json:"request_id,omitempty"`
}

func (m message) isReply() bool {
	return m.Event == "" && m.Error != ""
}

func (m message) hasData() bool {
	return len(m.Data) > 0 && string(m.Data) != "null"
}

func (m message) boolData() (bool, bool) {
	var v bool
	if !m.hasData() || json.Unmarshal(m.Data, &v) != nil {
		return false, false
	}
	return v, true
}

func (m message) floatData() (float64, bool) {
	var v float64
	if !m.hasData() || json.Unmarshal(m.Data, &v) != nil {
		return 0, false
	}
	return v, true
}

func (m message) stringData() (string, bool) {
	var v string
	if !m.hasData() || json.Unmarshal(m.Data, &v) != nil {
		return "", false
	}
	return v, true
}

func parseMessage(line []byte) (message, error) {
	var m message
	if err := json.Unmarshal(line, &m); err != nil {
		return message{}, errors.Wrap(err, "failed to parse mpv message")
	}
	return m, nil
}

// loadError maps an end-file failure to an engine error.
func loadError(fileError, path string) *playback.EngineError {
	msg := fileError
	if msg == "" {
		msg = "playback failed"
	}

	lower := strings.ToLower(fileError)
	switch {
	case strings.Contains(lower, "unrecognized file format"):
		return playback.NewEngineError(playback.ErrorCodeParsingContainerUnsupported, msg)
	case strings.Contains(lower, "no video or audio"), strings.Contains(lower, "nothing to play"):
		return playback.NewEngineError(playback.ErrorCodeParsingContainerMalformed, msg)
	case strings.Contains(lower, "init"):
		return playback.NewEngineError(playback.ErrorCodeDecoderInitFailed, msg)
	case strings.Contains(lower, "loading failed"):
		if path != "" {
			if _, err := os.Stat(path); err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return playback.NewEngineError(playback.ErrorCodeIOFileNotFound, msg)
				}
				if errors.Is(err, os.ErrPermission) {
					return playback.NewEngineError(playback.ErrorCodeIONoPermission, msg)
				}
			}
		}
		return playback.NewEngineError(playback.ErrorCodeIOUnspecified, msg)
	default:
		return playback.NewEngineError(playback.ErrorCodeUnspecified, msg)
	}
}
