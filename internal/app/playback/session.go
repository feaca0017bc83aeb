package playback

import (
	"time"

	"github.com/google/uuid"

	"github.com/osa030/vidbox/internal/domain/playlist"
)

// Session is the state of one screen instance: its engine, its playlist and
// the playback position saved when the screen went to the background.
type Session struct {
	ID                string
	Engine            Engine
	Playlist          *playlist.Playlist
	LastSavedPosition time.Duration
	State             State

	Title       string // Title of the current item, from its metadata
	Playing     bool   // Last value reported by the engine
	MediaAccess bool   // Media store may be read
	released    bool
}

func newSession() *Session {
	return &Session{
		ID:       uuid.New().String(),
		Playlist: playlist.New(),
		State:    StateIdle,
	}
}

// Released reports whether the engine has been released.
func (s *Session) Released() bool {
	return s.released
}

// Snapshot is a copy of the session state for display.
type Snapshot struct {
	SessionID         string
	State             State
	Title             string
	Playing           bool
	Labels            []string
	Position          time.Duration
	LastSavedPosition time.Duration
	QueueLength       int
	Released          bool
}
