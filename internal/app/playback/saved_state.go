package playback

import "time"

// SavedPositionKey is the key the playback position is saved under.
const SavedPositionKey = "STATE_KEY_SAVE_TIME"

// SavedState is the bundle handed from a destroyed screen to the next one.
// It lives in memory only and does not survive process restarts.
type SavedState struct {
	values map[string]int64
}

// NewSavedState creates an empty bundle.
func NewSavedState() *SavedState {
	return &SavedState{values: make(map[string]int64)}
}

// PutPosition stores a playback position in milliseconds.
func (s *SavedState) PutPosition(position time.Duration) {
	s.values[SavedPositionKey] = position.Milliseconds()
}

// Position returns the stored playback position, if any.
func (s *SavedState) Position() (time.Duration, bool) {
	if s == nil {
		return 0, false
	}
	ms, ok := s.values[SavedPositionKey]
	if !ok {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}

// Clear removes every stored value.
func (s *SavedState) Clear() {
	s.values = make(map[string]int64)
}
