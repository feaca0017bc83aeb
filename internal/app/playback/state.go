// Package playback provides the playback session controller and the
// contract of the engine it drives.
package playback

// State represents the engine playback state.
type State int

const (
	StateIdle      State = iota // No media prepared (stopped, failed or cleared)
	StateBuffering              // Loading data before playback can continue
	StateReady                  // Able to play immediately from the current position
	StateEnded                  // Finished playing the queue
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuffering:
		return "buffering"
	case StateReady:
		return "ready"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}
