package playback

// PlayWhenReadyReason explains why the play-when-ready flag changed.
type PlayWhenReadyReason int

const (
	ReasonUserRequest        PlayWhenReadyReason = iota + 1 // Play or pause requested by the user
	ReasonAudioFocusLoss                                    // Audio focus was lost
	ReasonAudioBecomingNoisy                                // Audio output was disconnected
	ReasonRemote                                            // Changed by a remote controller
	ReasonEndOfMediaItem                                    // Paused at the end of an item
	ReasonSuppressedTooLong                                 // Playback was suppressed for too long
)

// String returns the string representation of the reason.
func (r PlayWhenReadyReason) String() string {
	switch r {
	case ReasonUserRequest:
		return "USER_REQUEST"
	case ReasonAudioFocusLoss:
		return "AUDIO_FOCUS_LOSS"
	case ReasonAudioBecomingNoisy:
		return "AUDIO_BECOMING_NOISY"
	case ReasonRemote:
		return "REMOTE"
	case ReasonEndOfMediaItem:
		return "END_OF_MEDIA_ITEM"
	case ReasonSuppressedTooLong:
		return "SUPPRESSED_TOO_LONG"
	default:
		return "UNKNOWN"
	}
}

// TransitionReason explains why the current media item changed.
type TransitionReason int

const (
	TransitionRepeat          TransitionReason = iota // Same item repeated
	TransitionAuto                                    // Previous item finished
	TransitionSeek                                    // Seek to another item
	TransitionPlaylistChanged                         // Queue was modified
)

// String returns the string representation of the transition reason.
func (r TransitionReason) String() string {
	switch r {
	case TransitionRepeat:
		return "REPEAT"
	case TransitionAuto:
		return "AUTO"
	case TransitionSeek:
		return "SEEK"
	case TransitionPlaylistChanged:
		return "PLAYLIST_CHANGED"
	default:
		return "UNKNOWN"
	}
}
