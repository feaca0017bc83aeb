package notification

import (
	"github.com/gen2brain/beeep"
	zlog "github.com/rs/zerolog/log"
)

// LogSink writes every notification to the log.
func LogSink() Sink {
	return SinkFunc(func(n Notification) error {
		zlog.Info().Msgf("notification #%d (%s): %s", n.SequenceNo, n.Length, n.Message)
		return nil
	})
}

// DesktopSink shows notifications through the desktop notification service.
type DesktopSink struct {
	title  string
	notify func(title, message string) error
}

// NewDesktopSink creates a desktop sink using title as the notification title.
func NewDesktopSink(title string) *DesktopSink {
	return &DesktopSink{
		title: title,
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// Send shows the notification. Delivery happens in the background because
// desktop services may take a while to answer.
func (s *DesktopSink) Send(n Notification) error {
	go func() {
		if err := s.notify(s.title, n.Message); err != nil {
			zlog.Warn().Msgf("notification: desktop notify failed: %v", err)
		}
	}()
	return nil
}
