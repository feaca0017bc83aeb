// Package notification provides transient user-visible notifications and
// fans them out to subscribed sinks.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// Length is how long a notification stays visible.
type Length int

const (
	LengthShort Length = iota // About two seconds
	LengthLong                // About three and a half seconds
)

// Duration returns the display duration of the length.
func (l Length) Duration() time.Duration {
	if l == LengthLong {
		return 3500 * time.Millisecond
	}
	return 2 * time.Second
}

// String returns the string representation of the length.
func (l Length) String() string {
	switch l {
	case LengthShort:
		return "short"
	case LengthLong:
		return "long"
	default:
		return "unknown"
	}
}

// Notification is a transient message shown to the user.
type Notification struct {
	Message    string
	Length     Length
	SequenceNo uint64
	CreatedAt  time.Time
}

// Sink receives notifications.
type Sink interface {
	Send(Notification) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Notification) error

// Send calls f(n).
func (f SinkFunc) Send(n Notification) error {
	return f(n)
}

// queueSize is the number of notifications buffered per subscriber.
const queueSize = 16

// subscription represents a subscriber's subscription.
type subscription struct {
	id    string
	sink  Sink
	queue chan Notification
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
	sendTimeout   time.Duration
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
		sendTimeout:   500 * time.Millisecond,
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(sink Sink) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	sub := &subscription{
		id:    id,
		sink:  sink,
		queue: make(chan Notification, queueSize),
	}
	m.subscriptions[id] = sub
	go m.deliver(sub)
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, ok := m.subscriptions[subscriptionID]; ok {
		close(sub.queue)
		delete(m.subscriptions, subscriptionID)
	}
}

// Show is a shorthand for Notify with a plain message.
func (m *Manager) Show(message string, length Length) {
	m.Notify(Notification{Message: message, Length: length})
}

// Notify stamps the notification with a sequence number and queues it for
// every subscriber. It never waits for a sink; a subscriber whose queue is
// full misses the notification.
func (m *Manager) Notify(n Notification) {
	m.sequenceNoMu.Lock()
	m.sequenceNo++
	n.SequenceNo = m.sequenceNo
	m.sequenceNoMu.Unlock()

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, sub := range m.subscriptions {
		select {
		case sub.queue <- n:
		default:
			zlog.Debug().Msgf("notification: queue full, dropping: subscription=%s seq=%d", sub.id, n.SequenceNo)
		}
	}
}

// deliver sends the queued notifications of one subscriber in order until
// its queue is closed.
func (m *Manager) deliver(sub *subscription) {
	for n := range sub.queue {
		m.send(sub, n)
	}
}

// send hands one notification to a sink, giving up after sendTimeout so a
// stalled sink only delays its own queue.
func (m *Manager) send(sub *subscription, n Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), m.sendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- sub.sink.Send(n)
	}()

	select {
	case err := <-done:
		if err != nil {
			zlog.Debug().Msgf("notification: send failed: subscription=%s err=%v", sub.id, err)
		}
	case <-ctx.Done():
		zlog.Debug().Msgf("notification: send timed out: subscription=%s", sub.id)
	}
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.subscriptions {
		close(sub.queue)
	}
	m.subscriptions = make(map[string]*subscription)
}
