// Package notify delivers fire-and-forget user-facing notifications.
package notify

import (
	"sync"

	"go.uber.org/zap"

	"solana-token-studio/internal/domain"
	"solana-token-studio/internal/observability"
)

// Notifier receives user-facing notifications. Implementations must not block.
type Notifier interface {
	Notify(n domain.Notification)
}

// Error builds an error notification.
func Error(message, description string) domain.Notification {
	return domain.Notification{Type: domain.NotificationError, Message: message, Description: description}
}

// Success builds a success notification.
func Success(message string) domain.Notification {
	return domain.Notification{Type: domain.NotificationSuccess, Message: message}
}

// Discard drops every notification.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(domain.Notification) {}

// LogNotifier writes notifications to a logger and counts them.
type LogNotifier struct {
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewLogNotifier creates a LogNotifier. metrics may be nil.
func NewLogNotifier(logger *zap.Logger, metrics *observability.Metrics) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notify"), metrics: metrics}
}

// Notify logs n at info level for success and warn level for errors.
func (l *LogNotifier) Notify(n domain.Notification) {
	l.metrics.RecordNotification(string(n.Type))

	fields := []zap.Field{zap.String("type", string(n.Type))}
	if n.Description != "" {
		fields = append(fields, zap.String("description", n.Description))
	}
	if n.Type == domain.NotificationError {
		l.logger.Warn(n.Message, fields...)
		return
	}
	l.logger.Info(n.Message, fields...)
}

// DefaultInboxSize is the Inbox capacity used when none is given.
const DefaultInboxSize = 64

// Inbox keeps the most recent notifications for a client to poll.
// When full, the oldest entry is dropped.
type Inbox struct {
	mu    sync.Mutex
	items []domain.Notification
	size  int
}

// NewInbox creates an inbox holding at most size notifications.
func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &Inbox{size: size}
}

// Notify appends n.
func (b *Inbox) Notify(n domain.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) == b.size {
		copy(b.items, b.items[1:])
		b.items = b.items[:len(b.items)-1]
	}
	b.items = append(b.items, n)
}

// Drain returns pending notifications oldest first and empties the inbox.
func (b *Inbox) Drain() []domain.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.items
	b.items = nil
	if out == nil {
		return []domain.Notification{}
	}
	return out
}

// Len returns the number of pending notifications.
func (b *Inbox) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

// Notify forwards n to each notifier in order.
func (m Multi) Notify(n domain.Notification) {
	for _, x := range m {
		if x != nil {
			x.Notify(n)
		}
	}
}
