// ABOUTME: In-memory fan-out broadcaster for message-append events
// ABOUTME: Each persisted message is published here; the router consumes the stream

package bus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/caliber/livechat/internal/store"
)

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 64
)

// MessageEvent describes one appended message. Delivery is at-least-once:
// consumers must tolerate the same MessageID arriving more than once.
type MessageEvent struct {
	MessageID      string
	ConversationID string
	Sender         store.Sender
	Text           string
	AppendedAt     time.Time
}

// Broadcaster provides in-memory pub/sub for message-append events. The
// message router is the production subscriber; keeping dispatch behind an
// explicit publish/subscribe seam is what lets trigger delivery move to an
// external queue later without touching the router.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]chan MessageEvent // subID -> ch
	logger      *slog.Logger
}

// NewBroadcaster creates a broadcaster. Pass nil logger for default.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]chan MessageEvent),
		logger:      logger.With("component", "bus"),
	}
}

// Subscribe registers a consumer for all append events. Returns a channel
// that receives events and a subscription ID. The subscription is cleaned up
// when ctx is cancelled.
func (b *Broadcaster) Subscribe(ctx context.Context) (<-chan MessageEvent, string) {
	subID := uuid.New().String()
	ch := make(chan MessageEvent, subscriberBufferSize)

	b.mu.Lock()
	b.subscribers[subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "sub_id", subID)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(subID)
	}()

	return ch, subID
}

// Publish sends an event to all subscribers. Non-blocking: the event is
// dropped for subscribers whose channels are full.
func (b *Broadcaster) Publish(event MessageEvent) {
	b.mu.RLock()
	targets := make([]chan MessageEvent, 0, len(b.subscribers))
	for _, ch := range b.subscribers {
		targets = append(targets, ch)
	}
	b.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- event:
			// Sent
		default:
			b.logger.Warn("dropped event for slow subscriber",
				"message_id", event.MessageID,
				"conversation_id", event.ConversationID)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subscribers[subID]
	if !ok {
		return
	}

	delete(b.subscribers, subID)
	close(ch)

	b.logger.Debug("subscriber removed", "sub_id", subID)
}

// Close shuts down the broadcaster and closes all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subID, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, subID)
	}

	b.logger.Debug("broadcaster closed")
}
