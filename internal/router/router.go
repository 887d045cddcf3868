// ABOUTME: Message router deciding between human handoff and automated reply
// ABOUTME: Consumes append events from the bus and acts on each customer message

package router

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/caliber/livechat/internal/assistant"
	"github.com/caliber/livechat/internal/bus"
	"github.com/caliber/livechat/internal/store"
)

// contextWindow is the number of prior messages handed to the assistant.
const contextWindow = 10

// MessageStore is what the router needs from storage.
type MessageStore interface {
	AppendMessage(ctx context.Context, conversationID string, sender store.Sender, text string) (*store.Message, error)
	RecentMessages(ctx context.Context, conversationID string, limit int, excludeID string) ([]*store.Message, error)
	SetHumanActive(ctx context.Context, conversationID string, active bool) error
}

// Presence reports operator liveness.
type Presence interface {
	Available() (bool, error)
}

// Generator produces an assistant reply from the dialogue context.
type Generator interface {
	Generate(ctx context.Context, turns []assistant.Turn, latest string) (string, error)
}

// Deduper suppresses redelivered events. CheckAndMark reports whether the ID
// was already seen, marking it as seen when it was not.
type Deduper interface {
	CheckAndMark(id string) bool
}

// Router routes each incoming customer message to either a waiting human
// operator or the automated assistant, depending on operator liveness at
// the moment the message arrives.
type Router struct {
	store     MessageStore
	presence  Presence
	generator Generator
	dedupe    Deduper
	events    *bus.Broadcaster
	logger    *slog.Logger
}

// New creates a router wired to the given collaborators.
func New(st MessageStore, pres Presence, gen Generator, dd Deduper, events *bus.Broadcaster, logger *slog.Logger) *Router {
	return &Router{
		store:     st,
		presence:  pres,
		generator: gen,
		dedupe:    dd,
		events:    events,
		logger:    logger.With("component", "router"),
	}
}

// Run subscribes to message events and routes them until ctx is cancelled.
func (r *Router) Run(ctx context.Context) {
	events, subID := r.events.Subscribe(ctx)
	r.logger.Info("router started", "subscription", subID)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("router stopped")
			return
		case event, ok := <-events:
			if !ok {
				r.logger.Info("event stream closed")
				return
			}
			r.Handle(ctx, event)
		}
	}
}

// Handle processes a single message event. Exported so tests and synchronous
// callers can drive the router without the bus.
func (r *Router) Handle(ctx context.Context, event bus.MessageEvent) {
	if r.dedupe.CheckAndMark(event.MessageID) {
		r.logger.Debug("duplicate event suppressed", "message_id", event.MessageID)
		return
	}

	// Only customer messages trigger routing. Assistant and operator
	// messages are appended elsewhere and must never feed back into
	// the decision loop.
	if event.Sender != store.SenderCustomer {
		return
	}

	available, err := r.presence.Available()
	if err != nil {
		// Unknown liveness counts as absent: the customer gets an
		// automated reply rather than silence.
		r.logger.Warn("presence check failed, assuming operator absent", "error", err)
		available = false
	}

	if available {
		r.handoff(ctx, event)
		return
	}

	r.respond(ctx, event)
}

// handoff flags the conversation for a live operator and sends no reply.
func (r *Router) handoff(ctx context.Context, event bus.MessageEvent) {
	if err := r.store.SetHumanActive(ctx, event.ConversationID, true); err != nil {
		r.logger.Error("failed to flag conversation for operator", "conversation_id", event.ConversationID, "error", err)
		return
	}
	r.logger.Info("routed to operator", "conversation_id", event.ConversationID, "message_id", event.MessageID)
}

// respond generates an assistant reply for the conversation. Any failure in
// the pipeline degrades to the fixed apology so the customer always hears
// something.
func (r *Router) respond(ctx context.Context, event bus.MessageEvent) {
	reply, err := r.generate(ctx, event)
	if err != nil {
		r.logger.Warn("assistant reply failed, sending fallback", "conversation_id", event.ConversationID, "error", err)
		reply = assistant.Fallback
	}

	if _, err := r.store.AppendMessage(ctx, event.ConversationID, store.SenderAssistant, reply); err != nil {
		r.logger.Error("failed to append assistant reply", "conversation_id", event.ConversationID, "error", err)
		return
	}

	if err := r.store.SetHumanActive(ctx, event.ConversationID, false); err != nil {
		r.logger.Error("failed to clear operator flag", "conversation_id", event.ConversationID, "error", err)
		return
	}

	r.logger.Info("assistant replied", "conversation_id", event.ConversationID, "message_id", event.MessageID)
}

func (r *Router) generate(ctx context.Context, event bus.MessageEvent) (reply string, err error) {
	// A panicking generator must degrade to the fallback, not kill the
	// event loop.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("generator panic: %v", rec)
		}
	}()

	history, err := r.store.RecentMessages(ctx, event.ConversationID, contextWindow, event.MessageID)
	if err != nil {
		return "", err
	}
	return r.generator.Generate(ctx, buildContext(history), event.Text)
}
