// Package bus provides in-memory pub/sub for message-append events.
//
// The gateway publishes an event for every appended message; the router
// subscribes and makes its routing decision per event. Subscriber channels
// are buffered and publishes never block: a subscriber that falls behind
// loses events rather than stalling the ingress path. Consumers needing
// stronger delivery must pair the bus with deduplication and treat the
// store as the source of truth.
package bus
