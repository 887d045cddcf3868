// Package presence tracks human-operator availability.
//
// Presence is advisory and self-healing: the operator console refreshes a
// heartbeat, and availability is derived from heartbeat age against a TTL
// rather than from the declared online flag. If the console crashes or loses
// its connection, the record goes stale and the message router falls back to
// automated handling within one TTL window.
package presence
