// Package dedupe suppresses duplicate deliveries of message-append events.
// Event dispatch is at-least-once, so the same message ID can arrive twice;
// the cache lets the router make redelivery a no-op on a best-effort basis.
package dedupe
