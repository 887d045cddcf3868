// Package gateway assembles the livechat service and serves its HTTP API.
//
// # Overview
//
// The gateway wires storage, operator presence, the event bus, the message
// router, and the Gemini assistant together, and exposes two HTTP surfaces:
//
//   - Customer chat ingress under /api/chat/{customerID}/messages. Customers
//     are unauthenticated; posting a message appends it and hands it to the
//     router via the event bus.
//   - Operator endpoints under /api/*, protected by bearer tokens issued at
//     /api/login. Operators manage presence, browse conversations, and post
//     replies.
//
// # Lifecycle
//
// New builds the fully wired gateway from configuration. Run starts the
// router and HTTP server and blocks until the context is cancelled, then
// shuts down gracefully with a bounded timeout.
package gateway
