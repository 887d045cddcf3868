// Package router decides, for every incoming customer message, whether a
// human operator or the automated assistant answers.
//
// The router subscribes to message-append events. For each customer message
// it checks operator liveness: a live operator gets the conversation flagged
// for human handling and no automated reply is sent; otherwise the assistant
// generates a reply from the recent conversation history. Any failure on the
// automated path degrades to a fixed apology message, and a failed liveness
// check is treated as operator absence. Duplicate event deliveries are
// suppressed before any side effect.
package router
