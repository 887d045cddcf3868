// Package store provides persistence for conversations, messages, and
// operator accounts.
//
// A Conversation is keyed by the customer's identity and carries the
// last-message metadata the operator console triages on. Messages are
// immutable once written; only the read flag may change. Message timestamps
// are assigned by the store at append time and never move backwards within a
// conversation, so recent-history queries have a stable order to rely on.
//
// The concrete implementation is SQLiteStore (modernc.org/sqlite, pure Go).
package store
