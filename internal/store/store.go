// ABOUTME: Store interface and data types for livechat persistence
// ABOUTME: Defines Conversation, Message, Operator structs and the Store interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrUsernameExists is returned when creating an operator with a taken username
var ErrUsernameExists = errors.New("username already exists")

// Sender identifies who authored a message
type Sender string

const (
	SenderCustomer  Sender = "customer"
	SenderAssistant Sender = "assistant"
	SenderOperator  Sender = "operator"
)

// Conversation is the per-customer thread metadata. It is created implicitly
// on the first customer message and updated on every append.
type Conversation struct {
	CustomerID    string
	LastMessage   string
	LastMessageAt time.Time
	LastSender    Sender
	HumanActive   bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Message is a single entry in a conversation. Messages are immutable once
// written; only the Read flag may change afterwards.
type Message struct {
	ID             string
	ConversationID string
	Sender         Sender
	Text           string
	CreatedAt      time.Time
	Read           bool
}

// Operator is a human agent who can claim conversations via the operator API.
type Operator struct {
	ID           string
	Username     string
	PasswordHash string // bcrypt
	DisplayName  string
	CreatedAt    time.Time
}

// Store defines the interface for conversation and message persistence
type Store interface {
	// Messages. AppendMessage creates the conversation if needed, assigns the
	// message timestamp (monotonically non-decreasing within a conversation)
	// and updates the conversation's last-message metadata in one transaction.
	AppendMessage(ctx context.Context, conversationID string, sender Sender, text string) (*Message, error)
	ListMessages(ctx context.Context, conversationID string, limit int) ([]*Message, error)
	RecentMessages(ctx context.Context, conversationID string, limit int, excludeID string) ([]*Message, error)
	MarkRead(ctx context.Context, conversationID string) error

	// Conversations
	GetConversation(ctx context.Context, customerID string) (*Conversation, error)
	ListConversations(ctx context.Context) ([]*Conversation, error)
	SetHumanActive(ctx context.Context, conversationID string, active bool) error

	// Operators
	CreateOperator(ctx context.Context, op *Operator) error
	GetOperator(ctx context.Context, id string) (*Operator, error)
	GetOperatorByUsername(ctx context.Context, username string) (*Operator, error)
	CountOperators(ctx context.Context) (int, error)

	// Close releases any resources held by the store
	Close() error
}
