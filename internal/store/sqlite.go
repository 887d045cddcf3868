// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides conversation/message/operator persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL keeps widget polling reads from blocking router writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
		now:    time.Now,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			customer_id     TEXT PRIMARY KEY,
			last_message    TEXT NOT NULL DEFAULT '',
			last_message_at TEXT NOT NULL,
			last_sender     TEXT NOT NULL,
			human_active    INTEGER NOT NULL DEFAULT 0,
			created_at      TEXT NOT NULL,
			updated_at      TEXT NOT NULL,

			CHECK (last_sender IN ('customer', 'assistant', 'operator'))
		);

		CREATE INDEX IF NOT EXISTS idx_conversations_updated
			ON conversations(updated_at DESC);

		CREATE TABLE IF NOT EXISTS messages (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			sender          TEXT NOT NULL,
			text            TEXT NOT NULL,
			created_at      TEXT NOT NULL,
			read            INTEGER NOT NULL DEFAULT 0,

			FOREIGN KEY (conversation_id) REFERENCES conversations(customer_id),
			CHECK (sender IN ('customer', 'assistant', 'operator'))
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
			ON messages(conversation_id, created_at);

		CREATE TABLE IF NOT EXISTS operators (
			id            TEXT PRIMARY KEY,
			username      TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			display_name  TEXT NOT NULL,
			created_at    TEXT NOT NULL
		);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AppendMessage writes a message and updates the conversation metadata in one
// transaction. The conversation is created implicitly on first append. The
// message timestamp is assigned here and clamped so it never moves backwards
// within a conversation, keeping the per-conversation ordering invariant even
// under clock adjustments.
func (s *SQLiteStore) AppendMessage(ctx context.Context, conversationID string, sender Sender, text string) (*Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UTC()
	ts := now

	var lastAtStr sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT last_message_at FROM conversations WHERE customer_id = ?`,
		conversationID,
	).Scan(&lastAtStr)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		// First message: create the conversation row
		_, err = tx.ExecContext(ctx, `
			INSERT INTO conversations (customer_id, last_message, last_message_at, last_sender, human_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, 0, ?, ?)`,
			conversationID, text, ts.Format(time.RFC3339Nano), string(sender),
			now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
		)
		if err != nil {
			return nil, fmt.Errorf("creating conversation: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("querying conversation: %w", err)
	default:
		if lastAtStr.Valid {
			lastAt, perr := time.Parse(time.RFC3339Nano, lastAtStr.String)
			if perr == nil && ts.Before(lastAt) {
				ts = lastAt
			}
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE conversations
			SET last_message = ?, last_message_at = ?, last_sender = ?, updated_at = ?
			WHERE customer_id = ?`,
			text, ts.Format(time.RFC3339Nano), string(sender), now.Format(time.RFC3339Nano),
			conversationID,
		)
		if err != nil {
			return nil, fmt.Errorf("updating conversation: %w", err)
		}
	}

	msg := &Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Sender:         sender,
		Text:           text,
		CreatedAt:      ts,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender, text, created_at, read)
		VALUES (?, ?, ?, ?, ?, 0)`,
		msg.ID, msg.ConversationID, string(msg.Sender), msg.Text, ts.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing append: %w", err)
	}

	s.logger.Debug("message appended",
		"conversation_id", conversationID,
		"message_id", msg.ID,
		"sender", sender,
	)
	return msg, nil
}

// ListMessages returns messages for a conversation in chronological order.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID string, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	query := `
		SELECT id, conversation_id, sender, text, created_at, read
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?
	`
	return s.queryMessages(ctx, query, conversationID, limit)
}

// RecentMessages returns the most recent messages for a conversation in
// chronological order, excluding excludeID if non-empty. Uses a DESC subquery
// to pick the N most recent rows, then re-orders ASC so callers receive the
// dialogue window oldest-first.
func (s *SQLiteStore) RecentMessages(ctx context.Context, conversationID string, limit int, excludeID string) ([]*Message, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, conversation_id, sender, text, created_at, read
		FROM (
			SELECT id, conversation_id, sender, text, created_at, read
			FROM messages
			WHERE conversation_id = ? AND id != ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		)
		ORDER BY created_at ASC, id ASC
	`
	return s.queryMessages(ctx, query, conversationID, excludeID, limit)
}

// MarkRead flags all customer-sent messages in the conversation as read.
func (s *SQLiteStore) MarkRead(ctx context.Context, conversationID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE messages SET read = 1
		WHERE conversation_id = ? AND sender = 'customer' AND read = 0`,
		conversationID,
	)
	if err != nil {
		return fmt.Errorf("marking messages read: %w", err)
	}
	return nil
}

// GetConversation retrieves conversation metadata by customer ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, customerID string) (*Conversation, error) {
	query := `
		SELECT customer_id, last_message, last_message_at, last_sender, human_active, created_at, updated_at
		FROM conversations
		WHERE customer_id = ?
	`

	conv := &Conversation{}
	var lastAtStr, senderStr, createdStr, updatedStr string

	err := s.db.QueryRowContext(ctx, query, customerID).Scan(
		&conv.CustomerID,
		&conv.LastMessage,
		&lastAtStr,
		&senderStr,
		&conv.HumanActive,
		&createdStr,
		&updatedStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying conversation: %w", err)
	}

	conv.LastSender = Sender(senderStr)
	if conv.LastMessageAt, err = time.Parse(time.RFC3339Nano, lastAtStr); err != nil {
		return nil, fmt.Errorf("parsing last_message_at: %w", err)
	}
	if conv.CreatedAt, err = time.Parse(time.RFC3339Nano, createdStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if conv.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return conv, nil
}

// ListConversations returns every conversation, most recently active first.
// This is the operator triage read; it is a bulk read with no pagination.
func (s *SQLiteStore) ListConversations(ctx context.Context) ([]*Conversation, error) {
	query := `
		SELECT customer_id, last_message, last_message_at, last_sender, human_active, created_at, updated_at
		FROM conversations
		ORDER BY last_message_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var convs []*Conversation
	for rows.Next() {
		conv := &Conversation{}
		var lastAtStr, senderStr, createdStr, updatedStr string
		if err := rows.Scan(
			&conv.CustomerID,
			&conv.LastMessage,
			&lastAtStr,
			&senderStr,
			&conv.HumanActive,
			&createdStr,
			&updatedStr,
		); err != nil {
			return nil, fmt.Errorf("scanning conversation row: %w", err)
		}

		conv.LastSender = Sender(senderStr)
		if conv.LastMessageAt, err = time.Parse(time.RFC3339Nano, lastAtStr); err != nil {
			return nil, fmt.Errorf("parsing last_message_at: %w", err)
		}
		if conv.CreatedAt, err = time.Parse(time.RFC3339Nano, createdStr); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		if conv.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedStr); err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}

		convs = append(convs, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversation rows: %w", err)
	}
	return convs, nil
}

// SetHumanActive updates the human-handling flag on a conversation.
func (s *SQLiteStore) SetHumanActive(ctx context.Context, conversationID string, active bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET human_active = ?, updated_at = ?
		WHERE customer_id = ?`,
		active, s.now().UTC().Format(time.RFC3339Nano), conversationID,
	)
	if err != nil {
		return fmt.Errorf("updating human_active: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// queryMessages is a helper that executes a query and returns messages
func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...any) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		msg := &Message{}
		var senderStr, createdStr string
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&senderStr,
			&msg.Text,
			&createdStr,
			&msg.Read,
		); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}

		msg.Sender = Sender(senderStr)
		if msg.CreatedAt, err = time.Parse(time.RFC3339Nano, createdStr); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}

		msgs = append(msgs, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}
	return msgs, nil
}

// isUniqueConstraintError reports whether err is a SQLite unique constraint violation
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
