// ABOUTME: Operator account persistence for the operator console login
// ABOUTME: Username/password records with bcrypt hashes stored by the caller

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateOperator creates a new operator account.
func (s *SQLiteStore) CreateOperator(ctx context.Context, op *Operator) error {
	query := `
		INSERT INTO operators (id, username, password_hash, display_name, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		op.ID,
		op.Username,
		op.PasswordHash,
		op.DisplayName,
		op.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUsernameExists
		}
		return fmt.Errorf("inserting operator: %w", err)
	}

	s.logger.Info("created operator", "id", op.ID, "username", op.Username)
	return nil
}

// GetOperator retrieves an operator by ID.
func (s *SQLiteStore) GetOperator(ctx context.Context, id string) (*Operator, error) {
	return s.getOperator(ctx, `WHERE id = ?`, id)
}

// GetOperatorByUsername retrieves an operator by username.
func (s *SQLiteStore) GetOperatorByUsername(ctx context.Context, username string) (*Operator, error) {
	return s.getOperator(ctx, `WHERE username = ?`, username)
}

func (s *SQLiteStore) getOperator(ctx context.Context, where string, arg any) (*Operator, error) {
	query := `
		SELECT id, username, password_hash, display_name, created_at
		FROM operators ` + where

	op := &Operator{}
	var createdStr string

	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&op.ID,
		&op.Username,
		&op.PasswordHash,
		&op.DisplayName,
		&createdStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying operator: %w", err)
	}

	if op.CreatedAt, err = time.Parse(time.RFC3339Nano, createdStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return op, nil
}

// CountOperators returns the number of operator accounts. Used by bootstrap
// to refuse re-initialization.
func (s *SQLiteStore) CountOperators(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM operators`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting operators: %w", err)
	}
	return count, nil
}
