package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Contact message status values.
const (
	ContactStatusUnread = "unread"
	ContactStatusRead   = "read"
)

// ContactMessage is one submitted contact form entry.
type ContactMessage struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	Addr      string    `json:"addr"`
	UserAgent string    `json:"user_agent"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveContactMessage persists a contact form submission and returns its ID.
func (s *Store) SaveContactMessage(ctx context.Context, msg ContactMessage) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	status := strings.TrimSpace(msg.Status)
	if status == "" {
		status = ContactStatusUnread
	}

	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	result, err := s.DB.ExecContext(ctx, `
		INSERT INTO contact_messages (name, email, message, addr, user_agent, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, msg.Name, msg.Email, msg.Message, msg.Addr, msg.UserAgent, status, createdAt.Unix())
	if err != nil {
		return 0, fmt.Errorf("store contact message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("contact message id: %w", err)
	}

	return id, nil
}

// ListContactMessages returns stored messages, newest first.
func (s *Store) ListContactMessages(ctx context.Context, limit int) ([]ContactMessage, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if limit <= 0 {
		limit = 100
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, email, message, addr, user_agent, status, created_at
		FROM contact_messages
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	var messages []ContactMessage
	for rows.Next() {
		var (
			msg       ContactMessage
			createdAt int64
		)
		if err := rows.Scan(&msg.ID, &msg.Name, &msg.Email, &msg.Message, &msg.Addr, &msg.UserAgent, &msg.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan contact message: %w", err)
		}
		msg.CreatedAt = time.Unix(createdAt, 0).UTC()
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}

	return messages, nil
}

// MarkContactMessageRead flips a message's status to read.
func (s *Store) MarkContactMessageRead(ctx context.Context, id int64) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	result, err := s.DB.ExecContext(ctx, `
		UPDATE contact_messages SET status = ? WHERE id = ?
	`, ContactStatusRead, id)
	if err != nil {
		return fmt.Errorf("mark contact message read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark contact message read: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("contact message %d not found", id)
	}

	return nil
}
