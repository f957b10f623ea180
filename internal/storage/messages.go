package storage

import (
	"context"
	"database/sql"
	"fmt"

	"socialmedia/internal/models"
)

// MessageRepository persists messages in the messages table.
type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts the message and returns it with the generated id.
func (r *MessageRepository) Create(ctx context.Context, msg models.Message) (*models.Message, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (posted_by, message_text, time_posted) VALUES (?, ?, ?)`,
		msg.PostedBy, msg.MessageText, msg.TimePosted,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("message id: %w", err)
	}
	msg.ID = id
	return &msg, nil
}

// FindAll returns every message ordered by id.
func (r *MessageRepository) FindAll(ctx context.Context) ([]models.Message, error) {
	return r.list(ctx,
		`SELECT id, posted_by, message_text, time_posted FROM messages ORDER BY id ASC`,
	)
}

// FindByPostedBy returns the messages authored by accountID ordered by id.
func (r *MessageRepository) FindByPostedBy(ctx context.Context, accountID int64) ([]models.Message, error) {
	return r.list(ctx,
		`SELECT id, posted_by, message_text, time_posted FROM messages WHERE posted_by = ? ORDER BY id ASC`,
		accountID,
	)
}

func (r *MessageRepository) FindByID(ctx context.Context, id int64) (*models.Message, error) {
	var m models.Message
	err := r.db.QueryRowContext(ctx,
		`SELECT id, posted_by, message_text, time_posted FROM messages WHERE id = ?`, id,
	).Scan(&m.ID, &m.PostedBy, &m.MessageText, &m.TimePosted)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return &m, nil
}

// UpdateText overwrites the text column only.
func (r *MessageRepository) UpdateText(ctx context.Context, id int64, text string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE messages SET message_text = ? WHERE id = ?`, text, id); err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	return nil
}

// Delete removes the message and reports how many rows went away.
func (r *MessageRepository) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("delete message: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

func (r *MessageRepository) list(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.PostedBy, &m.MessageText, &m.TimePosted); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
