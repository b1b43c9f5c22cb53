package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"socialchat/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

const messageColumns = `id, sender_id, receiver_id, group_id, content, is_delivered, is_read, is_edited, is_deleted, created_at`

// Create persists the message and assigns its id and created-at. The clock
// is this process, not the client; ids are monotonic with created_at.
func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	m.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (sender_id, receiver_id, group_id, content, is_delivered, is_read, is_edited, is_deleted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.SenderID, m.ReceiverID, m.GroupID, m.Content, m.IsDelivered, m.IsRead, m.IsEdited, m.IsDeleted, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	m.ID = id
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	m := &domain.Message{}
	err := row.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.GroupID, &m.Content,
		&m.IsDelivered, &m.IsRead, &m.IsEdited, &m.IsDeleted, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

func (r *MessageRepo) UpdateContent(ctx context.Context, id int64, content string, isEdited, isDeleted bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET content = ?, is_edited = ?, is_deleted = ? WHERE id = ?
	`, content, isEdited, isDeleted, id)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkRead sets is_read and, since read implies delivered, is_delivered.
func (r *MessageRepo) MarkRead(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET is_read = 1, is_delivered = 1 WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MessageRepo) MarkReadBatch(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE messages SET is_read = 1, is_delivered = 1 WHERE id IN (?` +
		strings.Repeat(",?", len(ids)-1) + `)`
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark read batch: %w", err)
	}
	return nil
}

func (r *MessageRepo) ListDirectPage(ctx context.Context, userA, userB, cursor int64, limit int) ([]*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + ` FROM messages
		WHERE ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))
	`
	args := []any{userA, userB, userB, userA}
	if cursor > 0 {
		query += ` AND id < ?`
		args = append(args, cursor)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)
	return r.listPage(ctx, query, args...)
}

func (r *MessageRepo) ListGroupPage(ctx context.Context, groupID, cursor int64, limit int) ([]*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE group_id = ?`
	args := []any{groupID}
	if cursor > 0 {
		query += ` AND id < ?`
		args = append(args, cursor)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)
	return r.listPage(ctx, query, args...)
}

func (r *MessageRepo) listPage(ctx context.Context, query string, args ...any) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var res []*domain.Message
	for rows.Next() {
		m := &domain.Message{}
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.GroupID, &m.Content,
			&m.IsDelivered, &m.IsRead, &m.IsEdited, &m.IsDeleted, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
