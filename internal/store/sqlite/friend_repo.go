package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"socialchat/internal/domain"
)

type FriendRepo struct {
	db *sql.DB
}

func NewFriendRepo(db *sql.DB) *FriendRepo {
	return &FriendRepo{db: db}
}

var _ domain.FriendRepository = (*FriendRepo)(nil)

const friendColumns = `id, sender_id, receiver_id, status, created_at`

func (r *FriendRepo) Create(ctx context.Context, fr *domain.FriendRequest) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO friend_requests (sender_id, receiver_id, status, created_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	`, fr.SenderID, fr.ReceiverID, fr.Status)
	if err != nil {
		// The unique pair index rejects a second link in either direction.
		if strings.Contains(err.Error(), "UNIQUE") {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert friend request: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	fr.ID = id
	return nil
}

func (r *FriendRepo) GetByID(ctx context.Context, id int64) (*domain.FriendRequest, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+friendColumns+` FROM friend_requests WHERE id = ?`, id)
	return scanFriend(row)
}

func (r *FriendRepo) FindBetween(ctx context.Context, userA, userB int64) (*domain.FriendRequest, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+friendColumns+` FROM friend_requests
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
	`, userA, userB, userB, userA)
	return scanFriend(row)
}

func (r *FriendRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE friend_requests SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update friend request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *FriendRepo) ListPendingForReceiver(ctx context.Context, receiverID int64) ([]*domain.FriendRequest, error) {
	return r.list(ctx, `
		SELECT `+friendColumns+` FROM friend_requests
		WHERE receiver_id = ? AND status = ?
		ORDER BY created_at DESC
	`, receiverID, domain.StatusPending)
}

func (r *FriendRepo) ListAcceptedForUser(ctx context.Context, userID int64) ([]*domain.FriendRequest, error) {
	return r.list(ctx, `
		SELECT `+friendColumns+` FROM friend_requests
		WHERE (sender_id = ? OR receiver_id = ?) AND status = ?
		ORDER BY created_at DESC
	`, userID, userID, domain.StatusAccepted)
}

func (r *FriendRepo) list(ctx context.Context, query string, args ...any) ([]*domain.FriendRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}
	defer rows.Close()

	var res []*domain.FriendRequest
	for rows.Next() {
		fr := &domain.FriendRequest{}
		if err := rows.Scan(&fr.ID, &fr.SenderID, &fr.ReceiverID, &fr.Status, &fr.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan friend request: %w", err)
		}
		res = append(res, fr)
	}
	return res, rows.Err()
}

func scanFriend(row *sql.Row) (*domain.FriendRequest, error) {
	fr := &domain.FriendRequest{}
	err := row.Scan(&fr.ID, &fr.SenderID, &fr.ReceiverID, &fr.Status, &fr.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan friend request: %w", err)
	}
	return fr, nil
}
