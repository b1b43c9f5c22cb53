package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"socialchat/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (username, avatar, push_token, created_at, last_seen)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, u.Username, u.Avatar, u.PushToken)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	u.ID = id
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, `SELECT id, username, avatar, push_token, created_at, last_seen FROM users WHERE id = ?`, id)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT id, username, avatar, push_token, created_at, last_seen FROM users WHERE username = ?`, username)
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	u := &domain.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.Avatar, &u.PushToken, &u.CreatedAt, &u.LastSeen,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *UserRepo) SetPushToken(ctx context.Context, id int64, token *string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET push_token = ? WHERE id = ?`, token, id); err != nil {
		return fmt.Errorf("set push token: %w", err)
	}
	return nil
}

func (r *UserRepo) TouchLastSeen(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_seen = CURRENT_TIMESTAMP WHERE id = ?`, id); err != nil {
		return fmt.Errorf("touch last seen: %w", err)
	}
	return nil
}
