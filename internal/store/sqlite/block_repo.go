package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"socialchat/internal/domain"
)

type BlockRepo struct {
	db *sql.DB
}

func NewBlockRepo(db *sql.DB) *BlockRepo {
	return &BlockRepo{db: db}
}

var _ domain.BlockRepository = (*BlockRepo)(nil)

func (r *BlockRepo) Create(ctx context.Context, b *domain.Block) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO blocks (blocker_id, blocked_id, created_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
	`, b.BlockerID, b.BlockedID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert block: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	b.ID = id
	return nil
}

func (r *BlockRepo) ExistsBetween(ctx context.Context, userA, userB int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM blocks
		WHERE (blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)
	`, userA, userB, userB, userA).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count blocks: %w", err)
	}
	return n > 0, nil
}
