package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"socialchat/internal/domain"
)

type GroupRepo struct {
	db *sql.DB
}

func NewGroupRepo(db *sql.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

var _ domain.GroupRepository = (*GroupRepo)(nil)

func (r *GroupRepo) Create(ctx context.Context, g *domain.Group) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO groups (name, description, admin_id, created_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	`, g.Name, g.Description, g.AdminID)
	if err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	g.ID = id
	return nil
}

func (r *GroupRepo) GetByID(ctx context.Context, id int64) (*domain.Group, error) {
	g := &domain.Group{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, admin_id, created_at FROM groups WHERE id = ?
	`, id).Scan(&g.ID, &g.Name, &g.Description, &g.AdminID, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

func (r *GroupRepo) AddMember(ctx context.Context, m *domain.GroupMember) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO group_members (group_id, user_id, status, is_admin, joined_at)
		VALUES (?, ?, ?, ?, ?)
	`, m.GroupID, m.UserID, m.Status, m.IsAdmin, m.JoinedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert group member: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	m.ID = id
	return nil
}

func (r *GroupRepo) GetMembership(ctx context.Context, groupID, userID int64) (*domain.GroupMember, error) {
	m := &domain.GroupMember{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, group_id, user_id, status, is_admin, joined_at
		FROM group_members WHERE group_id = ? AND user_id = ?
	`, groupID, userID).Scan(&m.ID, &m.GroupID, &m.UserID, &m.Status, &m.IsAdmin, &m.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

func (r *GroupRepo) UpdateMembershipStatus(ctx context.Context, membershipID int64, status string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE group_members SET status = ?, joined_at = CURRENT_TIMESTAMP WHERE id = ?
	`, status, membershipID)
	if err != nil {
		return fmt.Errorf("update membership: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GroupRepo) RemoveMembership(ctx context.Context, membershipID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM group_members WHERE id = ?`, membershipID); err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	return nil
}

func (r *GroupRepo) ListAcceptedMemberIDs(ctx context.Context, groupID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM group_members WHERE group_id = ? AND status = ?
	`, groupID, domain.StatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("list member ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *GroupRepo) ListGroupsForUser(ctx context.Context, userID int64) ([]*domain.Group, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT g.id, g.name, g.description, g.admin_id, g.created_at
		FROM groups g
		JOIN group_members m ON m.group_id = g.id
		WHERE m.user_id = ? AND m.status = ?
		ORDER BY g.created_at DESC
	`, userID, domain.StatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var res []*domain.Group
	for rows.Next() {
		g := &domain.Group{}
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.AdminID, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		res = append(res, g)
	}
	return res, rows.Err()
}

func (r *GroupRepo) ListPendingInvites(ctx context.Context, userID int64) ([]*domain.GroupMember, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, group_id, user_id, status, is_admin, joined_at
		FROM group_members WHERE user_id = ? AND status = ?
	`, userID, domain.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	defer rows.Close()

	var res []*domain.GroupMember
	for rows.Next() {
		m := &domain.GroupMember{}
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Status, &m.IsAdmin, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
