package service

import (
	"context"
	"fmt"
	"time"

	"socialchat/internal/domain"
)

// GroupInvitation is the groupInvitation payload sent to each invitee.
type GroupInvitation struct {
	GroupID   int64  `json:"groupId"`
	GroupName string `json:"groupName"`
	InvitedBy string `json:"invitedBy"`
}

// GroupService owns group creation and the invite flow. The creator becomes
// an ACCEPTED admin member immediately; invitees start PENDING and only
// authorize group messaging once they accept.
type GroupService struct {
	groups      domain.GroupRepository
	users       domain.UserRepository
	broadcaster Broadcaster
}

func NewGroupService(groups domain.GroupRepository, users domain.UserRepository, broadcaster Broadcaster) *GroupService {
	return &GroupService{
		groups:      groups,
		users:       users,
		broadcaster: broadcaster,
	}
}

type GroupCreateInput struct {
	Name        string
	Description *string
	MemberIDs   []int64
}

func (s *GroupService) Create(ctx context.Context, adminID int64, in GroupCreateInput) (*domain.Group, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("group name is required: %w", domain.ErrInvalidInput)
	}

	admin, err := s.users.GetByID(ctx, adminID)
	if err != nil {
		return nil, fmt.Errorf("get admin: %w", err)
	}

	g := &domain.Group{
		Name:        in.Name,
		Description: in.Description,
		AdminID:     adminID,
	}
	if err := s.groups.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}

	now := time.Now().UTC()
	if err := s.groups.AddMember(ctx, &domain.GroupMember{
		GroupID:  g.ID,
		UserID:   adminID,
		Status:   domain.StatusAccepted,
		IsAdmin:  true,
		JoinedAt: &now,
	}); err != nil {
		return nil, fmt.Errorf("add admin member: %w", err)
	}

	seen := map[int64]struct{}{adminID: {}}
	for _, userID := range in.MemberIDs {
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}
		if err := s.groups.AddMember(ctx, &domain.GroupMember{
			GroupID: g.ID,
			UserID:  userID,
			Status:  domain.StatusPending,
		}); err != nil {
			return nil, fmt.Errorf("invite member %d: %w", userID, err)
		}
		s.broadcaster.Broadcast(domain.UserRoom(userID), domain.EvtGroupInvitation, GroupInvitation{
			GroupID:   g.ID,
			GroupName: g.Name,
			InvitedBy: admin.Username,
		})
	}

	return g, nil
}

// MyGroups returns the groups the user is an accepted member of.
func (s *GroupService) MyGroups(ctx context.Context, userID int64) ([]*domain.Group, error) {
	return s.groups.ListGroupsForUser(ctx, userID)
}

// PendingInvites returns the user's pending group invitations.
func (s *GroupService) PendingInvites(ctx context.Context, userID int64) ([]*domain.GroupMember, error) {
	return s.groups.ListPendingInvites(ctx, userID)
}

// RespondInvite accepts or rejects a pending invite. Accepting flips the
// membership to ACCEPTED; rejecting removes the row entirely so the user
// can be re-invited later.
func (s *GroupService) RespondInvite(ctx context.Context, userID, groupID int64, status string) (*domain.GroupMember, error) {
	if status != domain.StatusAccepted && status != domain.StatusRejected {
		return nil, fmt.Errorf("status must be ACCEPTED or REJECTED: %w", domain.ErrInvalidInput)
	}

	m, err := s.groups.GetMembership(ctx, groupID, userID)
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("invitation not found: %w", domain.ErrNotFound)
	}

	if status == domain.StatusRejected {
		if err := s.groups.RemoveMembership(ctx, m.ID); err != nil {
			return nil, fmt.Errorf("remove membership: %w", err)
		}
		return nil, nil
	}

	if err := s.groups.UpdateMembershipStatus(ctx, m.ID, domain.StatusAccepted); err != nil {
		return nil, fmt.Errorf("accept invite: %w", err)
	}
	m.Status = domain.StatusAccepted
	return m, nil
}

// AcceptedGroupIDs lists the ids of the user's accepted groups, used by
// clients to join their group rooms after connecting.
func (s *GroupService) AcceptedGroupIDs(ctx context.Context, userID int64) ([]int64, error) {
	groups, err := s.groups.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}
	return ids, nil
}
