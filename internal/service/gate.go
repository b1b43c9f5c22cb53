package service

import (
	"context"
	"fmt"
	"log"

	"socialchat/internal/domain"
)

// AuthorizationGate decides whether a sender may message a direct peer or a
// group. Relationship state is read from the store on every call and never
// cached across messages: friendships, blocks and memberships can all change
// between two sends.
type AuthorizationGate struct {
	friends domain.FriendRepository
	blocks  domain.BlockRepository
	groups  domain.GroupRepository
}

func NewAuthorizationGate(
	friends domain.FriendRepository,
	blocks domain.BlockRepository,
	groups domain.GroupRepository,
) *AuthorizationGate {
	return &AuthorizationGate{
		friends: friends,
		blocks:  blocks,
		groups:  groups,
	}
}

// AuthorizeDirect allows a direct message only between distinct users with
// an ACCEPTED friend link in either stored direction and no block in either
// direction.
func (g *AuthorizationGate) AuthorizeDirect(ctx context.Context, senderID, receiverID int64) error {
	if senderID == receiverID {
		return fmt.Errorf("cannot message yourself: %w", domain.ErrForbidden)
	}

	link, err := g.friends.FindBetween(ctx, senderID, receiverID)
	if err != nil {
		return fmt.Errorf("find friend link: %w", err)
	}
	if link == nil || link.Status != domain.StatusAccepted {
		log.Printf("gate: denied direct %d -> %d: not friends", senderID, receiverID)
		return fmt.Errorf("you must be friends to chat: %w", domain.ErrForbidden)
	}

	blocked, err := g.blocks.ExistsBetween(ctx, senderID, receiverID)
	if err != nil {
		return fmt.Errorf("check blocks: %w", err)
	}
	if blocked {
		log.Printf("gate: denied direct %d -> %d: blocked", senderID, receiverID)
		return fmt.Errorf("message blocked: %w", domain.ErrForbidden)
	}

	return nil
}

// AuthorizeGroup allows a group message only for an ACCEPTED membership.
func (g *AuthorizationGate) AuthorizeGroup(ctx context.Context, senderID, groupID int64) error {
	m, err := g.groups.GetMembership(ctx, groupID, senderID)
	if err != nil {
		return fmt.Errorf("get membership: %w", err)
	}
	if m == nil || m.Status != domain.StatusAccepted {
		log.Printf("gate: denied group %d -> %d: not a member", senderID, groupID)
		return fmt.Errorf("you are not a member of this group: %w", domain.ErrForbidden)
	}
	return nil
}
