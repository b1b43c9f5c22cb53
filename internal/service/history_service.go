package service

import (
	"context"
	"fmt"

	"socialchat/internal/domain"
	"socialchat/internal/security"
)

// HistoryPage is one page of conversation history in chronological order.
// NextCursor is the id to pass back for the next (older) page.
type HistoryPage struct {
	Messages   []*domain.Message `json:"messages"`
	NextCursor *int64            `json:"nextCursor"`
	HasMore    bool              `json:"hasMore"`
}

// HistoryService serves cursor-paginated conversation history, read-only.
// Authorization mirrors the gate: direct history needs an ACCEPTED friend
// link, group history an ACCEPTED membership.
type HistoryService struct {
	friends   domain.FriendRepository
	groups    domain.GroupRepository
	messages  domain.MessageRepository
	encryptor *security.Encryptor

	DefaultLimit int
	MaxLimit     int
}

func NewHistoryService(
	friends domain.FriendRepository,
	groups domain.GroupRepository,
	messages domain.MessageRepository,
	encryptor *security.Encryptor,
	defaultLimit, maxLimit int,
) *HistoryService {
	return &HistoryService{
		friends:      friends,
		groups:       groups,
		messages:     messages,
		encryptor:    encryptor,
		DefaultLimit: defaultLimit,
		MaxLimit:     maxLimit,
	}
}

// DirectPage pages the conversation between userID and otherUserID. A zero
// cursor starts at the newest message; otherwise the cursor id is exclusive.
func (s *HistoryService) DirectPage(ctx context.Context, userID, otherUserID, cursor int64, limit int) (*HistoryPage, error) {
	link, err := s.friends.FindBetween(ctx, userID, otherUserID)
	if err != nil {
		return nil, fmt.Errorf("find friend link: %w", err)
	}
	if link == nil || link.Status != domain.StatusAccepted {
		return nil, fmt.Errorf("you can only view history with accepted friends: %w", domain.ErrForbidden)
	}

	limit = s.clampLimit(limit)
	msgs, err := s.messages.ListDirectPage(ctx, userID, otherUserID, cursor, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list direct page: %w", err)
	}
	s.decryptAll(msgs)
	return buildPage(msgs, limit), nil
}

// GroupPage pages a group's history for an accepted member.
func (s *HistoryService) GroupPage(ctx context.Context, userID, groupID, cursor int64, limit int) (*HistoryPage, error) {
	m, err := s.groups.GetMembership(ctx, groupID, userID)
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	if m == nil || m.Status != domain.StatusAccepted {
		return nil, fmt.Errorf("you must be a member of this group: %w", domain.ErrForbidden)
	}

	limit = s.clampLimit(limit)
	msgs, err := s.messages.ListGroupPage(ctx, groupID, cursor, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list group page: %w", err)
	}
	s.decryptAll(msgs)
	return buildPage(msgs, limit), nil
}

// decryptAll replaces stored ciphertext with plaintext. Rows written before
// encryption was enabled fail to decrypt and are returned as stored.
func (s *HistoryService) decryptAll(msgs []*domain.Message) {
	for _, m := range msgs {
		if dec, err := s.encryptor.Decrypt(m.Content); err == nil {
			m.Content = dec
		}
	}
}

func (s *HistoryService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.DefaultLimit
	}
	if limit > s.MaxLimit {
		return s.MaxLimit
	}
	return limit
}

// buildPage takes the newest-first over-fetch of limit+1 rows, derives
// hasMore, trims, records the oldest trimmed id as the next cursor, and
// reverses into chronological order.
func buildPage(msgs []*domain.Message, limit int) *HistoryPage {
	page := &HistoryPage{HasMore: len(msgs) > limit}
	if page.HasMore {
		msgs = msgs[:limit]
	}
	if page.HasMore && len(msgs) > 0 {
		cursor := msgs[len(msgs)-1].ID
		page.NextCursor = &cursor
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	page.Messages = msgs
	if page.Messages == nil {
		page.Messages = []*domain.Message{}
	}
	return page
}
