package service

import (
	"context"
	"fmt"

	"socialchat/internal/domain"
)

// Pair statuses reported by PairStatus beyond the stored ones.
const (
	PairStatusNone            = "NONE"
	PairStatusPendingReceived = "PENDING_RECEIVED"
)

// PairStatus describes the relationship between the caller and another user.
type PairStatusResult struct {
	Status    string `json:"status"`
	RequestID *int64 `json:"requestId,omitempty"`
}

// FriendService owns the friend-request flow that feeds the authorization
// gate: requests are created PENDING and only the receiver may accept or
// reject them.
type FriendService struct {
	friends     domain.FriendRepository
	users       domain.UserRepository
	broadcaster Broadcaster
}

func NewFriendService(friends domain.FriendRepository, users domain.UserRepository, broadcaster Broadcaster) *FriendService {
	return &FriendService{
		friends:     friends,
		users:       users,
		broadcaster: broadcaster,
	}
}

// SendRequest creates a PENDING link and notifies the receiver's
// connections. At most one link may exist per pair, in either direction.
func (s *FriendService) SendRequest(ctx context.Context, senderID, receiverID int64) (*domain.FriendRequest, error) {
	if senderID == receiverID {
		return nil, fmt.Errorf("you cannot send a request to yourself: %w", domain.ErrInvalidInput)
	}
	if _, err := s.users.GetByID(ctx, receiverID); err != nil {
		return nil, fmt.Errorf("receiver: %w", err)
	}

	existing, err := s.friends.FindBetween(ctx, senderID, receiverID)
	if err != nil {
		return nil, fmt.Errorf("find existing request: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("a request already exists between these users: %w", domain.ErrConflict)
	}

	fr := &domain.FriendRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     domain.StatusPending,
	}
	if err := s.friends.Create(ctx, fr); err != nil {
		return nil, fmt.Errorf("create friend request: %w", err)
	}

	s.broadcaster.Broadcast(domain.UserRoom(receiverID), domain.EvtNewFriendRequest, fr)
	return fr, nil
}

// Respond accepts or rejects a pending request. Only the receiver may
// respond; anyone else sees not-found.
func (s *FriendService) Respond(ctx context.Context, callerID, requestID int64, status string) (*domain.FriendRequest, error) {
	if status != domain.StatusAccepted && status != domain.StatusRejected {
		return nil, fmt.Errorf("status must be ACCEPTED or REJECTED: %w", domain.ErrInvalidInput)
	}

	fr, err := s.friends.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("get friend request: %w", err)
	}
	if fr == nil || fr.ReceiverID != callerID {
		return nil, fmt.Errorf("request not found or unauthorized: %w", domain.ErrNotFound)
	}

	if err := s.friends.UpdateStatus(ctx, requestID, status); err != nil {
		return nil, fmt.Errorf("update friend request: %w", err)
	}
	fr.Status = status
	return fr, nil
}

// ListPending returns the caller's incoming pending requests.
func (s *FriendService) ListPending(ctx context.Context, userID int64) ([]*domain.FriendRequest, error) {
	return s.friends.ListPendingForReceiver(ctx, userID)
}

// ListFriends resolves each ACCEPTED link to the user on the other side.
func (s *FriendService) ListFriends(ctx context.Context, userID int64) ([]*domain.User, error) {
	links, err := s.friends.ListAcceptedForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list accepted links: %w", err)
	}

	friends := make([]*domain.User, 0, len(links))
	for _, link := range links {
		otherID := link.SenderID
		if otherID == userID {
			otherID = link.ReceiverID
		}
		u, err := s.users.GetByID(ctx, otherID)
		if err != nil {
			return nil, fmt.Errorf("get friend %d: %w", otherID, err)
		}
		friends = append(friends, u)
	}
	return friends, nil
}

// PairStatus reports the relationship state between the caller and another
// user, distinguishing a pending request the caller can still accept.
func (s *FriendService) PairStatus(ctx context.Context, userID, otherUserID int64) (*PairStatusResult, error) {
	fr, err := s.friends.FindBetween(ctx, userID, otherUserID)
	if err != nil {
		return nil, fmt.Errorf("find friend link: %w", err)
	}
	if fr == nil {
		return &PairStatusResult{Status: PairStatusNone}, nil
	}
	if fr.Status == domain.StatusPending && fr.ReceiverID == userID {
		return &PairStatusResult{Status: PairStatusPendingReceived, RequestID: &fr.ID}, nil
	}
	return &PairStatusResult{Status: fr.Status, RequestID: &fr.ID}, nil
}
