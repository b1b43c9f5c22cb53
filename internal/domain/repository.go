package domain

import (
	"context"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	SetPushToken(ctx context.Context, id int64, token *string) error
	TouchLastSeen(ctx context.Context, id int64) error
}

// FriendRepository defines persistence operations for friend requests.
// A pair of users has at most one row regardless of direction.
type FriendRepository interface {
	Create(ctx context.Context, fr *FriendRequest) error
	GetByID(ctx context.Context, id int64) (*FriendRequest, error)
	// FindBetween returns the single link between the two users in either
	// stored direction, or nil when none exists.
	FindBetween(ctx context.Context, userA, userB int64) (*FriendRequest, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	ListPendingForReceiver(ctx context.Context, receiverID int64) ([]*FriendRequest, error)
	ListAcceptedForUser(ctx context.Context, userID int64) ([]*FriendRequest, error)
}

// BlockRepository defines persistence operations for blocks.
type BlockRepository interface {
	Create(ctx context.Context, b *Block) error
	// ExistsBetween reports whether a block exists in either direction.
	ExistsBetween(ctx context.Context, userA, userB int64) (bool, error)
}

// GroupRepository defines persistence operations for groups and memberships.
type GroupRepository interface {
	Create(ctx context.Context, g *Group) error
	GetByID(ctx context.Context, id int64) (*Group, error)
	AddMember(ctx context.Context, m *GroupMember) error
	GetMembership(ctx context.Context, groupID, userID int64) (*GroupMember, error)
	UpdateMembershipStatus(ctx context.Context, membershipID int64, status string) error
	RemoveMembership(ctx context.Context, membershipID int64) error
	// ListAcceptedMemberIDs returns user ids of all ACCEPTED members.
	ListAcceptedMemberIDs(ctx context.Context, groupID int64) ([]int64, error)
	ListGroupsForUser(ctx context.Context, userID int64) ([]*Group, error)
	ListPendingInvites(ctx context.Context, userID int64) ([]*GroupMember, error)
}

// MessageRepository defines persistence operations for messages. Create
// assigns the authoritative id and created-at; both are immutable afterwards.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id int64) (*Message, error)
	UpdateContent(ctx context.Context, id int64, content string, isEdited, isDeleted bool) error
	MarkRead(ctx context.Context, id int64) error
	MarkReadBatch(ctx context.Context, ids []int64) error
	// ListDirectPage returns up to limit messages between the two users,
	// newest first, starting strictly after the cursor id when cursor > 0.
	ListDirectPage(ctx context.Context, userA, userB, cursor int64, limit int) ([]*Message, error)
	ListGroupPage(ctx context.Context, groupID, cursor int64, limit int) ([]*Message, error)
}
