package domain

import "time"

// Relationship and membership statuses. Stored as plain strings.
const (
	StatusPending  = "PENDING"
	StatusAccepted = "ACCEPTED"
	StatusRejected = "REJECTED"
)

// DeletedPlaceholder replaces the content of a soft-deleted message. The
// original text is not retrievable afterwards.
const DeletedPlaceholder = "This message was deleted"

// User represents an application user. Identity is owned by the external
// auth collaborator; this system only reads the id, username and push token.
type User struct {
	ID        int64     `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Avatar    *string   `db:"avatar" json:"avatar,omitempty"`
	PushToken *string   `db:"push_token" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	LastSeen  time.Time `db:"last_seen" json:"last_seen"`
}

// FriendRequest is the single relationship record between two users. Once
// ACCEPTED the link is undirected: it authorizes messaging regardless of
// which side initiated. At most one row exists per unordered pair.
type FriendRequest struct {
	ID         int64     `db:"id" json:"id"`
	SenderID   int64     `db:"sender_id" json:"senderId"`
	ReceiverID int64     `db:"receiver_id" json:"receiverId"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// Block is directional; either direction between two users suppresses
// direct messaging.
type Block struct {
	ID        int64     `db:"id" json:"id"`
	BlockerID int64     `db:"blocker_id" json:"blockerId"`
	BlockedID int64     `db:"blocked_id" json:"blockedId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Group is a chat group created by a single admin user.
type Group struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	AdminID     int64     `db:"admin_id" json:"adminId"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// GroupMember binds a user to a group. Only ACCEPTED members may send or
// read group messages.
type GroupMember struct {
	ID       int64      `db:"id" json:"id"`
	GroupID  int64      `db:"group_id" json:"groupId"`
	UserID   int64      `db:"user_id" json:"userId"`
	Status   string     `db:"status" json:"status"`
	IsAdmin  bool       `db:"is_admin" json:"isAdmin"`
	JoinedAt *time.Time `db:"joined_at" json:"joinedAt,omitempty"`
}

// Message is a direct or group chat message. Exactly one of ReceiverID and
// GroupID is set. CreatedAt is server-assigned at persistence; the id is
// immutable and survives soft deletion so pagination cursors stay valid.
type Message struct {
	ID          int64     `db:"id" json:"id"`
	SenderID    int64     `db:"sender_id" json:"senderId"`
	ReceiverID  *int64    `db:"receiver_id" json:"receiverId,omitempty"`
	GroupID     *int64    `db:"group_id" json:"groupId,omitempty"`
	Content     string    `db:"content" json:"content"`
	IsDelivered bool      `db:"is_delivered" json:"isDelivered"`
	IsRead      bool      `db:"is_read" json:"isRead"`
	IsEdited    bool      `db:"is_edited" json:"isEdited"`
	IsDeleted   bool      `db:"is_deleted" json:"isDeleted"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}
