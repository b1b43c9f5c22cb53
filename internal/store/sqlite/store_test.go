package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialchat/internal/domain"
)

// A single connection keeps the in-memory database (and the foreign-key
// pragma) alive across all statements.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *sql.DB, username string) int64 {
	t.Helper()
	u := &domain.User{Username: username}
	require.NoError(t, NewUserRepo(db).Create(context.Background(), u))
	return u.ID
}

func seedGroup(t *testing.T, db *sql.DB, adminID int64, name string) int64 {
	t.Helper()
	g := &domain.Group{Name: name, AdminID: adminID}
	require.NoError(t, NewGroupRepo(db).Create(context.Background(), g))
	return g.ID
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, Migrate(db))
}

func TestUserRepoRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	id := seedUser(t, db, "alice")

	u, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Nil(t, u.PushToken)
	assert.False(t, u.CreatedAt.IsZero())

	byName, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, byName.ID)

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	token := "ExponentPushToken[abc]"
	require.NoError(t, repo.SetPushToken(ctx, id, &token))
	u, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, u.PushToken)
	assert.Equal(t, token, *u.PushToken)

	require.NoError(t, repo.TouchLastSeen(ctx, id))
}

func TestFriendRepoOneLinkPerPair(t *testing.T) {
	db := newTestDB(t)
	repo := NewFriendRepo(db)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	fr := &domain.FriendRequest{SenderID: alice, ReceiverID: bob, Status: domain.StatusPending}
	require.NoError(t, repo.Create(ctx, fr))
	assert.NotZero(t, fr.ID)

	// the reversed direction hits the same unique pair index
	dup := &domain.FriendRequest{SenderID: bob, ReceiverID: alice, Status: domain.StatusPending}
	assert.ErrorIs(t, repo.Create(ctx, dup), domain.ErrConflict)

	found, err := repo.FindBetween(ctx, bob, alice)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, fr.ID, found.ID)

	missing, err := repo.FindBetween(ctx, alice, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFriendRepoStatusAndLists(t *testing.T) {
	db := newTestDB(t)
	repo := NewFriendRepo(db)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	cara := seedUser(t, db, "cara")

	toBob := &domain.FriendRequest{SenderID: alice, ReceiverID: bob, Status: domain.StatusPending}
	require.NoError(t, repo.Create(ctx, toBob))
	fromCara := &domain.FriendRequest{SenderID: cara, ReceiverID: alice, Status: domain.StatusPending}
	require.NoError(t, repo.Create(ctx, fromCara))

	pending, err := repo.ListPendingForReceiver(ctx, alice)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, fromCara.ID, pending[0].ID)

	require.NoError(t, repo.UpdateStatus(ctx, fromCara.ID, domain.StatusAccepted))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, 999, domain.StatusAccepted), domain.ErrNotFound)

	accepted, err := repo.ListAcceptedForUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, domain.StatusAccepted, accepted[0].Status)

	got, err := repo.GetByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBlockRepoExistsBetween(t *testing.T) {
	db := newTestDB(t)
	repo := NewBlockRepo(db)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	cara := seedUser(t, db, "cara")

	require.NoError(t, repo.Create(ctx, &domain.Block{BlockerID: alice, BlockedID: bob}))

	for _, pair := range [][2]int64{{alice, bob}, {bob, alice}} {
		blocked, err := repo.ExistsBetween(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.True(t, blocked)
	}

	blocked, err := repo.ExistsBetween(ctx, alice, cara)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestGroupRepoMembershipLifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewGroupRepo(db)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	groupID := seedGroup(t, db, alice, "hikes")

	m := &domain.GroupMember{GroupID: groupID, UserID: bob, Status: domain.StatusPending}
	require.NoError(t, repo.AddMember(ctx, m))
	assert.ErrorIs(t, repo.AddMember(ctx, &domain.GroupMember{GroupID: groupID, UserID: bob}), domain.ErrConflict)

	invites, err := repo.ListPendingInvites(ctx, bob)
	require.NoError(t, err)
	require.Len(t, invites, 1)

	// pending members are not counted
	ids, err := repo.ListAcceptedMemberIDs(ctx, groupID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, repo.UpdateMembershipStatus(ctx, m.ID, domain.StatusAccepted))
	ids, err = repo.ListAcceptedMemberIDs(ctx, groupID)
	require.NoError(t, err)
	assert.Equal(t, []int64{bob}, ids)

	groups, err := repo.ListGroupsForUser(ctx, bob)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "hikes", groups[0].Name)

	require.NoError(t, repo.RemoveMembership(ctx, m.ID))
	stored, err := repo.GetMembership(ctx, groupID, bob)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestMessageRepoRejectsAmbiguousTarget(t *testing.T) {
	db := newTestDB(t)
	repo := NewMessageRepo(db)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	groupID := seedGroup(t, db, alice, "hikes")

	err := repo.Create(ctx, &domain.Message{SenderID: alice, Content: "no target"})
	assert.Error(t, err)

	err = repo.Create(ctx, &domain.Message{SenderID: alice, ReceiverID: &bob, GroupID: &groupID, Content: "both"})
	assert.Error(t, err)
}

func TestMessageRepoCursorPaging(t *testing.T) {
	db := newTestDB(t)
	repo := NewMessageRepo(db)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	cara := seedUser(t, db, "cara")

	var ids []int64
	for i := 0; i < 7; i++ {
		m := &domain.Message{SenderID: alice, ReceiverID: &bob, Content: fmt.Sprintf("m%d", i)}
		require.NoError(t, repo.Create(ctx, m))
		ids = append(ids, m.ID)
	}
	// noise in another conversation must not leak in
	require.NoError(t, repo.Create(ctx, &domain.Message{SenderID: alice, ReceiverID: &cara, Content: "other"}))

	page, err := repo.ListDirectPage(ctx, bob, alice, 0, 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, ids[6], page[0].ID)
	assert.Equal(t, ids[4], page[2].ID)

	next, err := repo.ListDirectPage(ctx, bob, alice, page[2].ID, 3)
	require.NoError(t, err)
	require.Len(t, next, 3)
	assert.Equal(t, ids[3], next[0].ID)
	assert.Equal(t, ids[1], next[2].ID)

	last, err := repo.ListDirectPage(ctx, bob, alice, next[2].ID, 3)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, ids[0], last[0].ID)
}

func TestMessageRepoGroupPaging(t *testing.T) {
	db := newTestDB(t)
	repo := NewMessageRepo(db)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	groupID := seedGroup(t, db, alice, "hikes")

	var ids []int64
	for i := 0; i < 4; i++ {
		m := &domain.Message{SenderID: alice, GroupID: &groupID, Content: fmt.Sprintf("g%d", i)}
		require.NoError(t, repo.Create(ctx, m))
		ids = append(ids, m.ID)
	}

	page, err := repo.ListGroupPage(ctx, groupID, 0, 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, ids[3], page[0].ID)

	rest, err := repo.ListGroupPage(ctx, groupID, page[2].ID, 3)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, ids[0], rest[0].ID)
}

func TestMessageRepoFlagsAndSoftDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewMessageRepo(db)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	m := &domain.Message{SenderID: alice, ReceiverID: &bob, Content: "hello"}
	require.NoError(t, repo.Create(ctx, m))

	require.NoError(t, repo.MarkRead(ctx, m.ID))
	require.NoError(t, repo.MarkRead(ctx, m.ID))
	stored, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsRead)
	assert.True(t, stored.IsDelivered)

	require.NoError(t, repo.UpdateContent(ctx, m.ID, domain.DeletedPlaceholder, false, true))
	stored, err = repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsDeleted)
	assert.Equal(t, domain.DeletedPlaceholder, stored.Content)
	assert.Equal(t, m.ID, stored.ID)

	assert.ErrorIs(t, repo.MarkRead(ctx, 999), domain.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateContent(ctx, 999, "x", true, false), domain.ErrNotFound)
}

func TestMessageRepoMarkReadBatch(t *testing.T) {
	db := newTestDB(t)
	repo := NewMessageRepo(db)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	var ids []int64
	for i := 0; i < 3; i++ {
		m := &domain.Message{SenderID: alice, ReceiverID: &bob, Content: fmt.Sprintf("m%d", i)}
		require.NoError(t, repo.Create(ctx, m))
		ids = append(ids, m.ID)
	}

	require.NoError(t, repo.MarkReadBatch(ctx, nil))
	require.NoError(t, repo.MarkReadBatch(ctx, ids[:2]))

	for i, id := range ids {
		stored, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, i < 2, stored.IsRead)
	}
}
