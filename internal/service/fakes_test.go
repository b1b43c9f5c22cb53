package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"socialchat/internal/domain"
)

// In-memory doubles for the repository and realtime ports, shared by the
// service tests.

type broadcastRecord struct {
	Room    string
	Event   string
	Payload any
}

type fakeBroadcaster struct {
	mu      sync.Mutex
	records []broadcastRecord
}

func (f *fakeBroadcaster) Broadcast(roomID, event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, broadcastRecord{Room: roomID, Event: event, Payload: payload})
}

func (f *fakeBroadcaster) RoomSize(roomID string) int { return 0 }

func (f *fakeBroadcaster) byEvent(event string) []broadcastRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []broadcastRecord
	for _, r := range f.records {
		if r.Event == event {
			res = append(res, r)
		}
	}
	return res
}

type fakePresence struct {
	online map[int64]bool
}

func (f *fakePresence) IsOnline(userID int64) bool { return f.online[userID] }

type dispatchCall struct {
	UserID int64
	Title  string
	Body   string
	Data   map[string]string
}

type fakeNotifier struct {
	calls chan dispatchCall
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{calls: make(chan dispatchCall, 16)}
}

func (f *fakeNotifier) Dispatch(ctx context.Context, userID int64, title, body string, data map[string]string) {
	f.calls <- dispatchCall{UserID: userID, Title: title, Body: body, Data: data}
}

type memUserRepo struct {
	mu    sync.Mutex
	seq   int64
	users map[int64]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[int64]*domain.User)}
}

func (r *memUserRepo) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	u.ID = r.seq
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memUserRepo) SetPushToken(ctx context.Context, id int64, token *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.PushToken = token
	}
	return nil
}

func (r *memUserRepo) TouchLastSeen(ctx context.Context, id int64) error { return nil }

type memFriendRepo struct {
	mu    sync.Mutex
	seq   int64
	links map[int64]*domain.FriendRequest
}

func newMemFriendRepo() *memFriendRepo {
	return &memFriendRepo{links: make(map[int64]*domain.FriendRequest)}
}

func (r *memFriendRepo) Create(ctx context.Context, fr *domain.FriendRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.links {
		if (l.SenderID == fr.SenderID && l.ReceiverID == fr.ReceiverID) ||
			(l.SenderID == fr.ReceiverID && l.ReceiverID == fr.SenderID) {
			return domain.ErrConflict
		}
	}
	r.seq++
	fr.ID = r.seq
	fr.CreatedAt = time.Now()
	cp := *fr
	r.links[fr.ID] = &cp
	return nil
}

func (r *memFriendRepo) GetByID(ctx context.Context, id int64) (*domain.FriendRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fr, ok := r.links[id]
	if !ok {
		return nil, nil
	}
	cp := *fr
	return &cp, nil
}

func (r *memFriendRepo) FindBetween(ctx context.Context, userA, userB int64) (*domain.FriendRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.links {
		if (l.SenderID == userA && l.ReceiverID == userB) ||
			(l.SenderID == userB && l.ReceiverID == userA) {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memFriendRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fr, ok := r.links[id]
	if !ok {
		return domain.ErrNotFound
	}
	fr.Status = status
	return nil
}

func (r *memFriendRepo) ListPendingForReceiver(ctx context.Context, receiverID int64) ([]*domain.FriendRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*domain.FriendRequest
	for _, l := range r.links {
		if l.ReceiverID == receiverID && l.Status == domain.StatusPending {
			cp := *l
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (r *memFriendRepo) ListAcceptedForUser(ctx context.Context, userID int64) ([]*domain.FriendRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*domain.FriendRequest
	for _, l := range r.links {
		if (l.SenderID == userID || l.ReceiverID == userID) && l.Status == domain.StatusAccepted {
			cp := *l
			res = append(res, &cp)
		}
	}
	return res, nil
}

type memBlockRepo struct {
	mu     sync.Mutex
	seq    int64
	blocks []*domain.Block
}

func newMemBlockRepo() *memBlockRepo { return &memBlockRepo{} }

func (r *memBlockRepo) Create(ctx context.Context, b *domain.Block) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	b.ID = r.seq
	cp := *b
	r.blocks = append(r.blocks, &cp)
	return nil
}

func (r *memBlockRepo) ExistsBetween(ctx context.Context, userA, userB int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.blocks {
		if (b.BlockerID == userA && b.BlockedID == userB) ||
			(b.BlockerID == userB && b.BlockedID == userA) {
			return true, nil
		}
	}
	return false, nil
}

type memGroupRepo struct {
	mu        sync.Mutex
	groupSeq  int64
	memberSeq int64
	groups    map[int64]*domain.Group
	members   map[int64]*domain.GroupMember
}

func newMemGroupRepo() *memGroupRepo {
	return &memGroupRepo{
		groups:  make(map[int64]*domain.Group),
		members: make(map[int64]*domain.GroupMember),
	}
}

func (r *memGroupRepo) Create(ctx context.Context, g *domain.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groupSeq++
	g.ID = r.groupSeq
	cp := *g
	r.groups[g.ID] = &cp
	return nil
}

func (r *memGroupRepo) GetByID(ctx context.Context, id int64) (*domain.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (r *memGroupRepo) AddMember(ctx context.Context, m *domain.GroupMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.members {
		if existing.GroupID == m.GroupID && existing.UserID == m.UserID {
			return domain.ErrConflict
		}
	}
	r.memberSeq++
	m.ID = r.memberSeq
	cp := *m
	r.members[m.ID] = &cp
	return nil
}

func (r *memGroupRepo) GetMembership(ctx context.Context, groupID, userID int64) (*domain.GroupMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.GroupID == groupID && m.UserID == userID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memGroupRepo) UpdateMembershipStatus(ctx context.Context, membershipID int64, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[membershipID]
	if !ok {
		return domain.ErrNotFound
	}
	m.Status = status
	return nil
}

func (r *memGroupRepo) RemoveMembership(ctx context.Context, membershipID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, membershipID)
	return nil
}

func (r *memGroupRepo) ListAcceptedMemberIDs(ctx context.Context, groupID int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int64
	for _, m := range r.members {
		if m.GroupID == groupID && m.Status == domain.StatusAccepted {
			ids = append(ids, m.UserID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *memGroupRepo) ListGroupsForUser(ctx context.Context, userID int64) ([]*domain.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*domain.Group
	for _, m := range r.members {
		if m.UserID == userID && m.Status == domain.StatusAccepted {
			if g, ok := r.groups[m.GroupID]; ok {
				cp := *g
				res = append(res, &cp)
			}
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *memGroupRepo) ListPendingInvites(ctx context.Context, userID int64) ([]*domain.GroupMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*domain.GroupMember
	for _, m := range r.members {
		if m.UserID == userID && m.Status == domain.StatusPending {
			cp := *m
			res = append(res, &cp)
		}
	}
	return res, nil
}

type memMessageRepo struct {
	mu   sync.Mutex
	seq  int64
	msgs map[int64]*domain.Message
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{msgs: make(map[int64]*domain.Message)}
}

func (r *memMessageRepo) Create(ctx context.Context, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	m.ID = r.seq
	m.CreatedAt = time.Now().UTC()
	cp := *m
	r.msgs[m.ID] = &cp
	return nil
}

func (r *memMessageRepo) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memMessageRepo) UpdateContent(ctx context.Context, id int64, content string, isEdited, isDeleted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.Content = content
	m.IsEdited = isEdited
	m.IsDeleted = isDeleted
	return nil
}

func (r *memMessageRepo) MarkRead(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.IsRead = true
	m.IsDelivered = true
	return nil
}

func (r *memMessageRepo) MarkReadBatch(ctx context.Context, ids []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if m, ok := r.msgs[id]; ok {
			m.IsRead = true
			m.IsDelivered = true
		}
	}
	return nil
}

func (r *memMessageRepo) ListDirectPage(ctx context.Context, userA, userB, cursor int64, limit int) ([]*domain.Message, error) {
	return r.listPage(func(m *domain.Message) bool {
		if m.ReceiverID == nil {
			return false
		}
		return (m.SenderID == userA && *m.ReceiverID == userB) ||
			(m.SenderID == userB && *m.ReceiverID == userA)
	}, cursor, limit)
}

func (r *memMessageRepo) ListGroupPage(ctx context.Context, groupID, cursor int64, limit int) ([]*domain.Message, error) {
	return r.listPage(func(m *domain.Message) bool {
		return m.GroupID != nil && *m.GroupID == groupID
	}, cursor, limit)
}

func (r *memMessageRepo) listPage(match func(*domain.Message) bool, cursor int64, limit int) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*domain.Message
	for _, m := range r.msgs {
		if match(m) && (cursor == 0 || m.ID < cursor) {
			cp := *m
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}
