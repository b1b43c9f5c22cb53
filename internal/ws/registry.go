package ws

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"socialchat/internal/domain"
)

// eventWriter is the transport side of a connection. *websocket.Conn
// satisfies it; tests substitute an in-memory recorder.
type eventWriter interface {
	WriteJSON(v any) error
	Close() error
}

// Conn is one live transport session bound to a single user. A connection
// may belong to several rooms: its own user room plus any group rooms it
// joined. Writes are serialized per connection.
type Conn struct {
	ID     string
	UserID int64

	mu   sync.Mutex
	sock eventWriter
}

// NewConn wraps a transport connection for the given user.
func NewConn(userID int64, sock eventWriter) *Conn {
	return &Conn{
		ID:     uuid.NewString(),
		UserID: userID,
		sock:   sock,
	}
}

// Send writes one event to this connection.
func (c *Conn) Send(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sock.WriteJSON(ServerEvent{Event: event, Data: payload})
}

// Registry tracks which users have live connections and which rooms each
// connection has joined. State is purely in-memory and process-local; it
// lives for the server process and resets on restart.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[*Conn]struct{}
	conns map[*Conn]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[*Conn]struct{}),
		conns: make(map[*Conn]map[string]struct{}),
	}
}

// Join adds the connection to its user's personal room.
func (r *Registry) Join(userID int64, c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.add(domain.UserRoom(userID), c)
}

// JoinGroupRooms adds the connection to each group room. Membership is not
// validated here; the authorization gate runs at message time.
func (r *Registry) JoinGroupRooms(c *Conn, groupIDs []int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range groupIDs {
		r.add(domain.GroupRoom(id), c)
	}
}

func (r *Registry) add(roomID string, c *Conn) {
	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[*Conn]struct{})
	}
	r.rooms[roomID][c] = struct{}{}
	if r.conns[c] == nil {
		r.conns[c] = make(map[string]struct{})
	}
	r.conns[c][roomID] = struct{}{}
}

// Leave removes the connection from every room it belongs to. Emptying a
// user's personal room is what makes that user offline.
func (r *Registry) Leave(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for roomID := range r.conns[c] {
		delete(r.rooms[roomID], c)
		if len(r.rooms[roomID]) == 0 {
			delete(r.rooms, roomID)
		}
	}
	delete(r.conns, c)
}

// RoomSize returns the number of live connections in the room.
func (r *Registry) RoomSize(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}

// Broadcast delivers the event to every live connection in the room. An
// empty room is a no-op. A failed write closes that connection but does not
// abort delivery to the others.
func (r *Registry) Broadcast(roomID, event string, payload any) {
	r.broadcast(roomID, nil, event, payload)
}

// BroadcastExcept is Broadcast minus one connection, used for typing
// indicators in group rooms where the sender's own socket is skipped.
func (r *Registry) BroadcastExcept(roomID string, except *Conn, event string, payload any) {
	r.broadcast(roomID, except, event, payload)
}

func (r *Registry) broadcast(roomID string, except *Conn, event string, payload any) {
	r.mu.RLock()
	conns := make([]*Conn, 0, len(r.rooms[roomID]))
	for c := range r.rooms[roomID] {
		if c != except {
			conns = append(conns, c)
		}
	}
	r.mu.RUnlock()

	for _, c := range conns {
		if err := c.Send(event, payload); err != nil {
			log.Printf("ws: broadcast %s to conn %s: %v", event, c.ID, err)
			c.sock.Close()
			// stale conns are fully removed when their read loop exits
		}
	}
}

// Presence derives online state from the registry: a user is online while
// their personal room has at least one live connection. This is a
// point-in-time sample, not a subscription.
type Presence struct {
	reg *Registry
}

func NewPresence(reg *Registry) *Presence {
	return &Presence{reg: reg}
}

func (p *Presence) IsOnline(userID int64) bool {
	return p.reg.RoomSize(domain.UserRoom(userID)) > 0
}
