package service

import "context"

// Broadcaster is the slice of the connection registry the services need:
// room-addressed fan-out and room occupancy. Implemented by ws.Registry.
type Broadcaster interface {
	Broadcast(roomID, event string, payload any)
	RoomSize(roomID string) int
}

// PresenceDetector reports whether a user has at least one live connection
// right now. The sample decides the initial delivery flag at persist time;
// it is not a subscription.
type PresenceDetector interface {
	IsOnline(userID int64) bool
}

// Notifier sends a best-effort push to a user. Implementations never return
// an error: notification failure must not fail a send that already
// succeeded. Implemented by notify.Dispatcher.
type Notifier interface {
	Dispatch(ctx context.Context, userID int64, title, body string, data map[string]string)
}
