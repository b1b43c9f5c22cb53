package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"socialchat/internal/domain"
	"socialchat/internal/metrics"
	"socialchat/internal/security"
	"socialchat/internal/service"
)

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

func extractToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		if token := strings.TrimSpace(authHeader[len("Bearer "):]); token != "" {
			return token
		}
	}

	// Browser clients cannot set Authorization on the upgrade request and
	// smuggle the token through the subprotocol list instead.
	protocolHeader := r.Header.Get("Sec-WebSocket-Protocol")
	if protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}

	return ""
}

// HandlerOptions configures MakeHandler.
type HandlerOptions struct {
	AllowedOrigins []string
	// Token bucket per connection; zero values disable limiting.
	EventRatePerSecond float64
	EventBurst         int
}

// MakeHandler returns the HTTP handler for the /ws endpoint. The bearer
// token (Authorization header or Sec-WebSocket-Protocol) carries the
// verified user id; after the upgrade, events are decoded into their typed
// payloads and routed by name:
//   - join            -> add connection to the user's personal room
//   - joinGroupRooms  -> add connection to each group room
//   - typing          -> rebroadcast as userTyping to the target room
//   - sendMessage     -> MessageService.Send (persist + fan out)
//   - editMessage     -> MessageService.Edit + messageEdited broadcast
//   - deleteMessage   -> MessageService.Delete + messageDeleted broadcast
//   - markAsRead      -> MessageService.MarkRead + messageStatusUpdate
func MakeHandler(
	reg *Registry,
	tokens *security.TokenService,
	users domain.UserRepository,
	msgSvc *service.MessageService,
	opts HandlerOptions,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(opts.AllowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin:  checkOrigin,
		Subprotocols: []string{"bearer"},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		tokenStr := extractToken(r)
		if tokenStr == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		userID, err := tokens.ParseUserID(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		user, err := users.GetByID(r.Context(), userID)
		if err != nil || user == nil {
			http.Error(w, "user not found", http.StatusUnauthorized)
			return
		}

		sock, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer sock.Close()

		conn := NewConn(user.ID, sock)
		metrics.ConnectionsActive.Inc()
		defer func() {
			// Leave must run before the handler returns so no broadcast
			// can observe a dangling membership for this connection.
			reg.Leave(conn)
			metrics.ConnectionsActive.Dec()
			if err := users.TouchLastSeen(context.Background(), user.ID); err != nil {
				log.Printf("ws: touch last seen for %d: %v", user.ID, err)
			}
		}()

		var limiter *rate.Limiter
		if opts.EventRatePerSecond > 0 && opts.EventBurst > 0 {
			limiter = rate.NewLimiter(rate.Limit(opts.EventRatePerSecond), opts.EventBurst)
		}

		// The connection outlives the upgrade request, so events must not
		// run on r.Context(): any deadline on it (Timeout middleware,
		// server-wide request timeouts) would expire mid-session and fail
		// every later event on a healthy socket.
		ctx := context.Background()

		for {
			var ev ClientEvent
			if err := sock.ReadJSON(&ev); err != nil {
				break
			}
			if limiter != nil && !limiter.Allow() {
				sendError(conn, "too many events, slow down")
				continue
			}
			routeEvent(ctx, reg, msgSvc, conn, user, ev)
		}
	}
}

func routeEvent(
	ctx context.Context,
	reg *Registry,
	msgSvc *service.MessageService,
	conn *Conn,
	user *domain.User,
	ev ClientEvent,
) {
	switch ev.Event {

	case domain.EvtJoin:
		var p JoinPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			sendError(conn, "malformed join payload")
			return
		}
		// The socket is already authenticated; a join for someone else's
		// room is rejected rather than trusted.
		if p.UserID != 0 && p.UserID != user.ID {
			sendError(conn, "cannot join another user's room")
			return
		}
		reg.Join(user.ID, conn)

	case domain.EvtJoinGroupRooms:
		var p JoinGroupRoomsPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			sendError(conn, "malformed joinGroupRooms payload")
			return
		}
		reg.JoinGroupRooms(conn, p.GroupIDs)

	case domain.EvtTyping:
		var p TypingPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			sendError(conn, "malformed typing payload")
			return
		}
		p.SenderID = user.ID
		p.Username = user.Username
		switch {
		case p.GroupID != nil:
			reg.BroadcastExcept(domain.GroupRoom(*p.GroupID), conn, domain.EvtUserTyping, p)
		case p.ReceiverID != nil:
			reg.Broadcast(domain.UserRoom(*p.ReceiverID), domain.EvtUserTyping, p)
		}

	case domain.EvtSendMessage:
		var p SendMessagePayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			sendError(conn, "malformed sendMessage payload")
			return
		}
		if _, err := msgSvc.Send(ctx, user.ID, p.ReceiverID, p.GroupID, p.Content); err != nil {
			log.Printf("ws: sendMessage from %d: %v", user.ID, err)
			sendError(conn, userFacing(err, "failed to send message"))
		}

	case domain.EvtEditMessage:
		var p EditMessagePayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			sendError(conn, "malformed editMessage payload")
			return
		}
		if _, err := msgSvc.Edit(ctx, user.ID, p.MessageID, p.Content); err != nil {
			log.Printf("ws: editMessage %d from %d: %v", p.MessageID, user.ID, err)
			sendError(conn, userFacing(err, "failed to edit message"))
		}

	case domain.EvtDeleteMessage:
		var p DeleteMessagePayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			sendError(conn, "malformed deleteMessage payload")
			return
		}
		if err := msgSvc.Delete(ctx, user.ID, p.MessageID); err != nil {
			log.Printf("ws: deleteMessage %d from %d: %v", p.MessageID, user.ID, err)
			sendError(conn, userFacing(err, "failed to delete message"))
		}

	case domain.EvtMarkAsRead:
		var p MarkAsReadPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			sendError(conn, "malformed markAsRead payload")
			return
		}
		if err := msgSvc.MarkRead(ctx, p.MessageID); err != nil {
			log.Printf("ws: markAsRead %d from %d: %v", p.MessageID, user.ID, err)
			sendError(conn, userFacing(err, "failed to mark message as read"))
		}

	default:
		log.Printf("ws: unknown event %q from user %d", ev.Event, user.ID)
		sendError(conn, "unknown event")
	}
}

// userFacing keeps validation and authorization reasons visible to the
// offending sender and hides everything else behind a generic message.
func userFacing(err error, fallback string) string {
	for _, sentinel := range []error{
		domain.ErrInvalidInput, domain.ErrForbidden, domain.ErrNotFound, domain.ErrMessageDeleted,
	} {
		if errors.Is(err, sentinel) {
			return err.Error()
		}
	}
	return fallback
}

func sendError(conn *Conn, msg string) {
	_ = conn.Send(domain.EvtError, ErrorPayload{Message: msg})
}
