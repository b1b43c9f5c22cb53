package ws

import "encoding/json"

// ClientEvent is the inbound wire envelope. The event name selects which
// payload struct Data decodes into; unknown names are rejected.
type ClientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ServerEvent is the outbound wire envelope.
type ServerEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type JoinPayload struct {
	UserID int64 `json:"userId"`
}

type JoinGroupRoomsPayload struct {
	GroupIDs []int64 `json:"groupIds"`
}

type TypingPayload struct {
	SenderID   int64  `json:"senderId"`
	ReceiverID *int64 `json:"receiverId,omitempty"`
	GroupID    *int64 `json:"groupId,omitempty"`
	Username   string `json:"username"`
	IsTyping   bool   `json:"isTyping"`
}

type SendMessagePayload struct {
	SenderID   int64  `json:"senderId"`
	ReceiverID *int64 `json:"receiverId,omitempty"`
	GroupID    *int64 `json:"groupId,omitempty"`
	Content    string `json:"content"`
}

type EditMessagePayload struct {
	MessageID int64  `json:"messageId"`
	SenderID  int64  `json:"senderId"`
	Content   string `json:"content"`
}

type DeleteMessagePayload struct {
	MessageID int64 `json:"messageId"`
	SenderID  int64 `json:"senderId"`
}

type MarkAsReadPayload struct {
	MessageID int64 `json:"messageId"`
	SenderID  int64 `json:"senderId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
