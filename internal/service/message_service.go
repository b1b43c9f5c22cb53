package service

import (
	"context"
	"fmt"
	"log"

	"socialchat/internal/domain"
	"socialchat/internal/metrics"
	"socialchat/internal/security"
)

// StatusUpdate is the messageStatusUpdate payload sent to a message's
// original sender.
type StatusUpdate struct {
	MessageID   int64 `json:"messageId"`
	IsDelivered bool  `json:"isDelivered"`
	IsRead      bool  `json:"isRead"`
}

// DeletedNotice is the messageDeleted payload; the scrubbed content is
// deliberately not included.
type DeletedNotice struct {
	MessageID int64 `json:"messageId"`
}

// MessageService owns the message lifecycle: create with authorization and
// presence-derived delivery status, edit, soft delete, and read receipts,
// each with its realtime fan-out and, for undelivered direct and offline
// group recipients, the notification fallback.
type MessageService struct {
	gate        *AuthorizationGate
	messages    domain.MessageRepository
	users       domain.UserRepository
	groups      domain.GroupRepository
	broadcaster Broadcaster
	presence    PresenceDetector
	notifier    Notifier
	encryptor   *security.Encryptor

	MaxContentLength int
}

func NewMessageService(
	gate *AuthorizationGate,
	messages domain.MessageRepository,
	users domain.UserRepository,
	groups domain.GroupRepository,
	broadcaster Broadcaster,
	presence PresenceDetector,
	notifier Notifier,
	encryptor *security.Encryptor,
	maxContentLength int,
) *MessageService {
	return &MessageService{
		gate:             gate,
		messages:         messages,
		users:            users,
		groups:           groups,
		broadcaster:      broadcaster,
		presence:         presence,
		notifier:         notifier,
		encryptor:        encryptor,
		MaxContentLength: maxContentLength,
	}
}

// Send validates and authorizes the message, persists it with a
// server-assigned timestamp, fans it out to the recipient room and the
// sender's own room, and falls back to a push notification for recipients
// that were offline at persist time. Nothing is persisted on denial.
func (s *MessageService) Send(ctx context.Context, senderID int64, receiverID, groupID *int64, content string) (*domain.Message, error) {
	if err := s.validateTarget(receiverID, groupID); err != nil {
		return nil, err
	}
	if err := s.validateContent(content); err != nil {
		return nil, err
	}

	if receiverID != nil {
		return s.sendDirect(ctx, senderID, *receiverID, content)
	}
	return s.sendGroup(ctx, senderID, *groupID, content)
}

func (s *MessageService) sendDirect(ctx context.Context, senderID, receiverID int64, content string) (*domain.Message, error) {
	if err := s.gate.AuthorizeDirect(ctx, senderID, receiverID); err != nil {
		metrics.MessagesDenied.Inc()
		return nil, err
	}

	// Presence is sampled here, before the write. If the receiver connects
	// between this sample and the broadcast they still get the message via
	// the room; only the persisted flag can read stale, and markAsRead is
	// the authoritative correction for history.
	delivered := s.presence.IsOnline(receiverID)

	encrypted, err := s.encryptor.Encrypt(content)
	if err != nil {
		return nil, fmt.Errorf("encrypt content: %w", err)
	}

	msg := &domain.Message{
		SenderID:    senderID,
		ReceiverID:  &receiverID,
		Content:     encrypted,
		IsDelivered: delivered,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	// Clients only ever see plaintext; the ciphertext stays in the store.
	msg.Content = content
	metrics.MessagesSent.WithLabelValues("direct").Inc()

	s.broadcaster.Broadcast(domain.UserRoom(receiverID), domain.EvtNewMessage, msg)
	s.broadcaster.Broadcast(domain.UserRoom(senderID), domain.EvtMessageSent, msg)

	if delivered {
		s.broadcaster.Broadcast(domain.UserRoom(senderID), domain.EvtMessageStatusUpdate, StatusUpdate{
			MessageID:   msg.ID,
			IsDelivered: true,
			IsRead:      false,
		})
	} else {
		go s.notifyDirect(senderID, receiverID, content)
	}

	return msg, nil
}

func (s *MessageService) sendGroup(ctx context.Context, senderID, groupID int64, content string) (*domain.Message, error) {
	if err := s.gate.AuthorizeGroup(ctx, senderID, groupID); err != nil {
		metrics.MessagesDenied.Inc()
		return nil, err
	}

	encrypted, err := s.encryptor.Encrypt(content)
	if err != nil {
		return nil, fmt.Errorf("encrypt content: %w", err)
	}

	msg := &domain.Message{
		SenderID: senderID,
		GroupID:  &groupID,
		Content:  encrypted,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	msg.Content = content
	metrics.MessagesSent.WithLabelValues("group").Inc()

	s.broadcaster.Broadcast(domain.GroupRoom(groupID), domain.EvtNewGroupMessage, msg)
	s.broadcaster.Broadcast(domain.UserRoom(senderID), domain.EvtMessageSent, msg)

	// Delivery and read flags are not tracked per member; each offline
	// ACCEPTED member gets an independent notification attempt instead.
	memberIDs, err := s.groups.ListAcceptedMemberIDs(ctx, groupID)
	if err != nil {
		// The send already succeeded; a failed member lookup only costs the
		// push fallback, it must not surface as a send error.
		log.Printf("message: list members for group %d: %v", groupID, err)
		return msg, nil
	}
	var offline []int64
	for _, id := range memberIDs {
		if id != senderID && !s.presence.IsOnline(id) {
			offline = append(offline, id)
		}
	}
	if len(offline) > 0 {
		go s.notifyGroup(senderID, groupID, offline, content)
	}

	return msg, nil
}

// Edit updates the content of a message. Only the sender may edit, and a
// soft-deleted message stays deleted: edits are rejected.
func (s *MessageService) Edit(ctx context.Context, callerID, messageID int64, content string) (*domain.Message, error) {
	if err := s.validateContent(content); err != nil {
		return nil, err
	}

	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if msg.IsDeleted {
		return nil, domain.ErrMessageDeleted
	}
	if msg.SenderID != callerID {
		return nil, fmt.Errorf("only the sender may edit a message: %w", domain.ErrForbidden)
	}

	encrypted, err := s.encryptor.Encrypt(content)
	if err != nil {
		return nil, fmt.Errorf("encrypt content: %w", err)
	}
	if err := s.messages.UpdateContent(ctx, messageID, encrypted, true, false); err != nil {
		return nil, fmt.Errorf("update message: %w", err)
	}
	msg.Content = content
	msg.IsEdited = true

	s.broadcastToConversation(msg, domain.EvtMessageEdited, msg)
	return msg, nil
}

// Delete soft-deletes a message: the id and created-at survive for cursor
// stability, the content is replaced with a fixed placeholder and cannot be
// recovered. Deletion applies from any state.
func (s *MessageService) Delete(ctx context.Context, callerID, messageID int64) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return fmt.Errorf("get message: %w", err)
	}
	if msg.SenderID != callerID {
		return fmt.Errorf("only the sender may delete a message: %w", domain.ErrForbidden)
	}

	encrypted, err := s.encryptor.Encrypt(domain.DeletedPlaceholder)
	if err != nil {
		return fmt.Errorf("encrypt placeholder: %w", err)
	}
	if err := s.messages.UpdateContent(ctx, messageID, encrypted, msg.IsEdited, true); err != nil {
		return fmt.Errorf("soft delete message: %w", err)
	}
	msg.Content = domain.DeletedPlaceholder
	msg.IsDeleted = true

	s.broadcastToConversation(msg, domain.EvtMessageDeleted, DeletedNotice{MessageID: messageID})
	return nil
}

// MarkRead flags a message read (read implies delivered) and notifies the
// original sender's connections. Safe to call repeatedly.
func (s *MessageService) MarkRead(ctx context.Context, messageID int64) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return fmt.Errorf("get message: %w", err)
	}
	if err := s.messages.MarkRead(ctx, messageID); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	s.broadcaster.Broadcast(domain.UserRoom(msg.SenderID), domain.EvtMessageStatusUpdate, StatusUpdate{
		MessageID:   messageID,
		IsDelivered: true,
		IsRead:      true,
	})
	return nil
}

// MarkReadBatch is the catch-up path: same flag updates as MarkRead for
// every id, without per-message realtime notifications.
func (s *MessageService) MarkReadBatch(ctx context.Context, messageIDs []int64) error {
	if len(messageIDs) == 0 {
		return fmt.Errorf("messageIds are required: %w", domain.ErrInvalidInput)
	}
	if err := s.messages.MarkReadBatch(ctx, messageIDs); err != nil {
		return fmt.Errorf("mark read batch: %w", err)
	}
	return nil
}

func (s *MessageService) validateTarget(receiverID, groupID *int64) error {
	if (receiverID == nil) == (groupID == nil) {
		return fmt.Errorf("exactly one of receiverId and groupId is required: %w", domain.ErrInvalidInput)
	}
	return nil
}

func (s *MessageService) validateContent(content string) error {
	if content == "" {
		return fmt.Errorf("message content cannot be empty: %w", domain.ErrInvalidInput)
	}
	if s.MaxContentLength > 0 && len([]rune(content)) > s.MaxContentLength {
		return fmt.Errorf("message content exceeds %d characters: %w", s.MaxContentLength, domain.ErrInvalidInput)
	}
	return nil
}

// broadcastToConversation targets the same room(s) the original send did.
func (s *MessageService) broadcastToConversation(msg *domain.Message, event string, payload any) {
	if msg.GroupID != nil {
		s.broadcaster.Broadcast(domain.GroupRoom(*msg.GroupID), event, payload)
		return
	}
	if msg.ReceiverID != nil {
		s.broadcaster.Broadcast(domain.UserRoom(*msg.ReceiverID), event, payload)
	}
	s.broadcaster.Broadcast(domain.UserRoom(msg.SenderID), event, payload)
}

func (s *MessageService) notifyDirect(senderID, receiverID int64, content string) {
	ctx := context.Background()
	title := "New message"
	if sender, err := s.users.GetByID(ctx, senderID); err == nil && sender != nil {
		title = fmt.Sprintf("New message from %s", sender.Username)
	}
	s.notifier.Dispatch(ctx, receiverID, title, content, map[string]string{
		"type":     "DIRECT_MESSAGE",
		"senderId": fmt.Sprintf("%d", senderID),
	})
}

func (s *MessageService) notifyGroup(senderID, groupID int64, memberIDs []int64, content string) {
	ctx := context.Background()
	title := "New group message"
	if group, err := s.groups.GetByID(ctx, groupID); err == nil && group != nil {
		title = group.Name
	}
	body := content
	if sender, err := s.users.GetByID(ctx, senderID); err == nil && sender != nil {
		body = fmt.Sprintf("%s: %s", sender.Username, content)
	}
	for _, id := range memberIDs {
		s.notifier.Dispatch(ctx, id, title, body, map[string]string{
			"type":    "GROUP_MESSAGE",
			"groupId": fmt.Sprintf("%d", groupID),
		})
	}
}
