package domain

// Realtime event names, shared by the socket handler and the services that
// broadcast through the connection registry.

// Client to server.
const (
	EvtJoin           = "join"
	EvtJoinGroupRooms = "joinGroupRooms"
	EvtTyping         = "typing"
	EvtSendMessage    = "sendMessage"
	EvtEditMessage    = "editMessage"
	EvtDeleteMessage  = "deleteMessage"
	EvtMarkAsRead     = "markAsRead"
)

// Server to client.
const (
	EvtNewMessage          = "newMessage"
	EvtNewGroupMessage     = "newGroupMessage"
	EvtMessageSent         = "messageSent"
	EvtMessageStatusUpdate = "messageStatusUpdate"
	EvtMessageEdited       = "messageEdited"
	EvtMessageDeleted      = "messageDeleted"
	EvtUserTyping          = "userTyping"
	EvtNewFriendRequest    = "newFriendRequest"
	EvtGroupInvitation     = "groupInvitation"
	EvtError               = "error"
)
