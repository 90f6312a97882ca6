package domain

import "fmt"

// Action websocket request action
type Action string

const (
	// JoinRoom websocket action join_room
	JoinRoom Action = "join_room"
	// LeaveRoom websocket action leave_room
	LeaveRoom Action = "leave_room"
	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// Typing websocket action typing
	Typing Action = "typing"
	// MarkRead websocket action mark_read
	MarkRead Action = "mark_read"
	// DeleteMessage websocket action delete_message
	DeleteMessage Action = "delete_message"
)

// Event names pushed to clients.
const (
	// EventNewMessage new message in a room; payload carries `provisional`
	// and `correlation_token` for streaming-path echoes
	EventNewMessage = "new_message"
	// EventMessageConfirmed a provisional message was durably persisted
	EventMessageConfirmed = "message_confirmed"
	// EventMessageSaveFailed persistence of a provisional message failed;
	// delivered to the sender only
	EventMessageSaveFailed = "message_save_failed"
	// EventUserTyping a member started or stopped typing
	EventUserTyping = "user_typing"
	// EventMessageRead read receipts were added
	EventMessageRead = "message_read_update"
	// EventMessageDeleted a message was soft-deleted
	EventMessageDeleted = "message_deleted"
	// EventOnlineUsers full online snapshot, sent on every connect/disconnect
	EventOnlineUsers = "online_users"
	// EventNoticeBroadcast a campus notice routed to this audience
	EventNoticeBroadcast = "notice_broadcast"
)

// WSRequest websocket Request
type WSRequest struct {
	Action           string   `json:"action"`
	RoomID           string   `json:"room_id,omitempty"`
	Content          string   `json:"content,omitempty"`
	Type             string   `json:"type,omitempty"`
	Attachments      []string `json:"attachments,omitempty"`
	CorrelationToken string   `json:"correlation_token,omitempty"`
	MessageID        string   `json:"message_id,omitempty"`
	MessageIDs       []string `json:"message_ids,omitempty"`
	IsTyping         bool     `json:"is_typing,omitempty"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// ServerEvent pub/sub envelope fanned out to room/user/presence channels
type ServerEvent struct {
	Event   string                 `json:"event"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Channel name helpers. One channel per room, one per user (sender-scoped
// events), one shared presence channel, and notice channels derived from
// department/year/batch.
const (
	roomChannelPrefix = "chat:room:"
	userChannelPrefix = "chat:user:"

	// PresenceChannel carries online_users snapshots
	PresenceChannel = "chat:presence"

	noticeChannelPrefix = "chat:notice:"
	// NoticeChannelGlobal campus-wide notices
	NoticeChannelGlobal = noticeChannelPrefix + "global"
)

// RoomChannel channel name for a room
func RoomChannel(roomID string) string { return roomChannelPrefix + roomID }

// UserChannel channel name for a single user
func UserChannel(userID string) string { return userChannelPrefix + userID }

// NoticeDepartmentChannel notices for a whole department
func NoticeDepartmentChannel(department string) string {
	return noticeChannelPrefix + department
}

// NoticeClassChannel notices for one class (department + year + batch)
func NoticeClassChannel(department string, year int, batch string) string {
	return fmt.Sprintf("%s%s:%d:%s", noticeChannelPrefix, department, year, batch)
}

// Notice campus notice consumed from the notice topic
type Notice struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Department string `json:"department,omitempty"`
	Year       int    `json:"year,omitempty"`
	Batch      string `json:"batch,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}

// Channel derive the notice channel from the notice's targeting: batch-level
// when year+batch are set, department-level when only a department is set,
// global otherwise.
func (n Notice) Channel() string {
	if n.Department == "" {
		return NoticeChannelGlobal
	}
	if n.Year != 0 && n.Batch != "" {
		return NoticeClassChannel(n.Department, n.Year, n.Batch)
	}
	return NoticeDepartmentChannel(n.Department)
}

// OnlineUser one presence snapshot entry
type OnlineUser struct {
	UserID    string `json:"user_id"`
	ConnCount int    `json:"conn_count"`
}
