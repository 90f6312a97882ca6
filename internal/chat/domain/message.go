package domain

import "strings"

// MessageType definition message content type
type MessageType string

const (
	//MessageTypeText plain text message
	MessageTypeText MessageType = "text"
	//MessageTypeImage message whose first attachment is an image
	MessageTypeImage MessageType = "image"
	//MessageTypeFile message carrying non-image attachments
	MessageTypeFile MessageType = "file"
)

// Attachment resolved file reference, immutable once set on a message
type Attachment struct {
	Name       string `bson:"name" json:"name"`
	URL        string `bson:"url" json:"url"`
	MediaType  string `bson:"media_type" json:"media_type"`
	Size       int64  `bson:"size" json:"size"`
	UploadedAt int64  `bson:"uploaded_at" json:"uploaded_at"`
}

// ReadReceipt one user's read mark, at most one entry per user per message
type ReadReceipt struct {
	UserID string `bson:"user_id" json:"user_id"`
	ReadAt int64  `bson:"read_at" json:"read_at"`
}

// ChatMessage definition chat message. CreatedAt (unix milli) is the
// authoritative ordering key within a room once persisted.
type ChatMessage struct {
	ID          string        `bson:"_id,omitempty" json:"id"`
	RoomID      string        `bson:"room_id" json:"room_id"`
	SenderID    string        `bson:"sender_id" json:"sender_id"`
	Content     string        `bson:"content,omitempty" json:"content,omitempty"`
	Type        MessageType   `bson:"type" json:"type"`
	Attachments []Attachment  `bson:"attachments,omitempty" json:"attachments,omitempty"`
	ReadBy      []ReadReceipt `bson:"read_by,omitempty" json:"read_by,omitempty"`
	Deleted     bool          `bson:"deleted" json:"deleted"`
	DeletedBy   string        `bson:"deleted_by,omitempty" json:"deleted_by,omitempty"`
	DeletedAt   int64         `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
	CreatedAt   int64         `bson:"created_at" json:"created_at"`
}

// DeriveMessageType derive the type from the first attachment's media type
// when attachments exist, else use the explicit type (default text).
func DeriveMessageType(explicit MessageType, attachments []Attachment) MessageType {
	if len(attachments) > 0 {
		if strings.HasPrefix(attachments[0].MediaType, "image/") {
			return MessageTypeImage
		}
		return MessageTypeFile
	}
	if explicit == "" {
		return MessageTypeText
	}
	return explicit
}

// Rendered return the message as clients should see it: a deleted message
// keeps its id and metadata but body and attachments are not rendered.
func (m ChatMessage) Rendered() ChatMessage {
	if !m.Deleted {
		return m
	}
	out := m
	out.Content = ""
	out.Attachments = nil
	return out
}
