package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveMessageType(t *testing.T) {
	img := []Attachment{{Name: "a.png", MediaType: "image/png"}}
	pdf := []Attachment{{Name: "a.pdf", MediaType: "application/pdf"}}

	// attachments override any explicit type
	assert.Equal(t, MessageTypeImage, DeriveMessageType(MessageTypeText, img))
	assert.Equal(t, MessageTypeFile, DeriveMessageType("", pdf))
	assert.Equal(t, MessageTypeFile, DeriveMessageType(MessageTypeImage, pdf))

	assert.Equal(t, MessageTypeText, DeriveMessageType("", nil))
	assert.Equal(t, MessageTypeImage, DeriveMessageType(MessageTypeImage, nil))
}

func TestChatMessage_Rendered(t *testing.T) {
	msg := ChatMessage{
		ID:          "m-1",
		RoomID:      "r-1",
		SenderID:    "u-1",
		Content:     "secret",
		Attachments: []Attachment{{Name: "a.png"}},
		Deleted:     true,
		DeletedBy:   "mod-1",
		CreatedAt:   123,
	}

	out := msg.Rendered()
	assert.Empty(t, out.Content)
	assert.Nil(t, out.Attachments)
	// the tombstone keeps its identity and metadata
	assert.Equal(t, "m-1", out.ID)
	assert.True(t, out.Deleted)
	assert.Equal(t, "mod-1", out.DeletedBy)
	assert.Equal(t, int64(123), out.CreatedAt)

	kept := ChatMessage{ID: "m-2", Content: "visible"}
	assert.Equal(t, kept, kept.Rendered())
}

func TestNotice_Channel(t *testing.T) {
	assert.Equal(t, "chat:notice:global", Notice{ID: "n1"}.Channel())
	assert.Equal(t, "chat:notice:cs", Notice{ID: "n2", Department: "cs"}.Channel())
	assert.Equal(t, "chat:notice:cs:2:A", Notice{ID: "n3", Department: "cs", Year: 2, Batch: "A"}.Channel())
	// a year without a batch cannot address a class, so it stays department-wide
	assert.Equal(t, "chat:notice:cs", Notice{ID: "n4", Department: "cs", Year: 2}.Channel())
}
