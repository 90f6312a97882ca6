package app

import (
	"context"
	"time"

	"campus_chat_service/internal/chat/domain"
	"campus_chat_service/internal/chat/repository"
	"campus_chat_service/pkg/logger"

	errprocess "campus_chat_service/pkg/err"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MessageUseCase owns both ingestion paths and the moderation/read-receipt
// operations. The synchronous path persists before answering; the streaming
// path echoes a provisional message first and reconciles asynchronously.
type MessageUseCase struct {
	roomRepo       repository.RoomRepository
	msgRepo        repository.MessageRepository
	pubsub         repository.PubSub
	attachments    repository.AttachmentResolver
	persistTimeout time.Duration
}

// NewMessageUseCase init message use case
func NewMessageUseCase(
	roomRepo repository.RoomRepository,
	msgRepo repository.MessageRepository,
	pubsub repository.PubSub,
	attachments repository.AttachmentResolver,
	persistTimeout time.Duration,
) *MessageUseCase {
	return &MessageUseCase{
		roomRepo:       roomRepo,
		msgRepo:        msgRepo,
		pubsub:         pubsub,
		attachments:    attachments,
		persistTimeout: persistTimeout,
	}
}

// Post synchronous ingestion: validate, resolve attachments, persist inside
// the bounded window, then fan out. The caller only gets the message after it
// is durable.
func (uc *MessageUseCase) Post(ctx context.Context, sender domain.Identity, roomID, content string, explicitType domain.MessageType, attachmentRefs []string) (*domain.ChatMessage, error) {
	room, err := uc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil || !room.Active {
		return nil, errprocess.NotFound("room not found")
	}
	if !room.IsMember(sender) {
		return nil, errprocess.Authorization("not a member of this room")
	}
	if content == "" && len(attachmentRefs) == 0 {
		return nil, errprocess.Validation("message needs content or attachments")
	}

	var attachments []domain.Attachment
	if len(attachmentRefs) > 0 {
		attachments, err = uc.attachments.Resolve(ctx, attachmentRefs)
		if err != nil {
			return nil, err
		}
	}

	msg := &domain.ChatMessage{
		ID:          uuid.New().String(),
		RoomID:      roomID,
		SenderID:    sender.UserID,
		Content:     content,
		Type:        domain.DeriveMessageType(explicitType, attachments),
		Attachments: attachments,
		ReadBy:      []domain.ReadReceipt{{UserID: sender.UserID, ReadAt: time.Now().UnixMilli()}},
	}

	if err := uc.persist(ctx, msg); err != nil {
		return nil, err
	}

	if err := uc.pubsub.Publish(domain.RoomChannel(roomID), domain.ServerEvent{
		Event:   domain.EventNewMessage,
		Payload: map[string]interface{}{"message": msg, "provisional": false},
	}); err != nil {
		logger.Log.Errorf("fanout new_message err:", err, zap.String("RoomID", roomID))
	}

	return msg, nil
}

// SendStream streaming ingestion: the provisional echo is fanned out before
// any store round-trip, then persistence runs in the background and is
// reconciled through message_confirmed / message_save_failed. The correlation
// token is caller-generated; the pipeline never checks its uniqueness.
func (uc *MessageUseCase) SendStream(sender domain.Identity, room *domain.ChatRoom, content string, explicitType domain.MessageType, attachmentRefs []string, correlationToken string) (*domain.ChatMessage, error) {
	if content == "" && len(attachmentRefs) == 0 {
		return nil, errprocess.Validation("message needs content or attachments")
	}
	if !room.IsMember(sender) {
		return nil, errprocess.Authorization("not a member of this room")
	}

	provisional := &domain.ChatMessage{
		ID:       uuid.New().String(),
		RoomID:   room.ID,
		SenderID: sender.UserID,
		Content:  content,
		Type:     domain.DeriveMessageType(explicitType, nil),
		ReadBy:   []domain.ReadReceipt{{UserID: sender.UserID, ReadAt: time.Now().UnixMilli()}},
		// provisional timestamp; persistence re-stamps the authoritative one
		CreatedAt: time.Now().UnixMilli(),
	}

	if err := uc.pubsub.Publish(domain.RoomChannel(room.ID), domain.ServerEvent{
		Event: domain.EventNewMessage,
		Payload: map[string]interface{}{
			"message":           provisional,
			"provisional":       true,
			"correlation_token": correlationToken,
		},
	}); err != nil {
		logger.Log.Errorf("fanout provisional err:", err, zap.String("RoomID", room.ID))
	}

	go uc.reconcile(sender, *provisional, attachmentRefs, explicitType, correlationToken)

	return provisional, nil
}

// reconcile background persistence for the streaming path. Runs detached from
// the connection context so a disconnect never loses the message.
func (uc *MessageUseCase) reconcile(sender domain.Identity, msg domain.ChatMessage, attachmentRefs []string, explicitType domain.MessageType, correlationToken string) {
	ctx := context.Background()

	var err error
	if len(attachmentRefs) > 0 {
		msg.Attachments, err = uc.attachments.Resolve(ctx, attachmentRefs)
		if err == nil {
			msg.Type = domain.DeriveMessageType(explicitType, msg.Attachments)
		}
	}
	if err == nil {
		err = uc.persist(ctx, &msg)
	}

	if err != nil {
		logger.Log.Errorf("streaming persist err:", err,
			zap.String("RoomID", msg.RoomID),
			zap.String("SenderID", sender.UserID))
		// failure goes to the sender only, the room never sees it
		if pubErr := uc.pubsub.Publish(domain.UserChannel(sender.UserID), domain.ServerEvent{
			Event: domain.EventMessageSaveFailed,
			Payload: map[string]interface{}{
				"correlation_token": correlationToken,
				"room_id":           msg.RoomID,
			},
		}); pubErr != nil {
			logger.Log.Errorf("fanout save_failed err:", pubErr)
		}
		return
	}

	if pubErr := uc.pubsub.Publish(domain.RoomChannel(msg.RoomID), domain.ServerEvent{
		Event: domain.EventMessageConfirmed,
		Payload: map[string]interface{}{
			"correlation_token": correlationToken,
			"message":           msg,
		},
	}); pubErr != nil {
		logger.Log.Errorf("fanout message_confirmed err:", pubErr)
	}
}

// persist write the message inside the bounded window and move the room's
// last-message pointer. The stamp taken here is the authoritative within-room
// ordering key.
func (uc *MessageUseCase) persist(ctx context.Context, msg *domain.ChatMessage) error {
	pctx, cancel := context.WithTimeout(ctx, uc.persistTimeout)
	defer cancel()

	msg.CreatedAt = time.Now().UnixMilli()
	if err := uc.msgRepo.InsertMessage(pctx, msg); err != nil {
		return errprocess.TransientStore("message persist failed: " + err.Error())
	}

	// pointer update is denormalization only; a failure here never fails the
	// already-durable message
	if err := uc.roomRepo.UpdateLastMessage(pctx, msg.RoomID, msg.ID, msg.CreatedAt); err != nil {
		logger.Log.Errorf("update last message pointer err:", err, zap.String("RoomID", msg.RoomID))
	}
	return nil
}

// MarkRead add read receipts for one or many messages. Set semantics: calling
// it N times leaves one receipt per user.
func (uc *MessageUseCase) MarkRead(ctx context.Context, reader domain.Identity, roomID string, messageIDs []string) error {
	if len(messageIDs) == 0 {
		return errprocess.Validation("no message ids to mark read")
	}

	room, err := uc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room == nil || !room.Active {
		return errprocess.NotFound("room not found")
	}
	if !room.IsMember(reader) {
		return errprocess.Authorization("not a member of this room")
	}

	// every id must resolve inside this room before any receipt is written;
	// membership in one room grants nothing over another room's messages
	for _, messageID := range messageIDs {
		msg, err := uc.msgRepo.FindByID(ctx, messageID)
		if err != nil {
			return err
		}
		if msg == nil {
			return errprocess.NotFound("message not found: " + messageID)
		}
		if msg.RoomID != roomID {
			return errprocess.Authorization("message does not belong to this room")
		}
	}

	readAt := time.Now().UnixMilli()
	for _, messageID := range messageIDs {
		if err := uc.msgRepo.AddReadReceipt(ctx, messageID, reader.UserID, readAt); err != nil {
			return errprocess.TransientStore("read receipt failed: " + err.Error())
		}
	}

	if err := uc.pubsub.Publish(domain.RoomChannel(roomID), domain.ServerEvent{
		Event: domain.EventMessageRead,
		Payload: map[string]interface{}{
			"room_id":     roomID,
			"message_ids": messageIDs,
			"user_id":     reader.UserID,
			"read_at":     readAt,
		},
	}); err != nil {
		logger.Log.Errorf("fanout read update err:", err, zap.String("RoomID", roomID))
	}
	return nil
}

// CanDelete sender may always delete their own message, room moderators may
// delete any
func CanDelete(id domain.Identity, msg *domain.ChatMessage, room *domain.ChatRoom) bool {
	return msg.SenderID == id.UserID || room.IsModerator(id.UserID)
}

// Delete soft-delete a message. Only the first deletion emits the
// message_deleted event; later calls are idempotent no-ops.
func (uc *MessageUseCase) Delete(ctx context.Context, deleter domain.Identity, messageID string) error {
	msg, err := uc.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return errprocess.NotFound("message not found")
	}

	room, err := uc.roomRepo.FindByID(ctx, msg.RoomID)
	if err != nil {
		return err
	}
	if room == nil {
		return errprocess.NotFound("room not found")
	}
	if !CanDelete(deleter, msg, room) {
		return errprocess.Authorization("not allowed to delete this message")
	}

	first, err := uc.msgRepo.SoftDelete(ctx, messageID, deleter.UserID, time.Now().UnixMilli())
	if err != nil {
		return errprocess.TransientStore("delete failed: " + err.Error())
	}
	if !first {
		return nil
	}

	if err := uc.pubsub.Publish(domain.RoomChannel(msg.RoomID), domain.ServerEvent{
		Event: domain.EventMessageDeleted,
		Payload: map[string]interface{}{
			"room_id":    msg.RoomID,
			"message_id": messageID,
			"deleted_by": deleter.UserID,
		},
	}); err != nil {
		logger.Log.Errorf("fanout message_deleted err:", err, zap.String("RoomID", msg.RoomID))
	}
	return nil
}

// ListMessages one ascending chronological page of room history, deleted
// messages redacted
func (uc *MessageUseCase) ListMessages(ctx context.Context, reader domain.Identity, roomID string, page, pageSize int64) ([]domain.ChatMessage, error) {
	room, err := uc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil || !room.Active {
		return nil, errprocess.NotFound("room not found")
	}
	if !room.IsMember(reader) {
		return nil, errprocess.Authorization("not a member of this room")
	}

	msgs, err := uc.msgRepo.FindByRoomPaged(ctx, roomID, page, pageSize)
	if err != nil {
		return nil, err
	}

	for i := range msgs {
		msgs[i] = msgs[i].Rendered()
	}
	return msgs, nil
}
