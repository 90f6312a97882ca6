package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"campus_chat_service/internal/chat/domain"

	errprocess "campus_chat_service/pkg/err"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func memberIdentity(userID string) domain.Identity {
	return domain.Identity{UserID: userID, Role: domain.RoleStudent, Department: "cs", Year: 2, Batch: "A"}
}

func activeRoomWith(participants ...string) *domain.ChatRoom {
	return &domain.ChatRoom{
		ID:           uuid.New().String(),
		Kind:         domain.RoomKindPrivateGroup,
		Name:         "project group",
		Participants: participants,
		Moderators:   []string{participants[0]},
		Active:       true,
	}
}

func TestMessageUseCase_Post(t *testing.T) {
	ctx := context.Background()
	sender := memberIdentity("user-1")
	room := activeRoomWith("user-1", "user-2")

	mockRoomRepo := new(MockRoomRepository)
	mockMsgRepo := new(MockMessageRepository)
	mockPubSub := new(MockRedisPubSub)

	mockRoomRepo.On("FindByID", ctx, room.ID).Return(room, nil)
	mockMsgRepo.On("InsertMessage", mock.Anything, mock.Anything).Return(nil)
	mockRoomRepo.On("UpdateLastMessage", mock.Anything, room.ID, mock.Anything, mock.Anything).Return(nil)
	mockPubSub.On("Publish", domain.RoomChannel(room.ID), mock.MatchedBy(func(e domain.ServerEvent) bool {
		return e.Event == domain.EventNewMessage && e.Payload["provisional"] == false
	})).Return(nil)

	uc := NewMessageUseCase(mockRoomRepo, mockMsgRepo, mockPubSub, new(MockAttachmentResolver), time.Second)
	msg, err := uc.Post(ctx, sender, room.ID, "hello", "", nil)

	assert.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, domain.MessageTypeText, msg.Type)
	assert.NotZero(t, msg.CreatedAt)
	// sender reads their own message implicitly
	assert.Len(t, msg.ReadBy, 1)
	assert.Equal(t, sender.UserID, msg.ReadBy[0].UserID)

	mockRoomRepo.AssertExpectations(t)
	mockMsgRepo.AssertExpectations(t)
	mockPubSub.AssertExpectations(t)
}

func TestMessageUseCase_Post_NotMember(t *testing.T) {
	ctx := context.Background()
	room := activeRoomWith("user-1", "user-2")

	mockRoomRepo := new(MockRoomRepository)
	mockRoomRepo.On("FindByID", ctx, room.ID).Return(room, nil)

	uc := NewMessageUseCase(mockRoomRepo, new(MockMessageRepository), new(MockRedisPubSub), new(MockAttachmentResolver), time.Second)
	_, err := uc.Post(ctx, memberIdentity("stranger"), room.ID, "hello", "", nil)

	assert.True(t, errprocess.IsAuthorization(err))
}

func TestMessageUseCase_Post_EmptyMessage(t *testing.T) {
	ctx := context.Background()
	room := activeRoomWith("user-1", "user-2")

	mockRoomRepo := new(MockRoomRepository)
	mockRoomRepo.On("FindByID", ctx, room.ID).Return(room, nil)

	uc := NewMessageUseCase(mockRoomRepo, new(MockMessageRepository), new(MockRedisPubSub), new(MockAttachmentResolver), time.Second)
	_, err := uc.Post(ctx, memberIdentity("user-1"), room.ID, "", "", nil)

	assert.True(t, errprocess.IsValidation(err))
}

// eventRecorder collects fanned-out events in publish order and lets the test
// wait for the async reconcile to land.
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.ServerEvent
	done   chan struct{}
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{done: make(chan struct{}, 4)}
}

func (r *eventRecorder) record(args mock.Arguments) {
	event := args.Get(1).(domain.ServerEvent)
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	if event.Event == domain.EventMessageConfirmed || event.Event == domain.EventMessageSaveFailed {
		r.done <- struct{}{}
	}
}

func (r *eventRecorder) wait(t *testing.T) []domain.ServerEvent {
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("reconcile event never arrived")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ServerEvent(nil), r.events...)
}

func TestMessageUseCase_SendStream_ProvisionalThenConfirmed(t *testing.T) {
	sender := memberIdentity("user-1")
	room := activeRoomWith("user-1", "user-2")
	token := uuid.New().String()

	mockMsgRepo := new(MockMessageRepository)
	mockRoomRepo := new(MockRoomRepository)
	mockPubSub := new(MockRedisPubSub)
	recorder := newEventRecorder()

	mockMsgRepo.On("InsertMessage", mock.Anything, mock.Anything).Return(nil)
	mockRoomRepo.On("UpdateLastMessage", mock.Anything, room.ID, mock.Anything, mock.Anything).Return(nil)
	mockPubSub.On("Publish", domain.RoomChannel(room.ID), mock.Anything).Run(recorder.record).Return(nil)

	uc := NewMessageUseCase(mockRoomRepo, mockMsgRepo, mockPubSub, new(MockAttachmentResolver), time.Second)
	provisional, err := uc.SendStream(sender, room, "hello", "", nil, token)

	assert.NoError(t, err)
	assert.NotEmpty(t, provisional.ID)

	events := recorder.wait(t)
	assert.Len(t, events, 2)

	// the provisional echo always precedes confirmation for the same token
	assert.Equal(t, domain.EventNewMessage, events[0].Event)
	assert.Equal(t, true, events[0].Payload["provisional"])
	assert.Equal(t, token, events[0].Payload["correlation_token"])

	assert.Equal(t, domain.EventMessageConfirmed, events[1].Event)
	assert.Equal(t, token, events[1].Payload["correlation_token"])
	confirmed := events[1].Payload["message"].(domain.ChatMessage)
	assert.Equal(t, provisional.ID, confirmed.ID)
	// persistence re-stamps the authoritative ordering key
	assert.GreaterOrEqual(t, confirmed.CreatedAt, provisional.CreatedAt)
}

func TestMessageUseCase_SendStream_SaveFailureGoesToSenderOnly(t *testing.T) {
	sender := memberIdentity("user-1")
	room := activeRoomWith("user-1", "user-2")
	token := uuid.New().String()

	mockMsgRepo := new(MockMessageRepository)
	mockPubSub := new(MockRedisPubSub)
	recorder := newEventRecorder()

	mockMsgRepo.On("InsertMessage", mock.Anything, mock.Anything).Return(errors.New("mongo down"))
	mockPubSub.On("Publish", mock.Anything, mock.Anything).Run(recorder.record).Return(nil)

	uc := NewMessageUseCase(new(MockRoomRepository), mockMsgRepo, mockPubSub, new(MockAttachmentResolver), time.Second)
	_, err := uc.SendStream(sender, room, "hello", "", nil, token)
	assert.NoError(t, err)

	events := recorder.wait(t)
	assert.Len(t, events, 2)
	assert.Equal(t, domain.EventNewMessage, events[0].Event)
	assert.Equal(t, domain.EventMessageSaveFailed, events[1].Event)
	assert.Equal(t, token, events[1].Payload["correlation_token"])
	assert.Equal(t, room.ID, events[1].Payload["room_id"])

	// the failure event lands on the sender channel, never the room channel
	mockPubSub.AssertCalled(t, "Publish", domain.UserChannel(sender.UserID), mock.MatchedBy(func(e domain.ServerEvent) bool {
		return e.Event == domain.EventMessageSaveFailed
	}))
	mockPubSub.AssertNotCalled(t, "Publish", domain.RoomChannel(room.ID), mock.MatchedBy(func(e domain.ServerEvent) bool {
		return e.Event == domain.EventMessageSaveFailed
	}))
}

func TestMessageUseCase_SendStream_RejectsNonMember(t *testing.T) {
	room := activeRoomWith("user-1", "user-2")

	uc := NewMessageUseCase(new(MockRoomRepository), new(MockMessageRepository), new(MockRedisPubSub), new(MockAttachmentResolver), time.Second)
	_, err := uc.SendStream(memberIdentity("stranger"), room, "hello", "", nil, "tok")

	assert.True(t, errprocess.IsAuthorization(err))
}

func TestMessageUseCase_MarkRead(t *testing.T) {
	ctx := context.Background()
	reader := memberIdentity("user-2")
	room := activeRoomWith("user-1", "user-2")
	ids := []string{"m1", "m2"}

	mockRoomRepo := new(MockRoomRepository)
	mockMsgRepo := new(MockMessageRepository)
	mockPubSub := new(MockRedisPubSub)

	mockRoomRepo.On("FindByID", ctx, room.ID).Return(room, nil)
	mockMsgRepo.On("FindByID", ctx, "m1").Return(&domain.ChatMessage{ID: "m1", RoomID: room.ID}, nil)
	mockMsgRepo.On("FindByID", ctx, "m2").Return(&domain.ChatMessage{ID: "m2", RoomID: room.ID}, nil)
	mockMsgRepo.On("AddReadReceipt", ctx, "m1", reader.UserID, mock.Anything).Return(nil)
	mockMsgRepo.On("AddReadReceipt", ctx, "m2", reader.UserID, mock.Anything).Return(nil)
	mockPubSub.On("Publish", domain.RoomChannel(room.ID), mock.MatchedBy(func(e domain.ServerEvent) bool {
		return e.Event == domain.EventMessageRead && e.Payload["user_id"] == reader.UserID
	})).Return(nil)

	uc := NewMessageUseCase(mockRoomRepo, mockMsgRepo, mockPubSub, new(MockAttachmentResolver), time.Second)
	err := uc.MarkRead(ctx, reader, room.ID, ids)

	assert.NoError(t, err)
	mockMsgRepo.AssertExpectations(t)
	mockPubSub.AssertExpectations(t)
}

func TestMessageUseCase_MarkRead_ForeignRoomMessageRejected(t *testing.T) {
	ctx := context.Background()
	reader := memberIdentity("user-1")
	room := activeRoomWith("user-1", "user-2")

	mockRoomRepo := new(MockRoomRepository)
	mockMsgRepo := new(MockMessageRepository)
	mockPubSub := new(MockRedisPubSub)

	mockRoomRepo.On("FindByID", ctx, room.ID).Return(room, nil)
	// the message lives in another room the reader has no access to
	mockMsgRepo.On("FindByID", ctx, "foreign-msg").Return(&domain.ChatMessage{
		ID:     "foreign-msg",
		RoomID: "other-room",
	}, nil)

	uc := NewMessageUseCase(mockRoomRepo, mockMsgRepo, mockPubSub, new(MockAttachmentResolver), time.Second)
	err := uc.MarkRead(ctx, reader, room.ID, []string{"foreign-msg"})

	assert.True(t, errprocess.IsAuthorization(err))
	// rejected before any side effect: no receipt written, no event fanned out
	mockMsgRepo.AssertNotCalled(t, "AddReadReceipt", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockPubSub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestMessageUseCase_MarkRead_EmptyIDs(t *testing.T) {
	ctx := context.Background()
	reader := memberIdentity("user-1")

	mockRoomRepo := new(MockRoomRepository)
	mockPubSub := new(MockRedisPubSub)

	uc := NewMessageUseCase(mockRoomRepo, new(MockMessageRepository), mockPubSub, new(MockAttachmentResolver), time.Second)
	err := uc.MarkRead(ctx, reader, "r-1", nil)

	assert.True(t, errprocess.IsValidation(err))
	mockRoomRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	mockPubSub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestMessageUseCase_Delete_FirstWins(t *testing.T) {
	ctx := context.Background()
	moderator := memberIdentity("user-1")
	room := activeRoomWith("user-1", "user-2")
	msg := &domain.ChatMessage{ID: "m1", RoomID: room.ID, SenderID: "user-2", Content: "bye"}

	mockRoomRepo := new(MockRoomRepository)
	mockMsgRepo := new(MockMessageRepository)
	mockPubSub := new(MockRedisPubSub)

	mockMsgRepo.On("FindByID", ctx, msg.ID).Return(msg, nil)
	mockRoomRepo.On("FindByID", ctx, room.ID).Return(room, nil)
	// first caller wins, the retry is a no-op
	mockMsgRepo.On("SoftDelete", ctx, msg.ID, moderator.UserID, mock.Anything).Return(true, nil).Once()
	mockMsgRepo.On("SoftDelete", ctx, msg.ID, moderator.UserID, mock.Anything).Return(false, nil).Once()
	mockPubSub.On("Publish", domain.RoomChannel(room.ID), mock.MatchedBy(func(e domain.ServerEvent) bool {
		return e.Event == domain.EventMessageDeleted
	})).Return(nil).Once()

	uc := NewMessageUseCase(mockRoomRepo, mockMsgRepo, mockPubSub, new(MockAttachmentResolver), time.Second)

	assert.NoError(t, uc.Delete(ctx, moderator, msg.ID))
	assert.NoError(t, uc.Delete(ctx, moderator, msg.ID))

	mockPubSub.AssertNumberOfCalls(t, "Publish", 1)
}

func TestMessageUseCase_Delete_Authorization(t *testing.T) {
	ctx := context.Background()
	room := activeRoomWith("user-1", "user-2")
	msg := &domain.ChatMessage{ID: "m1", RoomID: room.ID, SenderID: "user-1"}

	mockRoomRepo := new(MockRoomRepository)
	mockMsgRepo := new(MockMessageRepository)

	mockMsgRepo.On("FindByID", ctx, msg.ID).Return(msg, nil)
	mockRoomRepo.On("FindByID", ctx, room.ID).Return(room, nil)

	uc := NewMessageUseCase(mockRoomRepo, mockMsgRepo, new(MockRedisPubSub), new(MockAttachmentResolver), time.Second)
	// user-2 is a participant but neither sender nor moderator
	err := uc.Delete(ctx, memberIdentity("user-2"), msg.ID)

	assert.True(t, errprocess.IsAuthorization(err))
}

func TestMessageUseCase_ListMessages_RedactsDeleted(t *testing.T) {
	ctx := context.Background()
	reader := memberIdentity("user-1")
	room := activeRoomWith("user-1", "user-2")

	mockRoomRepo := new(MockRoomRepository)
	mockMsgRepo := new(MockMessageRepository)

	mockRoomRepo.On("FindByID", ctx, room.ID).Return(room, nil)
	mockMsgRepo.On("FindByRoomPaged", ctx, room.ID, int64(1), int64(50)).Return([]domain.ChatMessage{
		{ID: "m1", RoomID: room.ID, Content: "kept", CreatedAt: 100},
		{ID: "m2", RoomID: room.ID, Content: "secret", Deleted: true, CreatedAt: 200},
	}, nil)

	uc := NewMessageUseCase(mockRoomRepo, mockMsgRepo, new(MockRedisPubSub), new(MockAttachmentResolver), time.Second)
	msgs, err := uc.ListMessages(ctx, reader, room.ID, 1, 50)

	assert.NoError(t, err)
	assert.Len(t, msgs, 2)
	assert.Equal(t, "kept", msgs[0].Content)
	// the tombstone stays, its content does not
	assert.True(t, msgs[1].Deleted)
	assert.Empty(t, msgs[1].Content)
}
