package app

import (
	"context"

	"campus_chat_service/internal/chat/domain"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
)

// MockRoomRepository Mock RoomRepository
type MockRoomRepository struct {
	mock.Mock
}

// CreateRoom mock create room
func (m *MockRoomRepository) CreateRoom(ctx context.Context, room *domain.ChatRoom) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

// FindByID mock find room by room id
func (m *MockRoomRepository) FindByID(ctx context.Context, roomID string) (*domain.ChatRoom, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.ChatRoom), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindPrivateRoomByPair mock find private room for a pair
func (m *MockRoomRepository) FindPrivateRoomByPair(ctx context.Context, userA, userB string) (*domain.ChatRoom, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.ChatRoom), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindCandidateRooms mock candidate rooms for an identity
func (m *MockRoomRepository) FindCandidateRooms(ctx context.Context, id domain.Identity) ([]domain.ChatRoom, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ChatRoom), args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdateLastMessage mock move last message pointer
func (m *MockRoomRepository) UpdateLastMessage(ctx context.Context, roomID, messageID string, at int64) error {
	args := m.Called(ctx, roomID, messageID, at)
	return args.Error(0)
}

// Deactivate mock deactivate room
func (m *MockRoomRepository) Deactivate(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// InsertMessage mock insert msg
func (m *MockMessageRepository) InsertMessage(ctx context.Context, msg *domain.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// FindByID mock find msg by id
func (m *MockMessageRepository) FindByID(ctx context.Context, messageID string) (*domain.ChatMessage, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.ChatMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByRoomPaged mock one history page
func (m *MockMessageRepository) FindByRoomPaged(ctx context.Context, roomID string, page, pageSize int64) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, roomID, page, pageSize)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ChatMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

// AddReadReceipt mock add receipt
func (m *MockMessageRepository) AddReadReceipt(ctx context.Context, messageID, userID string, readAt int64) error {
	args := m.Called(ctx, messageID, userID, readAt)
	return args.Error(0)
}

// SoftDelete mock soft delete, bool reports whether this call won
func (m *MockMessageRepository) SoftDelete(ctx context.Context, messageID, deleterID string, deletedAt int64) (bool, error) {
	args := m.Called(ctx, messageID, deleterID, deletedAt)
	return args.Bool(0), args.Error(1)
}

// MockRedisPubSub Mock PubSub
type MockRedisPubSub struct {
	mock.Mock
}

// Publish mock publish
func (m *MockRedisPubSub) Publish(channel string, event domain.ServerEvent) error {
	args := m.Called(channel, event)
	return args.Error(0)
}

// Subscribe mock subscribe
func (m *MockRedisPubSub) Subscribe(ctx context.Context, channel string, handler func(event domain.ServerEvent)) error {
	args := m.Called(ctx, channel, handler)
	return args.Error(0)
}

// MockAttachmentResolver Mock AttachmentResolver
type MockAttachmentResolver struct {
	mock.Mock
}

// Resolve mock resolve object names into attachments
func (m *MockAttachmentResolver) Resolve(ctx context.Context, objectNames []string) ([]domain.Attachment, error) {
	args := m.Called(ctx, objectNames)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Attachment), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockUserDirectory Mock UserDirectory
type MockUserDirectory struct {
	mock.Mock
}

// FindDepartmentStaff mock staff ids of a department
func (m *MockUserDirectory) FindDepartmentStaff(ctx context.Context, department string) ([]string, error) {
	args := m.Called(ctx, department)
	if args.Get(0) != nil {
		return args.Get(0).([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// DistinctDepartments mock department set of a participant list
func (m *MockUserDirectory) DistinctDepartments(ctx context.Context, userIDs []string) ([]string, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) != nil {
		return args.Get(0).([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockNoticeSource Mock NoticeSource
type MockNoticeSource struct {
	mock.Mock
}

// ReadMessage mock read one notice record
func (m *MockNoticeSource) ReadMessage(ctx context.Context) (kafka.Message, error) {
	args := m.Called(ctx)
	return args.Get(0).(kafka.Message), args.Error(1)
}
