package app

import (
	"context"
	"testing"

	"campus_chat_service/internal/chat/domain"

	errprocess "campus_chat_service/pkg/err"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestRoomDirectory_CreatePrivateRoom_Idempotent(t *testing.T) {
	ctx := context.Background()
	creator := memberIdentity("user-1")

	mockRoomRepo := new(MockRoomRepository)
	existing := &domain.ChatRoom{
		ID:           uuid.New().String(),
		Kind:         domain.RoomKindPrivate,
		Participants: []string{"user-1", "user-2"},
		Active:       true,
	}
	mockRoomRepo.On("FindPrivateRoomByPair", ctx, "user-2", "user-1").Return(existing, nil)

	uc := NewRoomDirectoryUseCase(mockRoomRepo, new(MockUserDirectory))
	room, err := uc.CreateRoom(ctx, creator, CreateRoomSpec{
		Kind:         domain.RoomKindPrivate,
		Participants: []string{"user-2"},
	})

	assert.NoError(t, err)
	// the existing pair room comes back instead of a duplicate
	assert.Equal(t, existing.ID, room.ID)
	mockRoomRepo.AssertNotCalled(t, "CreateRoom", mock.Anything, mock.Anything)
}

func TestRoomDirectory_CreatePrivateRoom_WrongSize(t *testing.T) {
	ctx := context.Background()

	uc := NewRoomDirectoryUseCase(new(MockRoomRepository), new(MockUserDirectory))
	_, err := uc.CreateRoom(ctx, memberIdentity("user-1"), CreateRoomSpec{
		Kind:         domain.RoomKindPrivate,
		Participants: []string{"user-2", "user-3"},
	})

	assert.True(t, errprocess.IsValidation(err))
}

func TestRoomDirectory_CreateDepartmentRoom_StaffBecomeModerators(t *testing.T) {
	ctx := context.Background()
	creator := domain.Identity{UserID: "staff-1", Role: domain.RoleDepartmentStaff, Department: "cs"}
	staff := []string{"staff-1", "staff-2"}

	mockRoomRepo := new(MockRoomRepository)
	mockUsers := new(MockUserDirectory)
	mockUsers.On("FindDepartmentStaff", ctx, "cs").Return(staff, nil)
	mockRoomRepo.On("CreateRoom", ctx, mock.MatchedBy(func(room *domain.ChatRoom) bool {
		return room.Kind == domain.RoomKindDepartment &&
			len(room.Moderators) == 2 &&
			room.Active
	})).Return(nil)

	uc := NewRoomDirectoryUseCase(mockRoomRepo, mockUsers)
	room, err := uc.CreateRoom(ctx, creator, CreateRoomSpec{
		Kind:           domain.RoomKindDepartment,
		Name:           "cs general",
		TargetAudience: domain.AudienceAll,
		Department:     "cs",
	})

	assert.NoError(t, err)
	assert.Equal(t, staff, room.Moderators)
	mockRoomRepo.AssertExpectations(t)
}

func TestRoomDirectory_CreateDepartmentRoom_StudentForbidden(t *testing.T) {
	ctx := context.Background()

	uc := NewRoomDirectoryUseCase(new(MockRoomRepository), new(MockUserDirectory))
	_, err := uc.CreateRoom(ctx, memberIdentity("student-1"), CreateRoomSpec{
		Kind:       domain.RoomKindDepartment,
		Name:       "cs general",
		Department: "cs",
	})

	assert.True(t, errprocess.IsAuthorization(err))
}

func TestRoomDirectory_CreatePrivateGroup_DepartmentsFixedAtCreation(t *testing.T) {
	ctx := context.Background()
	creator := domain.Identity{UserID: "admin-1", Role: domain.RoleCentralAdmin, Department: "registry"}

	mockRoomRepo := new(MockRoomRepository)
	mockUsers := new(MockUserDirectory)
	mockUsers.On("DistinctDepartments", ctx, mock.Anything).Return([]string{"cs", "math"}, nil)
	mockRoomRepo.On("CreateRoom", ctx, mock.Anything).Return(nil)

	uc := NewRoomDirectoryUseCase(mockRoomRepo, mockUsers)
	room, err := uc.CreateRoom(ctx, creator, CreateRoomSpec{
		Kind:         domain.RoomKindPrivateGroup,
		Name:         "exam committee",
		Participants: []string{"user-1", "user-2"},
	})

	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"cs", "math"}, room.Departments)
	assert.Contains(t, room.Participants, creator.UserID)
	assert.Equal(t, []string{creator.UserID}, room.Moderators)
}

func TestRoomDirectory_CreateGlobalRoom_AdminOnly(t *testing.T) {
	ctx := context.Background()

	mockRoomRepo := new(MockRoomRepository)
	mockRoomRepo.On("CreateRoom", ctx, mock.Anything).Return(nil)

	uc := NewRoomDirectoryUseCase(mockRoomRepo, new(MockUserDirectory))

	_, err := uc.CreateRoom(ctx, domain.Identity{UserID: "staff-1", Role: domain.RoleDepartmentStaff}, CreateRoomSpec{
		Kind: domain.RoomKindGlobal,
		Name: "campus wide",
	})
	assert.True(t, errprocess.IsAuthorization(err))

	room, err := uc.CreateRoom(ctx, domain.Identity{UserID: "admin-1", Role: domain.RoleCentralAdmin}, CreateRoomSpec{
		Kind: domain.RoomKindGlobal,
		Name: "campus wide",
	})
	assert.NoError(t, err)
	assert.Equal(t, domain.RoomKindGlobal, room.Kind)
}

func TestRoomDirectory_RoomsFor_FiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	student := memberIdentity("user-1")

	candidates := []domain.ChatRoom{
		// global room, always a member
		{ID: "global", Kind: domain.RoomKindGlobal, Active: true, CreatedAt: 10},
		{ID: "cs-students", Kind: domain.RoomKindDepartment, Department: "cs",
			TargetAudience: domain.AudienceStudents, Active: true, CreatedAt: 20},
		// rooms predating audience scoping have no audience and admit everyone
		{ID: "cs-legacy", Kind: domain.RoomKindDepartment, Department: "cs",
			Active: true, CreatedAt: 25},
		// faculty scope filters the student out
		{ID: "staff-lounge", Kind: domain.RoomKindDepartment, Department: "cs",
			TargetAudience: domain.AudienceFaculty, Active: true, CreatedAt: 30},
		// recent activity sorts first
		{ID: "busy", Kind: domain.RoomKindGlobal, Active: true, CreatedAt: 5, LastMessageAt: 99},
	}

	mockRoomRepo := new(MockRoomRepository)
	mockRoomRepo.On("FindCandidateRooms", ctx, student).Return(candidates, nil)

	uc := NewRoomDirectoryUseCase(mockRoomRepo, new(MockUserDirectory))
	rooms, err := uc.RoomsFor(ctx, student)

	assert.NoError(t, err)
	ids := make([]string, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"busy", "cs-legacy", "cs-students", "global"}, ids)
}

func TestRoomDirectory_CloseRoom(t *testing.T) {
	ctx := context.Background()
	room := &domain.ChatRoom{
		ID:         "r-1",
		Kind:       domain.RoomKindDepartment,
		Department: "cs",
		Moderators: []string{"staff-1"},
		Active:     true,
	}

	mockRoomRepo := new(MockRoomRepository)
	mockRoomRepo.On("FindByID", ctx, room.ID).Return(room, nil)
	mockRoomRepo.On("Deactivate", ctx, room.ID).Return(nil).Once()

	uc := NewRoomDirectoryUseCase(mockRoomRepo, new(MockUserDirectory))

	// plain members cannot close a room
	err := uc.CloseRoom(ctx, memberIdentity("student-1"), room.ID)
	assert.True(t, errprocess.IsAuthorization(err))

	assert.NoError(t, uc.CloseRoom(ctx, domain.Identity{UserID: "staff-1", Role: domain.RoleDepartmentStaff, Department: "cs"}, room.ID))
	mockRoomRepo.AssertExpectations(t)
}

func TestRoomDirectory_GetRoom_NotFoundAndForbidden(t *testing.T) {
	ctx := context.Background()
	student := memberIdentity("user-1")

	mockRoomRepo := new(MockRoomRepository)
	mockRoomRepo.On("FindByID", ctx, "missing").Return(nil, nil)
	mockRoomRepo.On("FindByID", ctx, "closed").Return(&domain.ChatRoom{ID: "closed", Kind: domain.RoomKindGlobal, Active: false}, nil)
	mockRoomRepo.On("FindByID", ctx, "foreign").Return(&domain.ChatRoom{
		ID: "foreign", Kind: domain.RoomKindPrivate, Participants: []string{"a", "b"}, Active: true,
	}, nil)

	uc := NewRoomDirectoryUseCase(mockRoomRepo, new(MockUserDirectory))

	_, err := uc.GetRoom(ctx, student, "missing")
	assert.True(t, errprocess.IsNotFound(err))

	// deactivated rooms behave exactly like missing ones
	_, err = uc.GetRoom(ctx, student, "closed")
	assert.True(t, errprocess.IsNotFound(err))

	_, err = uc.GetRoom(ctx, student, "foreign")
	assert.True(t, errprocess.IsAuthorization(err))
}
