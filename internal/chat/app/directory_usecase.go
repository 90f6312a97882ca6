package app

import (
	"context"
	"sort"
	"time"

	"campus_chat_service/internal/chat/domain"
	"campus_chat_service/internal/chat/repository"
	"campus_chat_service/pkg"

	errprocess "campus_chat_service/pkg/err"

	"github.com/google/uuid"
)

// CreateRoomSpec caller-supplied room description, validated before any
// side effect
type CreateRoomSpec struct {
	Kind           domain.RoomKind       `json:"kind"`
	Name           string                `json:"name"`
	TargetAudience domain.TargetAudience `json:"target_audience"`
	Department     string                `json:"department"`
	Year           int                   `json:"year"`
	Batch          string                `json:"batch"`
	Participants   []string              `json:"participants"`
}

// RoomDirectoryUseCase room creation and membership resolution
type RoomDirectoryUseCase struct {
	roomRepo repository.RoomRepository
	users    repository.UserDirectory
}

// NewRoomDirectoryUseCase init room directory use case
func NewRoomDirectoryUseCase(r repository.RoomRepository, u repository.UserDirectory) *RoomDirectoryUseCase {
	return &RoomDirectoryUseCase{
		roomRepo: r,
		users:    u,
	}
}

// CreateRoom validate and create a room. Private rooms are idempotent per
// participant pair: an existing pair room is returned instead of a duplicate.
func (uc *RoomDirectoryUseCase) CreateRoom(ctx context.Context, creator domain.Identity, spec CreateRoomSpec) (*domain.ChatRoom, error) {
	participants := pkg.Unique(spec.Participants)

	room := &domain.ChatRoom{
		ID:             uuid.New().String(),
		Kind:           spec.Kind,
		Name:           spec.Name,
		TargetAudience: spec.TargetAudience,
		Department:     spec.Department,
		Year:           spec.Year,
		Batch:          spec.Batch,
		Participants:   participants,
		CreatedBy:      creator.UserID,
		Active:         true,
		CreatedAt:      time.Now().UnixMilli(),
	}

	switch spec.Kind {
	case domain.RoomKindPrivate:
		if !pkg.Contains(participants, creator.UserID) {
			participants = append(participants, creator.UserID)
			room.Participants = participants
		}
		if len(participants) != 2 {
			return nil, errprocess.Validation("private room must have exactly 2 participants")
		}
		existing, err := uc.roomRepo.FindPrivateRoomByPair(ctx, participants[0], participants[1])
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
		room.Moderators = participants

	case domain.RoomKindPrivateGroup:
		if creator.Role != domain.RoleCentralAdmin {
			return nil, errprocess.Authorization("only a central admin may create a private group")
		}
		if !pkg.Contains(participants, creator.UserID) {
			participants = append(participants, creator.UserID)
			room.Participants = participants
		}
		// cross-department set fixed at creation time, never recomputed
		departments, err := uc.users.DistinctDepartments(ctx, participants)
		if err != nil {
			return nil, err
		}
		room.Departments = departments
		room.Moderators = []string{creator.UserID}

	case domain.RoomKindDepartment, domain.RoomKindClass:
		if creator.Role != domain.RoleDepartmentStaff && creator.Role != domain.RoleCentralAdmin {
			return nil, errprocess.Authorization("only department staff or a central admin may create this room")
		}
		staff, err := uc.users.FindDepartmentStaff(ctx, spec.Department)
		if err != nil {
			return nil, err
		}
		room.Moderators = staff

	case domain.RoomKindGlobal:
		if creator.Role != domain.RoleCentralAdmin {
			return nil, errprocess.Authorization("only a central admin may create a global room")
		}
		room.Moderators = []string{creator.UserID}
	}

	if err := room.Validate(); err != nil {
		return nil, err
	}

	if err := uc.roomRepo.CreateRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// RoomsFor resolve the membership set of an identity, most recently active
// rooms first
func (uc *RoomDirectoryUseCase) RoomsFor(ctx context.Context, id domain.Identity) ([]domain.ChatRoom, error) {
	candidates, err := uc.roomRepo.FindCandidateRooms(ctx, id)
	if err != nil {
		return nil, err
	}

	rooms := make([]domain.ChatRoom, 0, len(candidates))
	for _, room := range candidates {
		if room.IsMember(id) {
			rooms = append(rooms, room)
		}
	}

	sort.SliceStable(rooms, func(i, j int) bool {
		a, b := rooms[i], rooms[j]
		at, bt := a.LastMessageAt, b.LastMessageAt
		if at == 0 {
			at = a.CreatedAt
		}
		if bt == 0 {
			bt = b.CreatedAt
		}
		return at > bt
	})
	return rooms, nil
}

// CloseRoom drop the active flag. Closed rooms behave like missing ones for
// every other operation; history stays in storage.
func (uc *RoomDirectoryUseCase) CloseRoom(ctx context.Context, actor domain.Identity, roomID string) error {
	room, err := uc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room == nil || !room.Active {
		return errprocess.NotFound("room not found")
	}
	if !room.IsModerator(actor.UserID) && actor.Role != domain.RoleCentralAdmin {
		return errprocess.Authorization("only a moderator or a central admin may close a room")
	}
	return uc.roomRepo.Deactivate(ctx, roomID)
}

// GetRoom fetch one room, enforcing membership
func (uc *RoomDirectoryUseCase) GetRoom(ctx context.Context, id domain.Identity, roomID string) (*domain.ChatRoom, error) {
	room, err := uc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil || !room.Active {
		return nil, errprocess.NotFound("room not found")
	}
	if !room.IsMember(id) {
		return nil, errprocess.Authorization("not a member of this room")
	}
	return room, nil
}
