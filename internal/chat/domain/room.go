package domain

import (
	"campus_chat_service/pkg"

	errprocess "campus_chat_service/pkg/err"
)

// RoomKind definition chat room kind
type RoomKind string

const (
	//RoomKindDepartment department-wide room, access filtered by target audience
	RoomKindDepartment RoomKind = "department"
	//RoomKindClass class room keyed by department + year + batch
	RoomKindClass RoomKind = "class"
	//RoomKindPrivate 1 on 1 room
	RoomKindPrivate RoomKind = "private"
	//RoomKindPrivateGroup admin-created group, the only kind spanning departments
	RoomKindPrivateGroup RoomKind = "private-group"
	//RoomKindGlobal campus-wide room
	RoomKindGlobal RoomKind = "global"
)

// TargetAudience coarse role filter for department rooms, orthogonal to kind
type TargetAudience string

const (
	//AudienceAll every department member
	AudienceAll TargetAudience = "all"
	//AudienceStudents students only
	AudienceStudents TargetAudience = "students"
	//AudienceFaculty faculty only
	AudienceFaculty TargetAudience = "faculty"
	//AudienceDepartmentStaff department staff only
	AudienceDepartmentStaff TargetAudience = "department-staff"
	//AudienceFacultyAndStaff faculty plus department staff
	AudienceFacultyAndStaff TargetAudience = "faculty-and-staff"
	//AudienceCustom explicit participant allow-list
	AudienceCustom TargetAudience = "custom"
)

// ChatRoom definition chat room
type ChatRoom struct {
	ID             string         `bson:"_id,omitempty" json:"id"`
	Kind           RoomKind       `bson:"kind" json:"kind"`
	Name           string         `bson:"name,omitempty" json:"name,omitempty"`
	TargetAudience TargetAudience `bson:"target_audience,omitempty" json:"target_audience,omitempty"`
	Department     string         `bson:"department,omitempty" json:"department,omitempty"`
	// Departments is the cross-department set of a private-group, computed
	// once at creation and never recomputed afterwards.
	Departments   []string `bson:"departments,omitempty" json:"departments,omitempty"`
	Year          int      `bson:"year,omitempty" json:"year,omitempty"`
	Batch         string   `bson:"batch,omitempty" json:"batch,omitempty"`
	Participants  []string `bson:"participants,omitempty" json:"participants,omitempty"`
	Moderators    []string `bson:"moderators,omitempty" json:"moderators,omitempty"`
	CreatedBy     string   `bson:"created_by,omitempty" json:"created_by,omitempty"`
	LastMessageID string   `bson:"last_message_id,omitempty" json:"last_message_id,omitempty"`
	LastMessageAt int64    `bson:"last_message_at,omitempty" json:"last_message_at,omitempty"`
	Active        bool     `bson:"active" json:"active"`
	CreatedAt     int64    `bson:"created_at,omitempty" json:"created_at,omitempty"`
}

// ResolvedAudience return the effective target audience. Rooms written before
// the field existed carry no value and resolve to AudienceAll; a stored value
// is always taken as-is, so a legacy room can never resolve to AudienceCustom.
func (r *ChatRoom) ResolvedAudience() TargetAudience {
	if r.TargetAudience == "" {
		return AudienceAll
	}
	return r.TargetAudience
}

// Validate check kind-specific required fields. Violations are creation-time
// validation errors; a stored room is assumed consistent.
func (r *ChatRoom) Validate() error {
	switch r.Kind {
	case RoomKindDepartment:
		if r.Department == "" {
			return errprocess.Validation("department room requires a department")
		}
		if r.TargetAudience != "" && !validAudience(r.TargetAudience) {
			return errprocess.Validation("unknown target audience: " + string(r.TargetAudience))
		}
		if r.ResolvedAudience() == AudienceCustom && len(r.Participants) == 0 {
			return errprocess.Validation("custom audience requires a participant allow-list")
		}
	case RoomKindClass:
		if r.Department == "" {
			return errprocess.Validation("class room requires a department")
		}
		if r.Year < 1 || r.Year > 4 {
			return errprocess.Validation("class room requires year between 1 and 4")
		}
		if r.Batch == "" {
			return errprocess.Validation("class room requires a batch label")
		}
	case RoomKindPrivate:
		if len(pkg.Unique(r.Participants)) != 2 {
			return errprocess.Validation("private room must have exactly 2 participants")
		}
	case RoomKindPrivateGroup:
		if len(r.Participants) == 0 {
			return errprocess.Validation("private-group room requires participants")
		}
		if len(r.Departments) == 0 {
			return errprocess.Validation("private-group room requires its department set")
		}
	case RoomKindGlobal:
		// no extra fields
	default:
		return errprocess.Validation("unknown room kind: " + string(r.Kind))
	}
	return nil
}

func validAudience(a TargetAudience) bool {
	switch a {
	case AudienceAll, AudienceStudents, AudienceFaculty, AudienceDepartmentStaff,
		AudienceFacultyAndStaff, AudienceCustom:
		return true
	}
	return false
}

// audienceMatch closed predicate set: one entry per target audience.
// AudienceCustom additionally requires participant membership, checked by the
// caller.
var audienceMatch = map[TargetAudience]func(Role) bool{
	AudienceAll: func(r Role) bool {
		return r == RoleStudent || r == RoleFaculty || r == RoleDepartmentStaff
	},
	AudienceStudents:        func(r Role) bool { return r == RoleStudent },
	AudienceFaculty:         func(r Role) bool { return r == RoleFaculty },
	AudienceDepartmentStaff: func(r Role) bool { return r == RoleDepartmentStaff },
	AudienceFacultyAndStaff: func(r Role) bool {
		return r == RoleFaculty || r == RoleDepartmentStaff
	},
	AudienceCustom: func(r Role) bool {
		return r == RoleStudent || r == RoleFaculty || r == RoleDepartmentStaff
	},
}

// IsMember report whether id satisfies this room's membership predicate.
// Listed participants and moderators are members regardless of kind, which is
// also the only way a central admin reaches a non-global room.
func (r *ChatRoom) IsMember(id Identity) bool {
	if !r.Active {
		return false
	}
	if pkg.Contains(r.Participants, id.UserID) || pkg.Contains(r.Moderators, id.UserID) {
		return true
	}

	switch r.Kind {
	case RoomKindGlobal:
		return true

	case RoomKindDepartment:
		if id.Department != r.Department {
			return false
		}
		audience := r.ResolvedAudience()
		if !audienceMatch[audience](id.Role) {
			return false
		}
		if audience == AudienceCustom {
			// allow-list already checked above
			return false
		}
		return true

	case RoomKindClass:
		if id.Department != r.Department {
			return false
		}
		// faculty and department staff see every class in their department,
		// students only their own year+batch
		switch id.Role {
		case RoleFaculty, RoleDepartmentStaff:
			return true
		case RoleStudent:
			return id.Year == r.Year && id.Batch == r.Batch
		}
		return false

	case RoomKindPrivate, RoomKindPrivateGroup:
		// explicit participants only, handled above
		return false
	}
	return false
}

// IsModerator check userID may delete any message in this room
func (r *ChatRoom) IsModerator(userID string) bool {
	return pkg.Contains(r.Moderators, userID)
}
