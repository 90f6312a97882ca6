package domain

// Role definition campus role
type Role string

const (
	//RoleStudent campus student
	RoleStudent Role = "student"
	//RoleFaculty teaching faculty
	RoleFaculty Role = "faculty"
	//RoleDepartmentStaff department-level admin staff
	RoleDepartmentStaff Role = "department-staff"
	//RoleCentralAdmin top-level admin, no default department membership
	RoleCentralAdmin Role = "central-admin"
)

// Identity verified per-connection identity, filled from JWT claims by the
// auth middleware. Department/Year/Batch are zero for roles they do not
// apply to.
type Identity struct {
	UserID     string
	Role       Role
	Department string
	Year       int
	Batch      string
}
