package users

import "time"

// Account roles. Staff roles are university-scoped; super_admin is global.
const (
	RoleSuperAdmin      = "super_admin"
	RoleUniversityAdmin = "university_admin"
	RoleCounsellor      = "counsellor"
	RoleStudent         = "student"
)

// User is an account known to the platform. Staff accounts are provisioned
// by an admin and scoped to a university; students register themselves.
type User struct {
	ID           string
	Email        string
	Name         string
	Role         string
	UniversityID string
	CreatedAt    time.Time
}
