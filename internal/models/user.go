package models

import "time"

// Role represents the access level gating route visibility.
type Role string

const (
	RoleLeadership Role = "leadership"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// Valid reports whether the role is one of the known access levels. Unknown
// role strings are treated the same as "not permitted", never as an error.
func (r Role) Valid() bool {
	switch r {
	case RoleLeadership, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	FullName     string     `db:"full_name" json:"full_name"`
	Phone        string     `db:"phone" json:"phone"`
	Role         Role       `db:"role" json:"role"`
	PasswordHash *string    `db:"password_hash" json:"-"`
	Settings     []byte     `db:"settings" json:"-"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *Role
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// UserSettings mirrors the notification and system tabs of the settings
// screen. Stored as a JSON document on the user row.
type UserSettings struct {
	Notifications NotificationSettings `json:"notifications"`
	System        SystemSettings       `json:"system"`
}

// NotificationSettings holds per-channel notification toggles.
type NotificationSettings struct {
	Email         bool `json:"email"`
	AppraisalDue  bool `json:"appraisal_due"`
	AssessmentDue bool `json:"assessment_due"`
	Announcements bool `json:"announcements"`
}

// SystemSettings holds display preferences.
type SystemSettings struct {
	Theme    string `json:"theme"`
	Language string `json:"language"`
	Timezone string `json:"timezone"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
