package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin   UserRole = "super_admin"
	RoleAdminSekolah UserRole = "admin_sekolah"
	RoleGTK          UserRole = "gtk"
)

// Valid reports whether r is one of the fixed roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdminSekolah, RoleGTK:
		return true
	}
	return false
}

// IsReviewer reports whether the role may decide talent submissions.
func (r UserRole) IsReviewer() bool {
	return r == RoleSuperAdmin || r == RoleAdminSekolah
}

// Gender uses the Dapodik single-letter codes.
type Gender string

const (
	GenderMale   Gender = "L"
	GenderFemale Gender = "P"
)

// GTKType classifies school personnel.
type GTKType string

const (
	GTKTypeGuru          GTKType = "guru"
	GTKTypeTendik        GTKType = "tendik"
	GTKTypeKepalaSekolah GTKType = "kepala_sekolah"
)

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         UserRole   `db:"role" json:"role"`
	FullName     string     `db:"full_name" json:"full_name"`
	PhotoURL     *string    `db:"photo_url" json:"photo_url,omitempty"`
	NUPTK        *string    `db:"nuptk" json:"nuptk,omitempty"`
	NIP          *string    `db:"nip" json:"nip,omitempty"`
	Gender       *Gender    `db:"gender" json:"gender,omitempty"`
	BirthDate    *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	GTKType      *GTKType   `db:"gtk_type" json:"gtk_type,omitempty"`
	Position     *string    `db:"position" json:"position,omitempty"`
	SchoolID     *string    `db:"school_id" json:"school_id,omitempty"`
	SchoolName   *string    `db:"school_name" json:"school_name,omitempty"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	GTKType   *GTKType
	SchoolID  *string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// NewPagination derives the page count from total.
func NewPagination(page, pageSize, total int) *Pagination {
	pages := 0
	if pageSize > 0 {
		pages = (total + pageSize - 1) / pageSize
	}
	return &Pagination{Page: page, PageSize: pageSize, TotalCount: total, TotalPages: pages}
}
