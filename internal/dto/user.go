package dto

import "github.com/noah-isme/sipodi-api/internal/models"

// CreateUserRequest provisions an account.
type CreateUserRequest struct {
	Email     string          `json:"email" validate:"required,email"`
	Password  string          `json:"password" validate:"required,min=8"`
	Role      models.UserRole `json:"role" validate:"required,oneof=super_admin admin_sekolah gtk"`
	FullName  string          `json:"full_name" validate:"required,max=255"`
	NUPTK     *string         `json:"nuptk,omitempty" validate:"omitempty,numeric,len=16"`
	NIP       *string         `json:"nip,omitempty" validate:"omitempty,numeric,len=18"`
	Gender    *string         `json:"gender,omitempty" validate:"omitempty,oneof=L P"`
	BirthDate *string         `json:"birth_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	GTKType   *string         `json:"gtk_type,omitempty" validate:"omitempty,oneof=guru tendik kepala_sekolah"`
	Position  *string         `json:"position,omitempty" validate:"omitempty,max=100"`
	SchoolID  *string         `json:"school_id,omitempty" validate:"omitempty,uuid"`
}

// UpdateUserRequest patches an account. Nil fields are left untouched.
type UpdateUserRequest struct {
	FullName  *string `json:"full_name,omitempty" validate:"omitempty,max=255"`
	NUPTK     *string `json:"nuptk,omitempty" validate:"omitempty,numeric,len=16"`
	NIP       *string `json:"nip,omitempty" validate:"omitempty,numeric,len=18"`
	Gender    *string `json:"gender,omitempty" validate:"omitempty,oneof=L P"`
	BirthDate *string `json:"birth_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	GTKType   *string `json:"gtk_type,omitempty" validate:"omitempty,oneof=guru tendik kepala_sekolah"`
	Position  *string `json:"position,omitempty" validate:"omitempty,max=100"`
	SchoolID  *string `json:"school_id,omitempty" validate:"omitempty,uuid"`
}

// UpdateProfileRequest patches the caller's own profile.
type UpdateProfileRequest struct {
	FullName      *string `json:"full_name,omitempty" validate:"omitempty,max=255"`
	Gender        *string `json:"gender,omitempty" validate:"omitempty,oneof=L P"`
	BirthDate     *string `json:"birth_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Position      *string `json:"position,omitempty" validate:"omitempty,max=100"`
	PhotoUploadID *string `json:"photo_upload_id,omitempty" validate:"omitempty,uuid"`
}

// UserQuery mirrors user listing filters.
type UserQuery struct {
	Role     string `form:"role"`
	GTKType  string `form:"gtk_type"`
	SchoolID string `form:"school_id"`
	Active   string `form:"is_active"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}
