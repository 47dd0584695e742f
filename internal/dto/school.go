package dto

// CreateSchoolRequest registers a school.
type CreateSchoolRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	NPSN    string `json:"npsn" validate:"required,numeric,len=8"`
	Status  string `json:"status" validate:"required,oneof=negeri swasta"`
	Address string `json:"address" validate:"max=500"`
}

// UpdateSchoolRequest patches a school.
type UpdateSchoolRequest struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,max=255"`
	NPSN         *string `json:"npsn,omitempty" validate:"omitempty,numeric,len=8"`
	Status       *string `json:"status,omitempty" validate:"omitempty,oneof=negeri swasta"`
	Address      *string `json:"address,omitempty" validate:"omitempty,max=500"`
	HeadMasterID *string `json:"head_master_id,omitempty" validate:"omitempty,uuid"`
}

// SchoolQuery mirrors school listing filters.
type SchoolQuery struct {
	Status   string `form:"status"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}
