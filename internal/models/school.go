package models

import "time"

// SchoolStatus distinguishes public and private schools.
type SchoolStatus string

const (
	SchoolStatusNegeri SchoolStatus = "negeri"
	SchoolStatusSwasta SchoolStatus = "swasta"
)

// School is a row of the schools table.
type School struct {
	ID             string       `db:"id" json:"id"`
	Name           string       `db:"name" json:"name"`
	NPSN           string       `db:"npsn" json:"npsn"`
	Status         SchoolStatus `db:"status" json:"status"`
	Address        string       `db:"address" json:"address"`
	HeadMasterID   *string      `db:"head_master_id" json:"head_master_id,omitempty"`
	HeadMasterName *string      `db:"head_master_name" json:"head_master_name,omitempty"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}

// SchoolFilter constrains school listing.
type SchoolFilter struct {
	Status   *SchoolStatus
	Search   string
	Page     int
	PageSize int
}

// SchoolDetail adds personnel counts to a school.
type SchoolDetail struct {
	School
	GTKCount           int `json:"gtk_count"`
	GuruCount          int `json:"guru_count"`
	TendikCount        int `json:"tendik_count"`
	KepalaSekolahCount int `json:"kepala_sekolah_count"`
}
