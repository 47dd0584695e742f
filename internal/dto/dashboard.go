package dto

// DashboardSummary is the role-dependent landing payload. Only the sections relevant to the
// caller's role are populated.
type DashboardSummary struct {
	TotalSchools         int              `json:"total_schools,omitempty"`
	TotalUsers           int              `json:"total_users,omitempty"`
	TotalGTK             int              `json:"total_gtk,omitempty"`
	TotalAdminSekolah    int              `json:"total_admin_sekolah,omitempty"`
	GTKByType            map[string]int   `json:"gtk_by_type,omitempty"`
	TotalTalents         int              `json:"total_talents,omitempty"`
	TalentsByStatus      map[string]int   `json:"talents_by_status,omitempty"`
	TalentsByType        map[string]int   `json:"talents_by_type,omitempty"`
	School               *SchoolRef       `json:"school,omitempty"`
	MyTalents            map[string]int   `json:"my_talents,omitempty"`
	PendingVerifications int              `json:"pending_verifications,omitempty"`
	UnreadNotifications  int              `json:"unread_notifications,omitempty"`
	RecentTalents        []TalentResponse `json:"recent_talents,omitempty"`
}
