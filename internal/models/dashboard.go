package models

// GroupCount is one bucket of a GROUP BY aggregate.
type GroupCount struct {
	Key   string `db:"key" json:"key"`
	Count int    `db:"count" json:"count"`
}

// CountMap folds grouped rows into a map keyed by group.
func CountMap(rows []GroupCount) map[string]int {
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Key] += r.Count
	}
	return out
}

// SchoolStatistics aggregates personnel and talents for one school.
type SchoolStatistics struct {
	ID            string       `db:"id" json:"id"`
	Name          string       `db:"name" json:"name"`
	NPSN          string       `db:"npsn" json:"npsn"`
	Status        SchoolStatus `db:"status" json:"status"`
	GTKCount      int          `db:"gtk_count" json:"gtk_count"`
	TalentCount   int          `db:"talent_count" json:"talent_count"`
	PendingCount  int          `db:"pending_count" json:"pending_count"`
	ApprovedCount int          `db:"approved_count" json:"approved_count"`
}

// TalentStatistics breaks talents down along each categorical axis.
type TalentStatistics struct {
	Total    int            `json:"total"`
	ByKind   map[string]int `json:"by_kind"`
	ByStatus map[string]int `json:"by_status"`
	ByLevel  map[string]int `json:"by_level"`
	ByField  map[string]int `json:"by_field"`
}
