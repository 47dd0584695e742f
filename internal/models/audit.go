package models

import "time"

// AuditAction names an administrative action kept in audit_logs.
type AuditAction string

const (
	AuditActionLogin          AuditAction = "LOGIN"
	AuditActionLogout         AuditAction = "LOGOUT"
	AuditActionPasswordChange AuditAction = "PASSWORD_CHANGE"
	AuditActionUserCreate     AuditAction = "USER_CREATE"
	AuditActionUserUpdate     AuditAction = "USER_UPDATE"
	AuditActionUserDelete     AuditAction = "USER_DELETE"
	AuditActionSchoolCreate   AuditAction = "SCHOOL_CREATE"
	AuditActionSchoolUpdate   AuditAction = "SCHOOL_UPDATE"
	AuditActionSchoolDelete   AuditAction = "SCHOOL_DELETE"
	AuditActionTalentDecide   AuditAction = "TALENT_DECIDE"
	AuditActionExport         AuditAction = "EXPORT"
)

// AuditLog is one audit row. Talent lifecycle history lives in talent_events instead; this
// table covers accounts, schools, reviewer requests and exports.
type AuditLog struct {
	ID         string      `db:"id" json:"id"`
	UserID     *string     `db:"user_id" json:"user_id,omitempty"`
	Action     AuditAction `db:"action" json:"action"`
	Resource   string      `db:"resource" json:"resource"`
	ResourceID *string     `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte      `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte      `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string      `db:"ip_address" json:"ip_address"`
	UserAgent  string      `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}

// Stamp attributes the entry to actorID and the request origin. An empty actorID leaves the
// row anonymous.
func (a *AuditLog) Stamp(actorID, ip, userAgent string) {
	if actorID != "" {
		id := actorID
		a.UserID = &id
	}
	a.IPAddress = ip
	a.UserAgent = userAgent
}
