package models

import "time"

// NotificationType enumerates notification kinds.
type NotificationType string

const (
	NotificationTalentApproved NotificationType = "talent_approved"
	NotificationTalentRejected NotificationType = "talent_rejected"
)

// Notification is an in-app message for a user.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	TalentID  *string          `db:"talent_id" json:"talent_id,omitempty"`
	Type      NotificationType `db:"type" json:"type"`
	Message   string           `db:"message" json:"message"`
	IsRead    bool             `db:"is_read" json:"is_read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// NotificationFilter constrains notification listing.
type NotificationFilter struct {
	UnreadOnly bool
	Page       int
	PageSize   int
}
