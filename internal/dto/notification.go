package dto

// NotificationQuery mirrors notification listing filters.
type NotificationQuery struct {
	UnreadOnly bool `form:"unread_only"`
	Page       int  `form:"page"`
	PageSize   int  `form:"page_size"`
}

// UnreadCount is returned by the unread counter endpoint.
type UnreadCount struct {
	Count int `json:"count"`
}
