package dto

import "time"

// PresignRequest asks for a direct upload URL.
type PresignRequest struct {
	Filename    string `json:"filename" validate:"required,max=255"`
	Size        int64  `json:"size" validate:"required,gt=0"`
	ContentType string `json:"content_type" validate:"required"`
	UploadType  string `json:"upload_type" validate:"required"`
}

// PresignResponse describes where and how to send the bytes.
type PresignResponse struct {
	UploadID     string            `json:"upload_id"`
	PresignedURL string            `json:"presigned_url"`
	Method       string            `json:"method"`
	Headers      map[string]string `json:"headers,omitempty"`
	ExpiresIn    int               `json:"expires_in"`
	ExpiresAt    time.Time         `json:"expires_at"`
	MaxSize      int64             `json:"max_size"`
	AllowedTypes []string          `json:"allowed_types"`
}

// ConfirmUploadResponse is returned once the object is verified in storage.
type ConfirmUploadResponse struct {
	UploadID    string `json:"upload_id"`
	FileURL     string `json:"file_url"`
	Filename    string `json:"filename"`
	FileSize    int64  `json:"file_size"`
	ContentType string `json:"content_type"`
}
