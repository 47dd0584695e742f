package models

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"
)

// UploadPurpose constrains what a presigned upload may contain.
type UploadPurpose string

const (
	UploadProfilePhoto      UploadPurpose = "profile_photo"
	UploadTalentCertificate UploadPurpose = "talent_certificate"
)

// UploadPolicy bounds size and type for a purpose.
type UploadPolicy struct {
	MaxSize      int64
	AllowedTypes []string
}

var uploadPolicies = map[UploadPurpose]UploadPolicy{
	UploadProfilePhoto: {
		MaxSize:      2 << 20,
		AllowedTypes: []string{"image/jpeg", "image/png", "image/webp"},
	},
	UploadTalentCertificate: {
		MaxSize:      10 << 20,
		AllowedTypes: []string{"application/pdf", "image/jpeg", "image/png"},
	},
}

// Policy returns the limits for p.
func (p UploadPurpose) Policy() (UploadPolicy, bool) {
	policy, ok := uploadPolicies[p]
	if !ok {
		return UploadPolicy{}, false
	}
	policy.AllowedTypes = append([]string(nil), policy.AllowedTypes...)
	return policy, true
}

// Allows reports whether contentType is permitted. Parameters such as charset are ignored.
func (p UploadPolicy) Allows(contentType string) bool {
	mediaType := NormalizeContentType(contentType)
	for _, allowed := range p.AllowedTypes {
		if allowed == mediaType {
			return true
		}
	}
	return false
}

// NormalizeContentType strips parameters and lowercases the media type.
func NormalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

var extensionByType = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// ObjectKey builds "{purpose}/{yyyy}/{mm}/{id}{ext}". The extension comes from the filename,
// falling back to the content type.
func ObjectKey(purpose UploadPurpose, id, filename, contentType string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) < 2 || len(ext) > 6 || strings.ContainsAny(ext, " /\\") {
		ext = extensionByType[NormalizeContentType(contentType)]
	}
	now = now.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%s%s", purpose, now.Year(), int(now.Month()), id, ext)
}

// UploadState tracks an upload session.
type UploadState string

const (
	UploadStatePending   UploadState = "pending"
	UploadStateConfirmed UploadState = "confirmed"
)

// UploadSession is the ephemeral server-side record of a presigned upload.
type UploadSession struct {
	ID           string        `json:"id"`
	OwnerID      string        `json:"owner_id"`
	Purpose      UploadPurpose `json:"purpose"`
	ObjectKey    string        `json:"object_key"`
	Filename     string        `json:"filename"`
	DeclaredSize int64         `json:"declared_size"`
	ContentType  string        `json:"content_type"`
	State        UploadState   `json:"state"`
	FileURL      string        `json:"file_url,omitempty"`
	FileSize     int64         `json:"file_size,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	ExpiresAt    time.Time     `json:"expires_at"`
	ConfirmedAt  *time.Time    `json:"confirmed_at,omitempty"`
}

// Expired reports whether the presigned URL lapsed before confirmation.
func (s *UploadSession) Expired(now time.Time) bool {
	return s.State == UploadStatePending && now.After(s.ExpiresAt)
}
