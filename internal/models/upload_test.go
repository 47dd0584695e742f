package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadPolicies(t *testing.T) {
	photo, ok := UploadProfilePhoto.Policy()
	require.True(t, ok)
	assert.EqualValues(t, 2*1024*1024, photo.MaxSize)
	assert.True(t, photo.Allows("image/webp"))
	assert.True(t, photo.Allows("IMAGE/PNG"))
	assert.False(t, photo.Allows("application/pdf"))

	cert, ok := UploadTalentCertificate.Policy()
	require.True(t, ok)
	assert.EqualValues(t, 10*1024*1024, cert.MaxSize)
	assert.True(t, cert.Allows("application/pdf"))

	_, ok = UploadPurpose("avatar").Policy()
	assert.False(t, ok)
}

func TestPolicyIsCopied(t *testing.T) {
	p, _ := UploadProfilePhoto.Policy()
	p.AllowedTypes[0] = "text/plain"
	again, _ := UploadProfilePhoto.Policy()
	assert.Equal(t, "image/jpeg", again.AllowedTypes[0])
}

func TestObjectKey(t *testing.T) {
	now := time.Date(2024, 3, 5, 23, 0, 0, 0, time.UTC)

	assert.Equal(t, "talent_certificate/2024/03/abc.pdf", ObjectKey(UploadTalentCertificate, "abc", "Sertifikat OSN.PDF", "application/pdf", now))
	assert.Equal(t, "profile_photo/2024/03/abc.jpg", ObjectKey(UploadProfilePhoto, "abc", "foto", "image/jpeg", now))
}

func TestUploadSessionExpired(t *testing.T) {
	now := time.Now()
	s := &UploadSession{State: UploadStatePending, ExpiresAt: now.Add(-time.Second)}
	assert.True(t, s.Expired(now))
	s.State = UploadStateConfirmed
	assert.False(t, s.Expired(now))
}
