package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// RefreshToken is one refresh cookie session. The raw cookie value never reaches the
// database; TokenHash holds its SHA-256 digest.
type RefreshToken struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	TokenHash string     `db:"token_hash"`
	ExpiresAt time.Time  `db:"expires_at"`
	CreatedAt time.Time  `db:"created_at"`
	Revoked   bool       `db:"revoked"`
	RevokedAt *time.Time `db:"revoked_at"`
	IPAddress string     `db:"ip_address"`
	UserAgent string     `db:"user_agent"`
}

// RefreshCheck is the outcome of presenting a stored refresh token.
type RefreshCheck int

const (
	RefreshUsable RefreshCheck = iota
	RefreshExpired
	// RefreshReused means a rotated token came back, which points at a stolen cookie.
	RefreshReused
)

// Check classifies t at now.
func (t *RefreshToken) Check(now time.Time) RefreshCheck {
	switch {
	case t.Revoked:
		return RefreshReused
	case !now.Before(t.ExpiresAt):
		return RefreshExpired
	}
	return RefreshUsable
}

// HashRefreshToken returns the digest stored for a raw cookie value.
func HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
