package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token issuer and audience for anonymous sessions.
const (
	SessionIssuer   = "unheard-api"
	SessionAudience = "unheard-client"
)

// AnonymousSession is a backend session bound to one device.
type AnonymousSession struct {
	ID         string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	DeviceID   string     `gorm:"size:64;not null;index" json:"device_id"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `gorm:"not null;index" json:"expires_at"`
	LastSeenAt time.Time  `json:"last_seen_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// TableName specifies the table name for GORM.
func (AnonymousSession) TableName() string {
	return "anonymous_sessions"
}

// Active reports whether the session can still authenticate requests.
func (s *AnonymousSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// SessionClaims are the JWT claims of an anonymous session token.
// Subject carries the session id.
type SessionClaims struct {
	DeviceID string `json:"did"`
	jwt.RegisteredClaims
}

// IssuedSession is returned when a session is created or recovered.
type IssuedSession struct {
	Session AnonymousSession `json:"session"`
	Token   string           `json:"token"`
}

// Actor identifies the device behind a request.
type Actor struct {
	DeviceID  string
	SessionID string
}
