// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"
)

// LegacyDevicePrefix marks owner ids assigned by the backfill to rows written
// before device ownership existed. Such rows are never writable.
const LegacyDevicePrefix = "legacy-"

// Confession is an anonymous post.
type Confession struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Text          string    `gorm:"type:text;not null" json:"text"`
	Tags          []string  `gorm:"type:text;serializer:json" json:"tags"`
	Timestamp     time.Time `gorm:"not null;index" json:"timestamp"`
	Username      string    `gorm:"size:64;not null" json:"username"`
	Avatar        string    `gorm:"type:text" json:"avatar"`
	Mood          string    `gorm:"size:16" json:"mood,omitempty"`
	Topic         string    `gorm:"size:64;index" json:"topic,omitempty"`
	Anonymous     bool      `gorm:"not null;default:false" json:"anonymous"`
	IsHighlighted bool      `gorm:"not null;default:false" json:"is_highlighted"`
	CommentsCount int       `gorm:"not null;default:0" json:"comments_count"`
	// DeviceID is the owner. It is never serialized to other devices.
	DeviceID string `gorm:"size:64;not null;default:'';index" json:"-"`
}

// TableName specifies the table name for GORM.
func (Confession) TableName() string {
	return "confessions"
}

// IsLegacyOwner reports whether deviceID was assigned by the legacy backfill.
func IsLegacyOwner(deviceID string) bool {
	return strings.HasPrefix(deviceID, LegacyDevicePrefix)
}

// HasTag reports whether the confession carries tag.
func (c *Confession) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// EnrichedConfession is a confession joined with its comments and reaction
// summary as seen by one device. Comments and Reactions are nil when
// enrichment failed for this item.
type EnrichedConfession struct {
	Confession
	Comments  []Comment         `json:"comments"`
	Reactions []ReactionSummary `json:"reactions"`
	IsMine    bool              `json:"is_mine"`
}

// Enriched reports whether comments and reactions were attached.
func (e *EnrichedConfession) Enriched() bool {
	return e.Reactions != nil
}

// ConfessionFilter selects which confessions List returns. At most one of
// Tag, Topic and Highlighted is honored, in that order.
type ConfessionFilter struct {
	Tag         string
	Topic       string
	Highlighted bool
}

// ConfessionPatch carries the author-editable fields. Nil means unchanged.
type ConfessionPatch struct {
	Text   *string   `json:"text,omitempty"`
	Tags   *[]string `json:"tags,omitempty"`
	Mood   *string   `json:"mood,omitempty"`
	Topic  *string   `json:"topic,omitempty"`
	Avatar *string   `json:"avatar,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ConfessionPatch) Empty() bool {
	return p.Text == nil && p.Tags == nil && p.Mood == nil && p.Topic == nil && p.Avatar == nil
}

// DerivedFields are written by secondary effects only.
type DerivedFields struct {
	IsHighlighted *bool
	CommentsCount *int
}
