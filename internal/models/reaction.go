package models

import "time"

// ReactionType is one of the fixed reaction emoji.
type ReactionType string

// Supported reactions.
const (
	ReactionHeart  ReactionType = "❤️"
	ReactionThumbs ReactionType = "👍"
	ReactionLaugh  ReactionType = "😂"
	ReactionCry    ReactionType = "😢"
	ReactionFire   ReactionType = "🔥"
)

// ReactionTypes lists every supported reaction in display order.
var ReactionTypes = []ReactionType{
	ReactionHeart,
	ReactionThumbs,
	ReactionLaugh,
	ReactionCry,
	ReactionFire,
}

// Valid reports whether t is a supported reaction.
func (t ReactionType) Valid() bool {
	for _, rt := range ReactionTypes {
		if rt == t {
			return true
		}
	}
	return false
}

// Reaction is one device's reaction of one type on one confession.
// The (confession, device, type) triple is unique.
type Reaction struct {
	ID           string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ConfessionID string       `gorm:"type:varchar(36);not null;uniqueIndex:idx_reactions_confession_device_type,priority:1" json:"confession_id"`
	DeviceID     string       `gorm:"size:64;not null;uniqueIndex:idx_reactions_confession_device_type,priority:2" json:"-"`
	Type         ReactionType `gorm:"size:16;not null;uniqueIndex:idx_reactions_confession_device_type,priority:3" json:"type"`
	Timestamp    time.Time    `gorm:"not null" json:"timestamp"`
}

// TableName specifies the table name for GORM.
func (Reaction) TableName() string {
	return "reactions"
}

// ReactionSummary is the per-type view attached to an enriched confession.
type ReactionSummary struct {
	Type           ReactionType `json:"type"`
	Count          int          `json:"count"`
	UserHasReacted bool         `json:"user_has_reacted"`
}

// ReactionState is the full reaction picture for one confession and one device.
type ReactionState struct {
	Counts        map[ReactionType]int `json:"counts"`
	UserReactions []ReactionType       `json:"user_reactions"`
}

// NewReactionState returns a state with every supported type zero-filled.
func NewReactionState() ReactionState {
	counts := make(map[ReactionType]int, len(ReactionTypes))
	for _, t := range ReactionTypes {
		counts[t] = 0
	}
	return ReactionState{Counts: counts, UserReactions: []ReactionType{}}
}

// Total sums the counts across all types.
func (s ReactionState) Total() int {
	total := 0
	for _, n := range s.Counts {
		total += n
	}
	return total
}

// HasReacted reports whether the device holds a reaction of type t.
func (s ReactionState) HasReacted(t ReactionType) bool {
	for _, r := range s.UserReactions {
		if r == t {
			return true
		}
	}
	return false
}

// Summaries flattens the state into display order.
func (s ReactionState) Summaries() []ReactionSummary {
	out := make([]ReactionSummary, 0, len(ReactionTypes))
	for _, t := range ReactionTypes {
		out = append(out, ReactionSummary{
			Type:           t,
			Count:          s.Counts[t],
			UserHasReacted: s.HasReacted(t),
		})
	}
	return out
}

// ToggleResult reports the outcome of a reaction toggle.
type ToggleResult struct {
	Added        bool         `json:"added"`
	ReactionType ReactionType `json:"reaction_type"`
}
