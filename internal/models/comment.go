package models

import "time"

// Comment is a reply on a confession.
type Comment struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ConfessionID string    `gorm:"type:varchar(36);not null;index" json:"confession_id"`
	Username     string    `gorm:"size:64;not null" json:"username"`
	Text         string    `gorm:"type:text;not null" json:"text"`
	Timestamp    time.Time `gorm:"not null;index" json:"timestamp"`
	Avatar       string    `gorm:"type:text" json:"avatar"`
	DeviceID     string    `gorm:"size:64;not null;default:'';index" json:"-"`
	// IsMine is computed per request.
	IsMine bool `gorm:"-" json:"is_mine"`
}

// TableName specifies the table name for GORM.
func (Comment) TableName() string {
	return "comments"
}
