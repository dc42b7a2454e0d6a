package models

import (
	"time"

	"gorm.io/gorm"
)

type Session struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	UserID    string    `gorm:"type:text;not null;index" json:"userId"`
	User      *User     `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	Token     string    `gorm:"type:text;not null;uniqueIndex" json:"token"`
	ExpiresAt time.Time `gorm:"type:datetime;not null" json:"expiresAt"`
	IPAddress *string   `gorm:"type:text" json:"ipAddress"`
	UserAgent *string   `gorm:"type:text" json:"userAgent"`
	CreatedAt time.Time `gorm:"type:datetime;not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"type:datetime;not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (Session) TableName() string { return "session" }

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	s.ID = newID(s.ID)
	return nil
}

// Expired reports whether the session is no longer usable at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
