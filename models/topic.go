package models

import (
	"time"

	"gorm.io/gorm"
)

// Topic là chủ đề học của một người dùng.
type Topic struct {
	ID               string     `gorm:"type:text;primaryKey" json:"id"`
	UserID           string     `gorm:"type:text;not null;index" json:"user_id"`
	User             *User      `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	Title            string     `gorm:"type:text;not null" json:"title"`
	Description      *string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt        time.Time  `gorm:"type:datetime;default:CURRENT_TIMESTAMP" json:"created_at"`
	LastStudied      *time.Time `gorm:"type:datetime" json:"last_studied,omitempty"`
	ProficiencyScore float64    `gorm:"type:real;default:0" json:"proficiency_score"`
}

func (Topic) TableName() string { return "topics" }

func (t *Topic) BeforeCreate(tx *gorm.DB) error {
	t.ID = newID(t.ID)
	return nil
}
